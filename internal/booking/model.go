package booking

import (
	"strings"
	"time"
)

// Role is the kind of user acting on a job.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTranslator Role = "translator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
	RoleSystem     Role = "system"
)

// IsAdmin reports whether the role may drive admin edits.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Actor identifies who performs an operation.
type Actor struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

// SystemActor is used by scheduled maintenance such as the expiry sweep.
var SystemActor = Actor{Role: RoleSystem}

// JobType is the billing category of a job.
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

// Certification requirements a job may carry.
const (
	CertifiedNormal  = "normal"
	CertifiedYes     = "yes"
	CertifiedLaw     = "law"
	CertifiedNLaw    = "n_law"
	CertifiedHealth  = "health"
	CertifiedNHealth = "n_health"
	CertifiedBoth    = "both"
)

// DueLayout is how due times are rendered in messages and payloads.
const DueLayout = "2006-01-02 15:04:05"

// Job is a single interpretation booking.
type Job struct {
	ID                   int64      `db:"id" json:"id"`
	UserID               int64      `db:"user_id" json:"user_id"`
	FromLanguageID       int64      `db:"from_language_id" json:"from_language_id"`
	Immediate            bool       `db:"immediate" json:"immediate"`
	Due                  time.Time  `db:"due" json:"due"`
	Duration             int        `db:"duration" json:"duration"`
	JobType              JobType    `db:"job_type" json:"job_type"`
	Certified            string     `db:"certified" json:"certified"`
	Gender               string     `db:"gender" json:"gender"`
	CustomerPhoneType    bool       `db:"customer_phone_type" json:"customer_phone_type"`
	CustomerPhysicalType bool       `db:"customer_physical_type" json:"customer_physical_type"`
	Town                 string     `db:"town" json:"town"`
	City                 string     `db:"city" json:"city"`
	UserEmail            string     `db:"user_email" json:"user_email"`
	Reference            string     `db:"reference" json:"reference"`
	AdminComments        string     `db:"admin_comments" json:"admin_comments"`
	SessionTime          string     `db:"session_time" json:"session_time"`
	Status               Status     `db:"status" json:"status"`
	ByAdmin              bool       `db:"by_admin" json:"by_admin"`
	SpecificTranslatorID *int64     `db:"specific_translator_id" json:"specific_translator_id,omitempty"`
	Cust16HourEmail      bool       `db:"cust_16_hour_email" json:"cust_16_hour_email"`
	Cust48HourEmail      bool       `db:"cust_48_hour_email" json:"cust_48_hour_email"`
	WillExpireAt         time.Time  `db:"will_expire_at" json:"will_expire_at"`
	EndAt                *time.Time `db:"end_at" json:"end_at,omitempty"`
	WithdrawAt           *time.Time `db:"withdraw_at" json:"withdraw_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// End is the moment the booked session is over.
func (j *Job) End() time.Time {
	return j.Due.Add(time.Duration(j.Duration) * time.Minute)
}

// PhysicalOnly reports whether the job needs the translator on site and cannot be done by phone.
func (j *Job) PhysicalOnly() bool {
	return j.CustomerPhysicalType && !j.CustomerPhoneType
}

// Clone returns a copy that does not share pointer fields with j.
func (j *Job) Clone() *Job {
	cp := *j
	if j.EndAt != nil {
		t := *j.EndAt
		cp.EndAt = &t
	}
	if j.WithdrawAt != nil {
		t := *j.WithdrawAt
		cp.WithdrawAt = &t
	}
	if j.SpecificTranslatorID != nil {
		id := *j.SpecificTranslatorID
		cp.SpecificTranslatorID = &id
	}
	return &cp
}

// Assignment binds one translator to one job for one episode of work.
// It is active while both CancelAt and CompletedAt are nil.
type Assignment struct {
	ID          int64      `db:"id" json:"id"`
	JobID       int64      `db:"job_id" json:"job_id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CancelAt    *time.Time `db:"cancel_at" json:"cancel_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *int64     `db:"completed_by" json:"completed_by,omitempty"`
}

// Active reports whether the assignment is neither cancelled nor completed.
func (a *Assignment) Active() bool {
	return a.CancelAt == nil && a.CompletedAt == nil
}

// UserMeta holds per-user profile and notification preferences.
type UserMeta struct {
	TranslatorType     string `json:"translator_type,omitempty"`
	TranslatorLevel    string `json:"translator_level,omitempty"`
	Gender             string `json:"gender,omitempty"`
	City               string `json:"city,omitempty"`
	CustomerType       string `json:"customer_type,omitempty"`
	ConsumerType       string `json:"consumer_type,omitempty"`
	NotGetNotification bool   `json:"not_get_notification"`
	NotGetNighttime    bool   `json:"not_get_nighttime"`
	NotGetEmergency    bool   `json:"not_get_emergency"`
}

// User is a customer, translator or admin. LanguageIDs and TownIDs are
// only populated for translators and customers respectively where relevant.
type User struct {
	ID          int64    `json:"id"`
	Role        Role     `json:"role"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Mobile      string   `json:"mobile,omitempty"`
	Active      bool     `json:"active"`
	Meta        UserMeta `json:"meta"`
	LanguageIDs []int64  `json:"language_ids,omitempty"`
	TownIDs     []int64  `json:"town_ids,omitempty"`
}

// PushTag is the lowercase email the push transport targets.
func (u *User) PushTag() string {
	return strings.ToLower(u.Email)
}

// Speaks reports whether the user lists the language.
func (u *User) Speaks(languageID int64) bool {
	for _, id := range u.LanguageIDs {
		if id == languageID {
			return true
		}
	}
	return false
}

// Offer is a job together with the customer data eligibility depends on.
type Offer struct {
	Job           *Job
	CustomerTowns []int64
	Blacklist     []int64
}

// JobFilter narrows ListJobs. Jobs come newest first and Cursor pages by id,
// which never changes, unlike created_at which a reopen rewrites.
type JobFilter struct {
	CustomerID int64
	Status     Status
	PageSize   int
	Cursor     *JobCursor
}

// JobCursor is the keyset position for job listing.
type JobCursor struct {
	JobID int64
}
