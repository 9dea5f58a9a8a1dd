package booking

import (
	"context"
	"time"
)

// Repository is the persistence boundary. Lookups return an error wrapping
// ErrNotFound when nothing matches. The Accept/Transition/Reopen
// methods each run as a single transaction.
type Repository interface {
	JobByID(ctx context.Context, id int64) (*Job, error)
	UserByID(ctx context.Context, id int64) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	LanguageName(ctx context.Context, languageID int64) (string, error)
	CustomerTowns(ctx context.Context, customerID int64) ([]int64, error)
	BlacklistedTranslators(ctx context.Context, customerID int64) ([]int64, error)

	// ListTranslators returns active translators other than exclude (0 excludes nobody).
	ListTranslators(ctx context.Context, exclude int64) ([]*User, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error)
	ExpiredPendingJobs(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	// ActiveAssignment returns ErrNotFound when the job has no active translator.
	ActiveAssignment(ctx context.Context, jobID int64) (*Assignment, error)
	// TranslatorBusy reports whether the translator holds an active assignment,
	// other than on skipJobID, whose session overlaps [from, to).
	TranslatorBusy(ctx context.Context, translatorID int64, from, to time.Time, skipJobID int64) (bool, error)

	CreateJob(ctx context.Context, job *Job) (*Job, error)
	SaveJob(ctx context.Context, job *Job) error

	// AcceptJob locks the translator, rejects overlaps with ErrAlreadyBooked,
	// moves the job pending->assigned (ErrAlreadyAssigned if it is not pending)
	// and inserts the active assignment.
	AcceptJob(ctx context.Context, jobID, translatorID int64, at time.Time) (*Job, error)
	// TransitionJob writes job only if its stored status still equals from,
	// returning ErrInvalidTransition otherwise, and applies change to the
	// active assignment in the same transaction.
	TransitionJob(ctx context.Context, job *Job, from Status, change AssignmentChange) error
	// ReopenJob either moves req.Job back to pending in place, writing only
	// Status, CreatedAt, UpdatedAt and WillExpireAt, or, when req.Clone is
	// set, inserts the clone. Either way the active assignment of req.Job is
	// cancelled and a cancelled placeholder row for the reopener is recorded.
	ReopenJob(ctx context.Context, req ReopenRequest) (*Job, error)
}

// AssignmentAction says what a transition does to the active assignment.
type AssignmentAction int

const (
	AssignmentKeep AssignmentAction = iota
	AssignmentCancel
	AssignmentComplete
	// AssignmentReassign cancels the active row, if any, and inserts one for TranslatorID.
	AssignmentReassign
)

// AssignmentChange accompanies TransitionJob. CompletedBy 0 means the assignee.
type AssignmentChange struct {
	Action       AssignmentAction
	CompletedBy  int64
	TranslatorID int64
	At           time.Time
}

// ReopenRequest carries the job to put back into pending.
type ReopenRequest struct {
	Job        *Job
	Clone      *Job
	ReopenedBy int64
	At         time.Time
}

// Mail is one templated email.
type Mail struct {
	ToEmail  string         `json:"to_email"`
	ToName   string         `json:"to_name"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

// Mailer delivers templated email.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// Sound selects the push sound profile.
type Sound string

const (
	SoundNormal    Sound = "normal"
	SoundEmergency Sound = "emergency"
	SoundDefault   Sound = "default"
)

// Push is one batched push notification.
type Push struct {
	JobID            int64             `json:"job_id"`
	Recipients       []string          `json:"recipients"`
	Message          string            `json:"message"`
	Data             map[string]string `json:"data"`
	Sound            Sound             `json:"sound"`
	SendAfter        *time.Time        `json:"send_after,omitempty"`
	NotificationType string            `json:"notification_type"`
}

// Pusher delivers a push batch and returns the provider's raw response.
type Pusher interface {
	Push(ctx context.Context, p Push) (string, error)
}

// SMSSender delivers a single text message and returns the provider status.
type SMSSender interface {
	Send(ctx context.Context, from, to, message string) (string, error)
}

// Clock is the business clock.
type Clock interface {
	Now() time.Time
	IsNightTime(t time.Time) bool
	NextBusinessTime(t time.Time) time.Time
}

// Notifier is the asynchronous notification boundary. excludeUserID 0 excludes nobody.
type Notifier interface {
	SuitableJob(ctx context.Context, jobID, excludeUserID int64) error
	JobAccepted(ctx context.Context, jobID int64) error
	JobCancelled(ctx context.Context, jobID, userID int64) error
	SessionReminder(ctx context.Context, jobID, translatorID int64) error
	JobExpired(ctx context.Context, jobID int64) error
}

// EventSink receives one event per operation.
type EventSink interface {
	Emit(ctx context.Context, e Event)
}
