package booking

import (
	"context"
	"strings"
	"time"
)

// ImmediateLeadTime is how far ahead an immediate booking is due.
const ImmediateLeadTime = 5 * time.Minute

// CreateJobRequest is a customer's new booking.
type CreateJobRequest struct {
	FromLanguageID       int64
	Immediate            bool
	DueDate              string // 01/02/2006
	DueTime              string // 15:04
	Duration             int
	CustomerPhoneType    bool
	CustomerPhysicalType bool
	JobFor               []string
	Town                 string
	City                 string
	UserEmail            string
	Reference            string
	ByAdmin              bool
}

var jobTypeFor = map[string]JobType{
	"rwsconsumer": JobTypeRWS,
	"ngo":         JobTypeUnpaid,
	"paid":        JobTypePaid,
}

// Create stores a new pending booking and offers it to translators.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateJobRequest) (res *Result, err error) {
	e := Event{Kind: EventCreated, To: StatusPending, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	if actor.Role != RoleCustomer {
		return nil, validationError("user", "Translator can not create booking")
	}
	customer, err := s.loadUser(ctx, actor.UserID, "Customer")
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	job, err := s.newJob(req, customer, now)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateJob(ctx, job)
	if err != nil {
		return nil, internal("create job", err)
	}
	e.JobID = created.ID

	res = success("", created)
	s.notify(ctx, res, NotificationSuitableJob, created.ID, func(ctx context.Context) error {
		return s.notifier.SuitableJob(ctx, created.ID, 0)
	})
	return res, nil
}

func (s *Service) newJob(req CreateJobRequest, customer *User, now time.Time) (*Job, error) {
	if req.FromLanguageID == 0 {
		return nil, validationError("from_language_id", "Du måste fylla in alla fält")
	}

	job := &Job{
		UserID:               customer.ID,
		FromLanguageID:       req.FromLanguageID,
		Immediate:            req.Immediate,
		Duration:             req.Duration,
		CustomerPhoneType:    req.CustomerPhoneType,
		CustomerPhysicalType: req.CustomerPhysicalType,
		Town:                 strings.TrimSpace(req.Town),
		City:                 strings.TrimSpace(req.City),
		UserEmail:            strings.TrimSpace(req.UserEmail),
		Reference:            strings.TrimSpace(req.Reference),
		ByAdmin:              req.ByAdmin,
		Status:               StatusPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if req.Immediate {
		job.Due = now.Add(ImmediateLeadTime)
		job.CustomerPhoneType = true
	} else {
		if strings.TrimSpace(req.DueDate) == "" {
			return nil, validationError("due_date", "Du måste fylla in alla fält")
		}
		if strings.TrimSpace(req.DueTime) == "" {
			return nil, validationError("due_time", "Du måste fylla in alla fält")
		}
		if !req.CustomerPhoneType && !req.CustomerPhysicalType {
			return nil, validationError("customer_phone_type", "Du måste göra ett val här")
		}

		due, err := time.ParseInLocation("01/02/2006 15:04",
			strings.TrimSpace(req.DueDate)+" "+strings.TrimSpace(req.DueTime), now.Location())
		if err != nil {
			return nil, validationError("due_date", "Ogiltigt datum eller tid")
		}
		if due.Before(now) {
			return nil, validationError("due_date", "Can't create booking in the past")
		}
		job.Due = due
	}

	if req.Duration <= 0 {
		return nil, validationError("duration", "Du måste fylla in alla fält")
	}

	job.Gender, job.Certified = jobFor(req.JobFor)

	job.JobType = JobTypePaid
	if t, ok := jobTypeFor[customer.Meta.ConsumerType]; ok {
		job.JobType = t
	}

	job.WillExpireAt = WillExpireAt(job.Due, now)
	return job, nil
}

// jobFor derives gender and certification from the job_for choices.
func jobFor(choices []string) (gender, certified string) {
	has := make(map[string]bool, len(choices))
	for _, c := range choices {
		has[strings.TrimSpace(c)] = true
	}

	switch {
	case has["male"]:
		gender = "male"
	case has["female"]:
		gender = "female"
	}

	switch {
	case has["normal"] && has["certified"]:
		certified = CertifiedBoth
	case has["normal"] && has["certified_in_law"]:
		certified = CertifiedNLaw
	case has["normal"] && has["certified_in_helth"]:
		certified = CertifiedNHealth
	case has["normal"]:
		certified = CertifiedNormal
	case has["certified"]:
		certified = CertifiedYes
	case has["certified_in_law"]:
		certified = CertifiedLaw
	case has["certified_in_helth"]:
		certified = CertifiedHealth
	}
	return gender, certified
}
