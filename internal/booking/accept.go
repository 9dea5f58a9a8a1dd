package booking

import (
	"context"
	"errors"
	"fmt"
)

// AcceptData is returned by Accept.
type AcceptData struct {
	Job           *Job   `json:"job"`
	PotentialJobs []*Job `json:"potential_jobs"`
}

// Accept lets a translator take a pending job.
func (s *Service) Accept(ctx context.Context, actor Actor, jobID int64) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventAccepted, From: StatusPending, To: StatusAssigned, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, translator, err := s.accept(ctx, actor, jobID, acceptMessages{
		booked: func(*Job) string { return "Du har redan en bokning den tiden! Bokningen är inte accepterad." },
		taken:  func(*Job, string) string { return "Denna bokning är redan accepterad av en annan tolk." },
	})
	if err != nil {
		return nil, err
	}

	potential, err := s.matcher.PotentialJobs(ctx, translator)
	if err != nil {
		return nil, err
	}
	res = success("", AcceptData{Job: job, PotentialJobs: potential})
	s.notifyAccepted(ctx, res, job, translator, false)
	return res, nil
}

// AcceptByID is the accept path used from notification links.
func (s *Service) AcceptByID(ctx context.Context, actor Actor, jobID int64) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventAccepted, From: StatusPending, To: StatusAssigned, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, translator, err := s.accept(ctx, actor, jobID, acceptMessages{
		booked: func(job *Job) string {
			return fmt.Sprintf("Du har redan en bokning den tiden %s. Du har inte fått denna tolkning", dueText(job.Due))
		},
		taken: func(job *Job, language string) string {
			return fmt.Sprintf("Denna %stolkning %dmin %s har redan accepterats av annan tolk. Du har inte fått denna tolkning",
				language, job.Duration, dueText(job.Due))
		},
	})
	if err != nil {
		return nil, err
	}

	language := s.language(ctx, job.FromLanguageID)
	res = success(fmt.Sprintf("Du har nu accepterat och fått bokningen för %stolk %dmin %s",
		language, job.Duration, dueText(job.Due)), job)
	s.notifyAccepted(ctx, res, job, translator, true)
	return res, nil
}

type acceptMessages struct {
	booked func(job *Job) string
	taken  func(job *Job, language string) string
}

func (s *Service) accept(ctx context.Context, actor Actor, jobID int64, msgs acceptMessages) (*Job, *User, error) {
	if actor.Role != RoleTranslator {
		return nil, nil, validationError("user", "Only translators can accept bookings")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}
	translator, err := s.loadUser(ctx, actor.UserID, "Translator")
	if err != nil {
		return nil, nil, err
	}

	if job.Status != StatusPending {
		return nil, nil, newError(ErrAlreadyAssigned, msgs.taken(job, s.language(ctx, job.FromLanguageID)))
	}

	offer, err := s.matcher.Offer(ctx, job)
	if err != nil {
		return nil, nil, err
	}
	if !IsEligible(offer, translator) {
		return nil, nil, newError(ErrInvalidTransition, "Du är inte behörig att acceptera denna bokning")
	}

	accepted, err := s.repo.AcceptJob(ctx, job.ID, translator.ID, s.clock.Now())
	switch {
	case err == nil:
		return accepted, translator, nil
	case errors.Is(err, ErrAlreadyBooked):
		return nil, nil, newError(ErrAlreadyBooked, msgs.booked(job))
	case errors.Is(err, ErrAlreadyAssigned):
		return nil, nil, newError(ErrAlreadyAssigned, msgs.taken(job, s.language(ctx, job.FromLanguageID)))
	case errors.Is(err, ErrNotFound):
		return nil, nil, notFound("Job")
	default:
		return nil, nil, internal("accept job", err)
	}
}

func (s *Service) notifyAccepted(ctx context.Context, res *Result, job *Job, translator *User, pushCustomer bool) {
	customer, err := s.loadUser(ctx, job.UserID, "Customer")
	if err != nil {
		res.notice(notificationFailure("email", err))
	} else {
		s.mail(ctx, res, Mail{
			ToEmail:  contactEmail(job, customer),
			ToName:   customer.Name,
			Subject:  subjectAccepted(job.ID),
			Template: TemplateJobAccepted,
			Data:     map[string]any{"user": customer, "job": job},
		})
	}

	s.mail(ctx, res, Mail{
		ToEmail:  translator.Email,
		ToName:   translator.Name,
		Subject:  subjectAcceptedTranslator(job.ID),
		Template: TemplateJobAcceptedTranslator,
		Data:     map[string]any{"user": translator, "job": job},
	})

	s.notify(ctx, res, NotificationSessionReminder, job.ID, func(ctx context.Context) error {
		return s.notifier.SessionReminder(ctx, job.ID, translator.ID)
	})
	if pushCustomer {
		s.notify(ctx, res, NotificationJobAccepted, job.ID, func(ctx context.Context) error {
			return s.notifier.JobAccepted(ctx, job.ID)
		})
	}
}
