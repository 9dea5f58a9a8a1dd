package booking

import (
	"context"
	"time"
)

// Cancel withdraws a job. Customers and admins withdraw the booking; the
// assigned translator hands it back to pending for someone else.
func (s *Service) Cancel(ctx context.Context, actor Actor, jobID int64) (*Result, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		s.emit(ctx, Event{JobID: jobID, Kind: EventCanceled, Actor: actor}, err)
		return nil, err
	}

	if actor.Role == RoleTranslator {
		return s.cancelByTranslator(ctx, actor, job)
	}
	return s.cancelByCustomer(ctx, actor, job)
}

func (s *Service) cancelByCustomer(ctx context.Context, actor Actor, job *Job) (res *Result, err error) {
	from := job.Status
	now := s.clock.Now()

	to := StatusWithdrawAfter24
	if job.Due.Sub(now) >= 24*time.Hour {
		to = StatusWithdrawBefore24
	}

	e := Event{JobID: job.ID, Kind: EventCanceled, From: from, To: to, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	if actor.Role == RoleCustomer && actor.UserID != job.UserID {
		return nil, validationError("user", "You can only cancel your own bookings")
	}
	if !CanTransition(from, to) {
		return nil, invalidTransition(from, to)
	}

	active, err := s.activeAssignment(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	updated := job.Clone()
	updated.Status = to
	updated.WithdrawAt = &now
	updated.UpdatedAt = now
	if err := s.repo.TransitionJob(ctx, updated, from, AssignmentChange{Action: AssignmentCancel, At: now}); err != nil {
		return nil, kindOf("cancel job", err)
	}

	res = success("Bokningen är avbokad", updated)
	if active != nil {
		e.RecipientID = active.UserID
		s.notify(ctx, res, NotificationJobCancelled, job.ID, func(ctx context.Context) error {
			return s.notifier.JobCancelled(ctx, job.ID, active.UserID)
		})
	}
	return res, nil
}

func (s *Service) cancelByTranslator(ctx context.Context, actor Actor, job *Job) (res *Result, err error) {
	from := job.Status
	now := s.clock.Now()

	e := Event{JobID: job.ID, Kind: EventReopened, From: from, To: StatusPending, Actor: actor, RecipientID: job.UserID}
	defer func() { s.emit(ctx, e, err) }()

	if !CanTransition(from, StatusPending) {
		return nil, invalidTransition(from, StatusPending)
	}
	active, err := s.activeAssignment(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if active == nil || active.UserID != actor.UserID {
		return nil, newError(ErrInvalidTransition, "You are not assigned to this booking")
	}
	if job.Due.Sub(now) <= 24*time.Hour {
		return nil, newError(ErrTooLateToCancel, tooLateToCancelMessage)
	}

	updated := job.Clone()
	updated.Status = StatusPending
	updated.CreatedAt = now
	updated.UpdatedAt = now
	updated.WillExpireAt = WillExpireAt(updated.Due, now)
	if err := s.repo.TransitionJob(ctx, updated, from, AssignmentChange{Action: AssignmentCancel, At: now}); err != nil {
		return nil, kindOf("cancel assignment", err)
	}

	res = success("Bokningen är avbokad", updated)
	s.notify(ctx, res, NotificationJobCancelled, job.ID, func(ctx context.Context) error {
		return s.notifier.JobCancelled(ctx, job.ID, job.UserID)
	})
	s.notify(ctx, res, NotificationSuitableJob, job.ID, func(ctx context.Context) error {
		return s.notifier.SuitableJob(ctx, job.ID, actor.UserID)
	})
	return res, nil
}
