package booking

import (
	"context"
	"fmt"
)

// Reopen puts a job back into bidding. A timed out job is cloned into a new
// booking; anything else is reset in place.
func (s *Service) Reopen(ctx context.Context, actor Actor, jobID int64) (res *Result, err error) {
	e := Event{JobID: jobID, Kind: EventReopened, To: StatusPending, Actor: actor}
	defer func() { s.emit(ctx, e, err) }()

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	e.From = job.Status

	if !actor.Role.IsAdmin() && !(actor.Role == RoleCustomer && actor.UserID == job.UserID) {
		return nil, validationError("user", "You can only reopen your own bookings")
	}

	now := s.clock.Now()
	req := ReopenRequest{Job: job, ReopenedBy: actor.UserID, At: now}

	if job.Status == StatusTimedOut {
		clone := job.Clone()
		clone.ID = 0
		clone.Status = StatusPending
		clone.CreatedAt = now
		clone.UpdatedAt = now
		clone.WillExpireAt = WillExpireAt(clone.Due, now)
		clone.Cust16HourEmail = false
		clone.Cust48HourEmail = false
		clone.AdminComments = fmt.Sprintf(reopenCommentFormat, job.ID)
		clone.EndAt = nil
		clone.WithdrawAt = nil
		clone.SessionTime = ""
		req.Clone = clone
	} else {
		updated := job.Clone()
		updated.Status = StatusPending
		updated.CreatedAt = now
		updated.UpdatedAt = now
		updated.WillExpireAt = WillExpireAt(updated.Due, now)
		req.Job = updated
	}

	reopened, err := s.repo.ReopenJob(ctx, req)
	if err != nil {
		return nil, kindOf("reopen job", err)
	}

	res = success("Tolk cancelled!", reopened)
	s.notify(ctx, res, NotificationSuitableJob, reopened.ID, func(ctx context.Context) error {
		return s.notifier.SuitableJob(ctx, reopened.ID, 0)
	})
	return res, nil
}
