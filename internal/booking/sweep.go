package booking

import (
	"context"
	"errors"
	"log/slog"
)

// ExpireStale times out pending jobs whose will_expire_at has passed and
// tells their customers. It returns how many jobs it expired.
func (s *Service) ExpireStale(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	jobs, err := s.repo.ExpiredPendingJobs(ctx, now, limit)
	if err != nil {
		return 0, internal("list expired jobs", err)
	}

	expired := 0
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		updated := job.Clone()
		updated.Status = StatusTimedOut
		updated.UpdatedAt = now
		err := s.repo.TransitionJob(ctx, updated, StatusPending, AssignmentChange{At: now})
		s.emit(ctx, Event{JobID: job.ID, Kind: EventExpired, From: StatusPending, To: StatusTimedOut, Actor: SystemActor}, err)
		if err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				// accepted or cancelled since it was listed
				continue
			}
			return expired, internal("expire job", err)
		}
		expired++

		if err := s.notifier.JobExpired(ctx, job.ID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to notify customer of expired booking",
				slog.Int64("job_id", job.ID),
				slog.Any("error", err),
			)
		}
	}
	return expired, nil
}
