package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

// pq code for unique_violation; the partial index on translator_job_rel
// raises it when a second active row is inserted for a job.
const uniqueViolation = "23505"

// AcceptJob runs the acceptance race as one transaction: lock the translator,
// check the schedule, then claim the job with a compare-and-swap on status.
func (r *Repository) AcceptJob(ctx context.Context, jobID, translatorID int64, at time.Time) (*booking.Job, error) {
	var accepted *booking.Job

	err := r.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		var lockedID int64
		if err := tx.GetContext(ctx, &lockedID, "SELECT id FROM users WHERE id = $1 FOR UPDATE", translatorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("user %d: %w", translatorID, booking.ErrNotFound)
			}
			return fmt.Errorf("failed to lock translator: %w", err)
		}

		job, err := getJob(ctx, tx, jobID)
		if err != nil {
			return err
		}

		busy, err := translatorBusy(ctx, tx, translatorID, job.Due, job.End(), jobID)
		if err != nil {
			return err
		}
		if busy {
			return booking.ErrAlreadyBooked
		}

		result, err := tx.ExecContext(ctx,
			"UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
			booking.StatusAssigned, at, jobID, booking.StatusPending,
		)
		if err != nil {
			return fmt.Errorf("failed to claim job: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return booking.ErrAlreadyAssigned
		}

		if _, err := insertAssignment(ctx, tx, jobID, translatorID, at, nil); err != nil {
			return err
		}

		job.Status = booking.StatusAssigned
		job.UpdatedAt = at
		accepted = job
		return nil
	})
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyAssigned) || errors.Is(err, booking.ErrAlreadyBooked) {
			r.logger.Warn("Failed to accept job",
				slog.Int64("job_id", jobID),
				slog.Int64("translator_id", translatorID),
				slog.Any("error", err),
			)
		}
		return nil, err
	}

	r.logger.Info("Job accepted",
		slog.Int64("job_id", jobID),
		slog.Int64("translator_id", translatorID),
	)
	return accepted, nil
}

// TransitionJob writes job under a row lock when the stored status still
// equals from, and applies change to the active assignment.
func (r *Repository) TransitionJob(ctx context.Context, job *booking.Job, from booking.Status, change booking.AssignmentChange) error {
	return r.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := lockJob(ctx, tx, job.ID)
		if err != nil {
			return err
		}
		if current != from {
			return booking.ErrInvalidTransition
		}

		switch change.Action {
		case booking.AssignmentCancel:
			if err := cancelActive(ctx, tx, job.ID, change.At); err != nil {
				return err
			}
		case booking.AssignmentComplete:
			var completedBy sql.NullInt64
			if change.CompletedBy != 0 {
				completedBy = sql.NullInt64{Int64: change.CompletedBy, Valid: true}
			}
			_, err := tx.ExecContext(ctx,
				"UPDATE translator_job_rel SET completed_at = $2, completed_by = COALESCE($3, user_id) WHERE job_id = $1 AND "+activeAssignment,
				job.ID, change.At, completedBy,
			)
			if err != nil {
				return fmt.Errorf("failed to complete assignment: %w", err)
			}
		case booking.AssignmentReassign:
			if err := cancelActive(ctx, tx, job.ID, change.At); err != nil {
				return err
			}
			if _, err := insertAssignment(ctx, tx, job.ID, change.TranslatorID, change.At, nil); err != nil {
				return err
			}
		}

		return updateJob(ctx, tx, job)
	})
}

func (r *Repository) ReopenJob(ctx context.Context, req booking.ReopenRequest) (*booking.Job, error) {
	var reopened *booking.Job

	err := r.client.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := lockJob(ctx, tx, req.Job.ID); err != nil {
			return err
		}

		if req.Clone != nil {
			created, err := insertJob(ctx, tx, req.Clone)
			if err != nil {
				return err
			}
			reopened = created
		} else {
			job := req.Job
			if _, err := tx.ExecContext(ctx,
				"UPDATE jobs SET status = $2, created_at = $3, updated_at = $4, will_expire_at = $5 WHERE id = $1",
				job.ID, job.Status, job.CreatedAt, job.UpdatedAt, job.WillExpireAt,
			); err != nil {
				return fmt.Errorf("failed to reopen job: %w", err)
			}
			fresh, err := getJob(ctx, tx, job.ID)
			if err != nil {
				return err
			}
			reopened = fresh
		}

		if err := cancelActive(ctx, tx, req.Job.ID, req.At); err != nil {
			return err
		}
		cancelAt := req.At
		_, err := insertAssignment(ctx, tx, req.Job.ID, req.ReopenedBy, req.At, &cancelAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Job reopened",
		slog.Int64("job_id", req.Job.ID),
		slog.Int64("reopened_job_id", reopened.ID),
		slog.Int64("reopened_by", req.ReopenedBy),
	)
	return reopened, nil
}

func lockJob(ctx context.Context, tx *sqlx.Tx, jobID int64) (booking.Status, error) {
	var status booking.Status
	if err := tx.GetContext(ctx, &status, "SELECT status FROM jobs WHERE id = $1 FOR UPDATE", jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("job %d: %w", jobID, booking.ErrNotFound)
		}
		return "", fmt.Errorf("failed to lock job: %w", err)
	}
	return status, nil
}

func cancelActive(ctx context.Context, tx *sqlx.Tx, jobID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE translator_job_rel SET cancel_at = $2 WHERE job_id = $1 AND "+activeAssignment,
		jobID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel assignment: %w", err)
	}
	return nil
}

func insertAssignment(ctx context.Context, tx *sqlx.Tx, jobID, userID int64, at time.Time, cancelAt *time.Time) (int64, error) {
	var id int64
	err := tx.GetContext(ctx, &id,
		"INSERT INTO translator_job_rel (job_id, user_id, created_at, cancel_at) VALUES ($1, $2, $3, $4) RETURNING id",
		jobID, userID, at, cancelAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, booking.ErrAlreadyAssigned
		}
		return 0, fmt.Errorf("failed to insert assignment: %w", err)
	}
	return id, nil
}
