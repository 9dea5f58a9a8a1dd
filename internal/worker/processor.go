package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/worker/domain"
)

// processTask claims, runs and records a single task. The returned error
// drives the ack decision in handleMessage.
func (w *Worker) processTask(ctx context.Context, msg *domain.TaskMessage) error {
	task := msg.Task
	log := w.logger.With(
		slog.String("task_id", task.ID),
		slog.String("kind", task.Kind),
		slog.Int64("job_id", task.JobID),
	)

	if err := w.storage.ClaimTask(ctx, task.ID, w.workerID); err != nil {
		if errors.Is(err, domain.ErrTaskAlreadyClaimed) {
			return err
		}
		// redis hiccup, let the broker hand it out again
		return domain.NewRetryableError(fmt.Errorf("failed to claim task: %w", err))
	}

	taskCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	heartbeatDone := make(chan struct{})
	go w.sendTaskHeartbeat(taskCtx, task.ID, heartbeatDone)
	defer close(heartbeatDone)

	started := time.Now()
	err := w.executor.Execute(taskCtx, task)
	if err == nil {
		if doneErr := w.storage.CompleteTask(ctx, task.ID); doneErr != nil {
			log.Error("Failed to mark task completed",
				slog.String("error", doneErr.Error()),
			)
		}
		log.Info("Task completed",
			slog.Duration("took", time.Since(started)),
		)
		return nil
	}

	if !retryable(err) {
		// permanent failure, keep the claim so duplicates are dropped too
		if doneErr := w.storage.CompleteTask(ctx, task.ID); doneErr != nil {
			log.Error("Failed to mark task completed",
				slog.String("error", doneErr.Error()),
			)
		}
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}

	if msg.Delivery.Redelivered {
		log.Warn("Task failed after redelivery",
			slog.String("error", err.Error()),
		)
		if doneErr := w.storage.CompleteTask(ctx, task.ID); doneErr != nil {
			log.Error("Failed to mark task completed",
				slog.String("error", doneErr.Error()),
			)
		}
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}

	if relErr := w.storage.ReleaseTask(ctx, task.ID); relErr != nil {
		log.Error("Failed to release task claim",
			slog.String("error", relErr.Error()),
		)
	}
	return domain.NewRetryableError(fmt.Errorf("task execution failed: %w", err))
}

// retryable reports whether another attempt could succeed. Missing records
// and provider failures are final.
func retryable(err error) bool {
	switch {
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, booking.ErrNotificationFailure),
		errors.Is(err, booking.ErrValidation),
		errors.Is(err, domain.ErrInvalidPayload):
		return false
	}
	return true
}

// sendTaskHeartbeat periodically extends the task claim
func (w *Worker) sendTaskHeartbeat(ctx context.Context, taskID string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.storage.UpdateTaskHeartbeat(ctx, taskID); err != nil {
				w.logger.Warn("Failed to update task heartbeat",
					slog.String("task_id", taskID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
