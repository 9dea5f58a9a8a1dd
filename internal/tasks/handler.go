package tasks

import (
	"context"
	"fmt"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/worker/domain"
)

// Handler runs queued tasks against a booking.Notifier, normally the
// in-process booking.Dispatcher.
type Handler struct {
	notifier booking.Notifier
}

// NewHandler creates a task handler
func NewHandler(notifier booking.Notifier) *Handler {
	return &Handler{notifier: notifier}
}

// Execute implements worker.Executor
func (h *Handler) Execute(ctx context.Context, task *domain.Task) error {
	switch task.Kind {
	case domain.TaskSuitableJob:
		return h.notifier.SuitableJob(ctx, task.JobID, task.UserID)
	case domain.TaskJobAccepted:
		return h.notifier.JobAccepted(ctx, task.JobID)
	case domain.TaskJobCancelled:
		return h.notifier.JobCancelled(ctx, task.JobID, task.UserID)
	case domain.TaskSessionReminder:
		return h.notifier.SessionReminder(ctx, task.JobID, task.UserID)
	case domain.TaskJobExpired:
		return h.notifier.JobExpired(ctx, task.JobID)
	default:
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidPayload, task.Kind)
	}
}
