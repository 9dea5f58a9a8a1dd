// Package tasks carries notification work between the API and the worker.
// The Publisher turns booking.Notifier calls into queued tasks and the
// Handler replays them against the in-process dispatcher.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
	"github.com/cuongbtq/booking-dispatch/internal/worker/domain"
)

// Broker is the publishing side of the message bus
type Broker interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

var _ booking.Notifier = (*Publisher)(nil)

// Publisher enqueues notification tasks
type Publisher struct {
	clock      booking.Clock
	bus        Broker
	routingKey string
	logger     *slog.Logger
}

// NewPublisher creates a task publisher. clock stamps EnqueuedAt.
func NewPublisher(bus Broker, routingKey string, clock booking.Clock, logger *slog.Logger) *Publisher {
	return &Publisher{
		clock:      clock,
		bus:        bus,
		routingKey: routingKey,
		logger:     logger,
	}
}

func (p *Publisher) SuitableJob(ctx context.Context, jobID, excludeUserID int64) error {
	return p.publish(ctx, domain.TaskSuitableJob, jobID, excludeUserID)
}

func (p *Publisher) JobAccepted(ctx context.Context, jobID int64) error {
	return p.publish(ctx, domain.TaskJobAccepted, jobID, 0)
}

func (p *Publisher) JobCancelled(ctx context.Context, jobID, userID int64) error {
	return p.publish(ctx, domain.TaskJobCancelled, jobID, userID)
}

func (p *Publisher) SessionReminder(ctx context.Context, jobID, translatorID int64) error {
	return p.publish(ctx, domain.TaskSessionReminder, jobID, translatorID)
}

func (p *Publisher) JobExpired(ctx context.Context, jobID int64) error {
	return p.publish(ctx, domain.TaskJobExpired, jobID, 0)
}

func (p *Publisher) publish(ctx context.Context, kind string, jobID, userID int64) error {
	task := domain.NewTask(kind, jobID, userID, p.now())

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if err := p.bus.PublishWithRetry(ctx, p.routingKey, body, "application/json"); err != nil {
		p.logger.Error("Failed to publish task",
			slog.String("task_id", task.ID),
			slog.String("kind", kind),
			slog.Int64("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to publish %s task: %w", kind, err)
	}

	p.logger.Info("Task published",
		slog.String("task_id", task.ID),
		slog.String("kind", kind),
		slog.Int64("job_id", jobID),
	)
	return nil
}

func (p *Publisher) now() time.Time {
	if p.clock == nil {
		return time.Now()
	}
	return p.clock.Now()
}
