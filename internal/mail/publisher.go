// Package mail queues outbound email on the message bus for the mail service.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/booking-dispatch/internal/booking"
)

// Broker is the publishing side of the message bus
type Broker interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

var _ booking.Mailer = (*Publisher)(nil)

// Envelope is the message put on the mail queue
type Envelope struct {
	ID       string       `json:"id"`
	Mail     booking.Mail `json:"mail"`
	QueuedAt time.Time    `json:"queued_at"`
}

// Publisher is a booking.Mailer backed by RabbitMQ
type Publisher struct {
	bus        Broker
	routingKey string
	now        func() time.Time
	logger     *slog.Logger
}

// NewPublisher creates a mail publisher
func NewPublisher(bus Broker, routingKey string, logger *slog.Logger) *Publisher {
	return &Publisher{
		bus:        bus,
		routingKey: routingKey,
		now:        time.Now,
		logger:     logger,
	}
}

// Send queues m. An empty recipient is rejected before publishing.
func (p *Publisher) Send(ctx context.Context, m booking.Mail) error {
	if m.ToEmail == "" {
		return fmt.Errorf("mail %q: empty recipient", m.Template)
	}

	env := Envelope{
		ID:       uuid.NewString(),
		Mail:     m,
		QueuedAt: p.now().UTC(),
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal mail: %w", err)
	}

	if err := p.bus.PublishWithRetry(ctx, p.routingKey, body, "application/json"); err != nil {
		return fmt.Errorf("failed to queue mail %q: %w", m.Template, err)
	}

	p.logger.Info("Mail queued",
		slog.String("mail_id", env.ID),
		slog.String("template", m.Template),
		slog.String("to", m.ToEmail),
	)
	return nil
}
