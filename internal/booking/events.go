package booking

import (
	"context"
	"log/slog"
	"time"
)

// EventKind names the operation that produced an event.
type EventKind string

const (
	EventCreated            EventKind = "job_created"
	EventAccepted           EventKind = "job_accepted"
	EventCanceled           EventKind = "job_was_canceled"
	EventReopened           EventKind = "job_reopened"
	EventSessionStarted     EventKind = "session_started"
	EventSessionEnded       EventKind = "session_ended"
	EventCustomerNoCall     EventKind = "customer_not_call"
	EventAdminEdited        EventKind = "job_admin_edited"
	EventExpired            EventKind = "job_expired"
	EventNotificationResent EventKind = "notification_resent"
	EventSMSResent          EventKind = "sms_resent"
)

// Outcomes recorded on events.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Event is the audit record of one operation, emitted on success and failure.
type Event struct {
	JobID       int64
	Kind        EventKind
	From        Status
	To          Status
	Actor       Actor
	Outcome     string
	Err         error
	RecipientID int64
	At          time.Time
}

// LogSink writes events to the booking audit log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink on the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, e Event) {
	attrs := []slog.Attr{
		slog.Int64("job_id", e.JobID),
		slog.String("kind", string(e.Kind)),
		slog.String("outcome", e.Outcome),
		slog.Int64("actor_id", e.Actor.UserID),
		slog.String("actor_role", string(e.Actor.Role)),
		slog.Time("at", e.At),
	}
	if e.From != "" {
		attrs = append(attrs, slog.String("from", string(e.From)))
	}
	if e.To != "" {
		attrs = append(attrs, slog.String("to", string(e.To)))
	}
	if e.RecipientID != 0 {
		attrs = append(attrs, slog.Int64("recipient_id", e.RecipientID))
	}

	level := slog.LevelInfo
	if e.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	s.logger.LogAttrs(ctx, level, "Booking event", attrs...)
}

// DiscardSink drops every event.
type DiscardSink struct{}

func (DiscardSink) Emit(context.Context, Event) {}
