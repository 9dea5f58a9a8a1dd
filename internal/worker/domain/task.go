package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Task is one queued notification for the worker to run.
type Task struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	JobID      int64     `json:"job_id"`
	UserID     int64     `json:"user_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTask stamps a fresh task id.
func NewTask(kind string, jobID, userID int64, at time.Time) *Task {
	return &Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		JobID:      jobID,
		UserID:     userID,
		EnqueuedAt: at,
	}
}

// ParseTask decodes and validates a message body. Every failure wraps ErrInvalidPayload.
func ParseTask(body []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := uuid.Parse(t.ID); err != nil {
		return nil, fmt.Errorf("%w: id %q is not a UUID", ErrInvalidPayload, t.ID)
	}
	if _, ok := knownKinds[t.Kind]; !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPayload, t.Kind)
	}
	if t.JobID <= 0 {
		return nil, fmt.Errorf("%w: missing job_id", ErrInvalidPayload)
	}
	if (t.Kind == TaskJobCancelled || t.Kind == TaskSessionReminder) && t.UserID <= 0 {
		return nil, fmt.Errorf("%w: %s needs user_id", ErrInvalidPayload, t.Kind)
	}
	return &t, nil
}

// TaskMessage is a parsed task together with the delivery to ack.
type TaskMessage struct {
	Task     *Task
	Delivery amqp.Delivery
}
