package domain

import "errors"

var (
	// ErrTaskAlreadyClaimed is returned when another delivery of the task was already taken
	ErrTaskAlreadyClaimed = errors.New("task already claimed")

	// ErrInvalidPayload is returned when the message body is not a valid task
	ErrInvalidPayload = errors.New("invalid task payload")

	// ErrMaxRetriesExceeded is returned when a redelivered task fails again
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
