package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a request field is missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyBooked is returned when the translator holds an overlapping assignment
	ErrAlreadyBooked = errors.New("translator already booked at that time")

	// ErrAlreadyAssigned is returned when the job was taken or is no longer pending
	ErrAlreadyAssigned = errors.New("job already assigned")

	// ErrInvalidTransition is returned when the status table forbids the change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrTooLateToCancel is returned when a translator cancels within 24 hours of due
	ErrTooLateToCancel = errors.New("too late to cancel")

	// ErrNotFound is returned when a job or user does not exist
	ErrNotFound = errors.New("not found")

	// ErrNotificationFailure marks a best-effort email, push or SMS send that failed
	ErrNotificationFailure = errors.New("notification failure")
)

// Error carries a sentinel kind together with the message shown to the caller
// and, for validation failures, the offending field.
type Error struct {
	Err     error
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Err.Error()
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func newError(kind error, msg string) *Error {
	return &Error{Err: kind, Message: msg}
}

func validationError(field, msg string) *Error {
	return &Error{Err: ErrValidation, Message: msg, Field: field}
}

func notFound(what string) *Error {
	return &Error{Err: ErrNotFound, Message: what + " not found"}
}

func invalidTransition(from, to Status) *Error {
	return &Error{
		Err:     ErrInvalidTransition,
		Message: fmt.Sprintf("cannot move job from %s to %s", from, to),
	}
}

func notificationFailure(channel string, err error) *Error {
	return &Error{Err: ErrNotificationFailure, Message: channel + " notification failed", Cause: err}
}

// internal wraps an infrastructure error so it stays distinguishable from the taxonomy.
func internal(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// kindOf maps repository sentinels onto a booking error, leaving unknown errors wrapped.
func kindOf(op string, err error) error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	for _, kind := range []error{ErrNotFound, ErrAlreadyAssigned, ErrAlreadyBooked, ErrInvalidTransition} {
		if errors.Is(err, kind) {
			return &Error{Err: kind, Message: kind.Error()}
		}
	}
	return internal(op, err)
}
