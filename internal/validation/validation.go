// Package validation holds the error kinds raised by the calculation engine.
// Every kind is recoverable: the editing layer corrects the input and retries.
package validation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRate is returned for a tax, markup or percentage outside [0,100].
	ErrInvalidRate = errors.New("rate out of range")
	// ErrInvalidQuantity is returned for a negative quantity.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidValue is returned for a negative or otherwise malformed numeric input.
	ErrInvalidValue = errors.New("invalid value")
	// ErrPhaseOverflow is returned when billing phases would sum over 100%.
	ErrPhaseOverflow = errors.New("billing phases exceed 100%")
	// ErrMissingBase is returned when a category scoped rule has nothing to apply to.
	ErrMissingBase = errors.New("missing base")
	// ErrUnknownCategory is returned for a category outside the closed set.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidTransition is returned for a lifecycle move the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrLocked is returned when editing something that is no longer a draft.
	ErrLocked = errors.New("locked")
)

// Error wraps one of the sentinel kinds with the offending field.
type Error struct {
	Err     error
	Field   string
	Details string
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}

	if e.Details != "" {
		msg += ": " + e.Details
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error for field with a formatted detail message.
func New(kind error, field, format string, args ...any) error {
	return &Error{Err: kind, Field: field, Details: fmt.Sprintf(format, args...)}
}
