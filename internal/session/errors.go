package session

import "errors"

// ValidationError rejects a trigger before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid script: " + e.Reason
}

var (
	// ErrEmptyScript is returned by Submit for empty or whitespace-only text.
	ErrEmptyScript = &ValidationError{Reason: "script is empty"}

	// ErrBusy is returned when a trigger arrives while an exchange is in flight.
	ErrBusy = errors.New("a script exchange is already in flight")

	// ErrInvalidTrigger is returned when a trigger does not apply to the current mode.
	ErrInvalidTrigger = errors.New("trigger not allowed in the current mode")
)
