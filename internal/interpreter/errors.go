package interpreter

import "fmt"

// TransportError is a network, status or decoding failure talking to the interpreter.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AuthError is returned when the interpreter rejects a login or logout.
type AuthError struct {
	Op      string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return e.Op + " rejected"
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}
