package chat

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed chat request.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err rejects the request itself.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// SessionNotFoundError is returned when closing an unknown session.
type SessionNotFoundError struct{ ID string }

func (e *SessionNotFoundError) Error() string { return "session not found: " + e.ID }

// IsSessionNotFound reports whether err names an unknown session.
func IsSessionNotFound(err error) bool {
	var e *SessionNotFoundError
	return errors.As(err, &e)
}
