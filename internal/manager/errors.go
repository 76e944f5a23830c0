package manager

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a manager after Close.
var ErrClosed = errors.New("manager closed")

// LoadFailedError wraps a backend failure to load weights. Nothing is
// registered for Name after it is returned; a later call retries.
type LoadFailedError struct {
	Name string
	Err  error
}

func (e *LoadFailedError) Error() string { return fmt.Sprintf("load %s: %v", e.Name, e.Err) }
func (e *LoadFailedError) Unwrap() error { return e.Err }

// IsLoadFailed reports whether err is a load failure.
func IsLoadFailed(err error) bool {
	var e *LoadFailedError
	return errors.As(err, &e)
}

// NotReadyError is returned when no active model has been selected.
type NotReadyError struct{}

func (NotReadyError) Error() string { return "no active model selected" }

// IsNotReady reports whether err indicates a missing active model.
func IsNotReady(err error) bool {
	var e NotReadyError
	return errors.As(err, &e)
}

// InUseError is returned by Unload while leases are outstanding.
type InUseError struct {
	Name     string
	InFlight int64
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("model %s is in use (%d in flight)", e.Name, e.InFlight)
}

// IsInUse reports whether err is an unload rejection due to in-flight work.
func IsInUse(err error) bool {
	var e *InUseError
	return errors.As(err, &e)
}

// ProtectedError is returned by Unload for the active model.
type ProtectedError struct{ Name string }

func (e *ProtectedError) Error() string {
	return fmt.Sprintf("model %s is active and cannot be unloaded", e.Name)
}

// IsProtected reports whether err rejects unloading the active model.
func IsProtected(err error) bool {
	var e *ProtectedError
	return errors.As(err, &e)
}

// TooBusyError signals queue timeout/overflow for 429 mapping.
type TooBusyError struct{ Name string }

func (e *TooBusyError) Error() string { return "too busy: " + e.Name }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e *TooBusyError
	return errors.As(err, &e)
}

// DependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type DependencyUnavailableError struct{ Msg string }

func (e DependencyUnavailableError) Error() string { return e.Msg }

// ErrDependencyUnavailable constructs a DependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return DependencyUnavailableError{Msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e DependencyUnavailableError
	return errors.As(err, &e)
}

var errNilModel = errors.New("backend returned no model")
