package manager

import (
	"fmt"

	"sessiond/internal/engine"
)

// tooBusyError signals the session limit for 429 mapping.
type tooBusyError struct{ limit int }

func (e tooBusyError) Error() string { return fmt.Sprintf("too many sessions (limit %d)", e.limit) }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// ErrModelNotFound returns an error when a requested model id is not present in the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// sessionNotFoundError signals an unknown or stale session handle.
type sessionNotFoundError struct{ handle string }

func (e sessionNotFoundError) Error() string { return "session not found: " + e.handle }

// IsSessionNotFound reports whether err indicates an unknown session handle.
func IsSessionNotFound(err error) bool {
	_, ok := err.(sessionNotFoundError)
	return ok
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime
// dependency, including engine backends that are not compiled in.
func IsDependencyUnavailable(err error) bool {
	if _, ok := err.(dependencyUnavailableError); ok {
		return true
	}
	return engine.IsUnavailable(err)
}
