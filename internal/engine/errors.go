package engine

import "errors"

// unavailableError signals that an engine backend is not compiled in or its
// native library could not be initialised.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an engine-unavailable error.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err, or any error it wraps, indicates a
// missing engine backend.
func IsUnavailable(err error) bool {
	var ue unavailableError
	return errors.As(err, &ue)
}
