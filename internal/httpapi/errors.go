package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"sessiond/internal/manager"
	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case manager.IsSessionNotFound(err), manager.IsModelNotFound(err):
		return http.StatusNotFound
	case manager.IsTooBusy(err):
		return http.StatusTooManyRequests
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case session.IsInvalidState(err):
		return http.StatusConflict
	case session.IsContextTooSmall(err), session.IsTokenization(err):
		return http.StatusUnprocessableEntity
	case session.IsModelLoad(err):
		return http.StatusBadRequest
	default:
		// decode, internal and anything unknown
		return http.StatusInternalServerError
	}
}

// writeError maps err and writes it as JSON.
func writeError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("sessions")
	}
	writeJSONError(w, status, err.Error())
	return status
}
