package core

import (
	"errors"
	"net/http"
)

// BackendError is the single error kind returned by data-access operations.
// Error() yields the backend's message unchanged.
type BackendError struct {
	Op      string // operation that failed, e.g. "list categories"
	Status  int    // HTTP status reported by the backend, 0 when unknown
	Message string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status != 0 {
		return http.StatusText(e.Status)
	}
	return "backend operation failed"
}

// NewBackendError builds a BackendError for op with the backend's message.
func NewBackendError(op string, status int, message string) *BackendError {
	return &BackendError{Op: op, Status: status, Message: message}
}

// AsBackendError reports whether err is (or wraps) a BackendError and returns it.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
