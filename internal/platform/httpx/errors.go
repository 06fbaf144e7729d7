// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/taskkeeper/taskkeeper/internal/shared"
)

// StatusFor maps shared errors to HTTP status codes. Unknown errors are 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrCSRFTokenMissing),
		errors.Is(err, shared.ErrCSRFTokenMismatch):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	RespondErrorWithStatus(w, StatusFor(err), err)
}

// RespondErrorWithStatus writes err as a problem document. Server errors carry no detail.
func RespondErrorWithStatus(w http.ResponseWriter, status int, err error) {
	detail := ""
	if status < http.StatusInternalServerError && err != nil {
		detail = err.Error()
	}
	Problem(w, status, http.StatusText(status), detail)
}
