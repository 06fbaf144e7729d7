package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrValidation indicates a request failed field validation.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated occurs when a request carries no bound user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
