package shared

import "errors"

var (
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrDuplicateSubmit is returned when the same form is submitted twice
	// while the first submission is still within its guard window.
	ErrDuplicateSubmit = errors.New("duplicate submission")
)
