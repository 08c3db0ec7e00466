package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging across the console.
const (
	FieldService   = "service"
	FieldUserID    = "user_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldRequestID = "request_id"
	FieldAttempt   = "attempt"
	FieldOutcome   = "outcome"
	FieldBackend   = "backend"
	FieldExpiresAt = "expires_at"
)

// Service returns a slog attribute for the component name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// UserID returns a slog attribute for the user ID.
func UserID(id int64) slog.Attr {
	return slog.Int64(FieldUserID, id)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// RequestID returns a slog attribute for a request ID.
func RequestID(id string) slog.Attr {
	return slog.String(FieldRequestID, id)
}

// Attempt returns a slog attribute for the dispatch attempt number (1-based).
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}

// Outcome returns a slog attribute for an operation outcome.
func Outcome(outcome string) slog.Attr {
	return slog.String(FieldOutcome, outcome)
}

// Backend returns a slog attribute for the session storage backend.
func Backend(name string) slog.Attr {
	return slog.String(FieldBackend, name)
}

// ExpiresAt returns a slog attribute for a token expiry.
func ExpiresAt(t time.Time) slog.Attr {
	return slog.Time(FieldExpiresAt, t)
}
