package port

import (
	"errors"
	"fmt"
)

// Sentinel errors used across ports.
var (
	// ErrNotFound means the target record does not exist. It is not a
	// failure: delete of a missing id reports it to the caller as a
	// normal outcome.
	ErrNotFound = errors.New("record not found")

	// ErrRateLimited means the shared admission window is full. The
	// caller may retry after the window elapses.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrPoolExhausted means no connection handle became free within the
	// acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrStoreFailure is the only persistence error allowed to cross the
	// tool boundary. The underlying fault is logged with full detail and
	// replaced by this generic value.
	ErrStoreFailure = errors.New("database operation failed")
)

// ValidationError rejects malformed input before it reaches the store.
// Reason is user-visible and must not contain store internals.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Invalidf builds a ValidationError from a format string.
func Invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
