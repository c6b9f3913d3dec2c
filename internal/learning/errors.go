package learning

import "errors"

// Error taxonomy for the content pipeline. Transport and resolver errors wrap
// one of these so callers can branch with errors.Is.
var (
	// ErrAuthRequired means no credential was available; the request was not issued.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNotFound is the benign "nothing there yet" outcome.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the remote already holds the resource being created.
	ErrConflict = errors.New("already exists")
	// ErrTransient covers connectivity and server failures worth retrying.
	ErrTransient = errors.New("transient network failure")
	// ErrValidation marks a malformed payload from an upstream service.
	ErrValidation = errors.New("invalid upstream payload")
)

// Retryable reports whether err should be surfaced with a retry affordance.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
