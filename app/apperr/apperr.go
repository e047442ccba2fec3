// Package apperr holds the error categories shared by every pipeline stage.
// Stage-specific error types report membership through an Is method so
// callers can tell the user-visible classes apart with errors.Is.
package apperr

import "errors"

var (
	ErrUnreachable     = errors.New("source unreachable")
	ErrNoUsableContent = errors.New("source returned no usable content")
	ErrAIAuth          = errors.New("AI service rejected the credentials")
	ErrAIRejected      = errors.New("AI service rejected the request")
	ErrTransient       = errors.New("temporary failure, try again")
	ErrTimeout         = errors.New("operation timed out")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("not found")
)

// Retryable reports whether err belongs to a class worth retrying later.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}
