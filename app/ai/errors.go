package ai

import (
	"fmt"
	"net/http"

	"github.com/lysyi3m/rss-digest/app/apperr"
)

type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindTransient ErrorKind = "transient"
	KindRejected  ErrorKind = "rejected"
	KindTimeout   ErrorKind = "timeout"
)

// Error is returned by every failed call to the AI service.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("ai request: %s", e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: http %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case apperr.ErrAIAuth:
		return e.Kind == KindAuth
	case apperr.ErrAIRejected:
		return e.Kind == KindAuth || e.Kind == KindRejected
	case apperr.ErrTransient:
		return e.Kind == KindTransient
	case apperr.ErrTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// KindForStatus maps an HTTP status from the AI service to an error kind.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return KindTransient
	default:
		return KindRejected
	}
}
