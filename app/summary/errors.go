package summary

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/apperr"
)

type Reason string

const (
	ReasonAuthFailure Reason = "auth_failure"
	ReasonTransient   Reason = "transient"
	ReasonEmptyInput  Reason = "empty_input"
	ReasonTimeout     Reason = "timeout"
	ReasonRejected    Reason = "rejected"
)

type SummarizationError struct {
	Reason Reason
	Err    error
}

func (e *SummarizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("summarization failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("summarization failed: %s", e.Reason)
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *SummarizationError) Retryable() bool {
	return e.Reason == ReasonTransient || e.Reason == ReasonTimeout
}

func (e *SummarizationError) Is(target error) bool {
	switch target {
	case apperr.ErrAIAuth:
		return e.Reason == ReasonAuthFailure
	case apperr.ErrAIRejected:
		return e.Reason == ReasonAuthFailure || e.Reason == ReasonRejected
	case apperr.ErrTransient:
		return e.Reason == ReasonTransient
	case apperr.ErrTimeout:
		return e.Reason == ReasonTimeout
	case apperr.ErrInvalidInput:
		return e.Reason == ReasonEmptyInput
	}
	return false
}

func emptyInput(msg string) *SummarizationError {
	return &SummarizationError{Reason: ReasonEmptyInput, Err: errors.New(msg)}
}

// classify converts an AI client failure into a SummarizationError.
func classify(err error) *SummarizationError {
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		switch aiErr.Kind {
		case ai.KindAuth:
			return &SummarizationError{Reason: ReasonAuthFailure, Err: err}
		case ai.KindRejected:
			return &SummarizationError{Reason: ReasonRejected, Err: err}
		case ai.KindTimeout:
			return &SummarizationError{Reason: ReasonTimeout, Err: err}
		default:
			return &SummarizationError{Reason: ReasonTransient, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SummarizationError{Reason: ReasonTimeout, Err: err}
	}
	return &SummarizationError{Reason: ReasonTransient, Err: err}
}
