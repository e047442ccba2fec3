package content

import (
	"fmt"

	"github.com/lysyi3m/rss-digest/app/apperr"
)

type Reason string

const (
	ReasonUnreachable       Reason = "unreachable"
	ReasonEmptyContent      Reason = "empty_content"
	ReasonUnsupportedFormat Reason = "unsupported_format"
	ReasonTimeout           Reason = "timeout"
)

type ExtractionError struct {
	Reason     Reason
	URL        string
	StatusCode int
	Err        error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("failed to extract %s: %s", e.URL, e.Reason)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	switch target {
	case apperr.ErrUnreachable:
		return e.Reason == ReasonUnreachable || e.Reason == ReasonTimeout
	case apperr.ErrNoUsableContent:
		return e.Reason == ReasonEmptyContent || e.Reason == ReasonUnsupportedFormat
	case apperr.ErrTimeout:
		return e.Reason == ReasonTimeout
	case apperr.ErrTransient:
		return e.Reason == ReasonUnreachable && (e.StatusCode == 0 || e.StatusCode >= 500 || e.StatusCode == 429)
	}
	return false
}

// NoUsableContent reports whether the page was reachable but had nothing to read.
func (e *ExtractionError) NoUsableContent() bool {
	return e.Reason == ReasonEmptyContent || e.Reason == ReasonUnsupportedFormat
}
