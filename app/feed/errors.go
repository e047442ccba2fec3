package feed

import (
	"fmt"

	"github.com/lysyi3m/rss-digest/app/apperr"
)

type FetchReason string

const (
	FetchUnreachable   FetchReason = "unreachable"
	FetchMalformedFeed FetchReason = "malformed_feed"
	FetchHTTPError     FetchReason = "http_error"
	FetchTimeout       FetchReason = "timeout"
)

type FetchError struct {
	Reason     FetchReason
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("failed to fetch feed %s: %s", e.URL, e.Reason)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	switch target {
	case apperr.ErrUnreachable:
		return e.Reason != FetchMalformedFeed
	case apperr.ErrNoUsableContent:
		return e.Reason == FetchMalformedFeed
	case apperr.ErrTimeout:
		return e.Reason == FetchTimeout
	case apperr.ErrTransient:
		return e.Reason == FetchUnreachable || (e.Reason == FetchHTTPError && (e.StatusCode >= 500 || e.StatusCode == 429))
	}
	return false
}

type IngestReason string

const (
	IngestStoreWriteFailure IngestReason = "store_write_failure"
)

// IngestError aborts a batch. Report holds the counts of the entries
// committed before the failure.
type IngestError struct {
	Reason IngestReason
	FeedID int64
	Report IngestReport
	Err    error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("failed to ingest entries for feed %d: %s: %v", e.FeedID, e.Reason, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
