package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxFeedSize         = 10 << 20
)

var errFeedTooLarge = errors.New("feed exceeds size limit")

// Fetcher downloads and parses feeds. It never writes to storage.
type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]RawEntry, *Metadata, error) {
	u, err := url.Parse(feedURL)
	if err != nil || !isHTTP(u) {
		return nil, nil, &FetchError{Reason: FetchUnreachable, URL: feedURL, Err: fmt.Errorf("invalid feed URL")}
	}

	data, err := f.fetchFeed(ctx, u.String())
	if err != nil {
		return nil, nil, err
	}

	metadata, entries, err := f.parser.Run(data, u.String())
	if err != nil {
		return nil, nil, &FetchError{Reason: FetchMalformedFeed, URL: feedURL, Err: err}
	}

	return entries, metadata, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, feedURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, &FetchError{Reason: FetchUnreachable, URL: feedURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Reason: transportReason(err), URL: feedURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Reason:     FetchHTTPError,
			URL:        feedURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP error: %s", resp.Status),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize+1))
	if err != nil {
		return nil, &FetchError{Reason: transportReason(err), URL: feedURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if len(data) > maxFeedSize {
		return nil, &FetchError{Reason: FetchMalformedFeed, URL: feedURL, Err: errFeedTooLarge}
	}

	return data, nil
}

func transportReason(err error) FetchReason {
	if isTimeout(err) {
		return FetchTimeout
	}
	return FetchUnreachable
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
