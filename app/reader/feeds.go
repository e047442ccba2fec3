package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/feedlist"
	"github.com/lysyi3m/rss-digest/app/metrics"
)

var ErrFeedHasNoEntries = errors.New("feed has no entries")

// FeedResult is the outcome of refreshing one feed.
type FeedResult struct {
	Feed   database.Feed
	Report feed.IngestReport
	Err    error
}

// RefreshReport holds one result per feed, in feed order.
type RefreshReport struct {
	Results []FeedResult
}

func (r RefreshReport) Totals() feed.IngestReport {
	var total feed.IngestReport
	for _, result := range r.Results {
		total.Added += result.Report.Added
		total.Updated += result.Report.Updated
		total.Skipped += result.Report.Skipped
		total.Invalid += result.Report.Invalid
	}
	return total
}

func (r RefreshReport) Failed() int {
	failed := 0
	for _, result := range r.Results {
		if result.Err != nil {
			failed++
		}
	}
	return failed
}

// AddFeed registers a feed after checking that it can be fetched and has at
// least one entry, then ingests those entries. An empty name is replaced by
// the feed's own title.
func (s *Service) AddFeed(ctx context.Context, name, feedURL string) (FeedResult, error) {
	name = strings.TrimSpace(name)
	feedURL = strings.TrimSpace(feedURL)

	if err := validateFeedURL(feedURL); err != nil {
		return FeedResult{}, err
	}

	existing, err := s.feedRepo.GetFeedByURL(ctx, feedURL)
	if err != nil {
		return FeedResult{}, fmt.Errorf("failed to look up feed: %w", err)
	}
	if existing != nil {
		return FeedResult{Feed: *existing}, database.ErrDuplicateFeed
	}

	entries, metadata, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return FeedResult{}, err
	}
	if len(entries) == 0 {
		return FeedResult{}, &feed.FetchError{Reason: feed.FetchMalformedFeed, URL: feedURL, Err: ErrFeedHasNoEntries}
	}

	if name == "" {
		name = feedName(metadata, feedURL)
	}

	created, err := s.feedRepo.CreateFeed(ctx, name, feedURL)
	if err != nil {
		return FeedResult{}, err
	}

	start := s.now()
	report, ingestErr := s.ingester.Ingest(ctx, created.ID, entries)
	s.markFetched(ctx, created, ingestErr)
	metrics.RecordFeedRefresh(ingestErr, time.Since(start), report.Added, report.Updated, report.Skipped, report.Invalid)

	slog.Info("Feed added", "feed", created.Name, "url", created.URL, "added", report.Added, "invalid", report.Invalid)

	return FeedResult{Feed: *created, Report: report, Err: ingestErr}, ingestErr
}

// RemoveFeed deletes a feed together with its articles and their bookmarks.
func (s *Service) RemoveFeed(ctx context.Context, id int64) error {
	deleted, err := s.feedRepo.DeleteFeed(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("feed %d: %w", id, apperr.ErrNotFound)
	}
	slog.Info("Feed removed", "feed_id", id)
	return nil
}

func (s *Service) ListFeeds(ctx context.Context) ([]database.Feed, error) {
	return s.feedRepo.ListFeeds(ctx)
}

func (s *Service) GetFeed(ctx context.Context, id int64) (*database.Feed, error) {
	f, err := s.feedRepo.GetFeed(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("feed %d: %w", id, apperr.ErrNotFound)
	}
	return f, nil
}

func (s *Service) RefreshFeed(ctx context.Context, id int64) (FeedResult, error) {
	f, err := s.GetFeed(ctx, id)
	if err != nil {
		return FeedResult{}, err
	}
	result := s.refresh(ctx, *f)
	return result, result.Err
}

// RefreshAll refreshes every feed, at most Workers at a time. A failing feed
// never stops the others; its error is reported in its own result.
func (s *Service) RefreshAll(ctx context.Context) (RefreshReport, error) {
	feeds, err := s.feedRepo.ListFeeds(ctx)
	if err != nil {
		return RefreshReport{}, fmt.Errorf("failed to list feeds: %w", err)
	}

	results := make([]FeedResult, len(feeds))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, f := range feeds {
		g.Go(func() error {
			results[i] = s.refresh(ctx, f)
			return nil
		})
	}
	g.Wait()

	report := RefreshReport{Results: results}
	totals := report.Totals()
	slog.Info("Feeds refreshed", "feeds", len(feeds), "failed", report.Failed(), "added", totals.Added, "updated", totals.Updated)

	return report, nil
}

func (s *Service) refresh(ctx context.Context, f database.Feed) FeedResult {
	start := s.now()
	result := FeedResult{Feed: f}

	entries, _, err := s.fetcher.Fetch(ctx, f.URL)
	if err == nil {
		result.Report, err = s.ingester.Ingest(ctx, f.ID, entries)
	}
	result.Err = err

	s.markFetched(ctx, &result.Feed, err)
	metrics.RecordFeedRefresh(err, time.Since(start), result.Report.Added, result.Report.Updated, result.Report.Skipped, result.Report.Invalid)

	if err != nil {
		slog.Warn("Feed refresh failed", "feed", f.Name, "url", f.URL, "error", err)
	} else {
		slog.Debug("Feed refreshed", "feed", f.Name, "added", result.Report.Added, "updated", result.Report.Updated, "skipped", result.Report.Skipped)
	}
	return result
}

// markFetched stores the refresh time and outcome on the feed. The feed row
// may be gone by now if it was removed mid-refresh.
func (s *Service) markFetched(ctx context.Context, f *database.Feed, refreshErr error) {
	now := s.now()
	message := ""
	if refreshErr != nil {
		message = refreshErr.Error()
	}

	if err := s.feedRepo.MarkFetched(context.WithoutCancel(ctx), f.ID, now, message); err != nil && !errors.Is(err, database.ErrNotFound) {
		slog.Error("Database error", "operation", "mark_fetched", "feed", f.Name, "error", err)
		return
	}
	f.LastFetchedAt = &now
	f.LastError = message
}

// SyncReport summarizes registering the feeds from a feed list.
type SyncReport struct {
	Added    int
	Existing int
	Failed   int
}

// SyncFeeds registers every listed feed that is not in the store yet. Feeds
// missing from the list are left alone.
func (s *Service) SyncFeeds(ctx context.Context, entries []feedlist.Entry) SyncReport {
	var report SyncReport

	for _, entry := range entries {
		_, err := s.AddFeed(ctx, entry.Name, entry.URL)
		switch {
		case err == nil:
			report.Added++
		case errors.Is(err, database.ErrDuplicateFeed):
			report.Existing++
		default:
			report.Failed++
			slog.Warn("Failed to register listed feed", "feed", entry.Name, "url", entry.URL, "error", err)
		}
	}

	slog.Info("Feed list synchronized", "added", report.Added, "existing", report.Existing, "failed", report.Failed)
	return report
}

func validateFeedURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: feed URL is required", apperr.ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: feed URL must be an absolute http(s) URL", apperr.ErrInvalidInput)
	}
	return nil
}

// feedName picks a display name for a feed added without one: the feed's
// title, else a name derived from its host.
func feedName(metadata *feed.Metadata, feedURL string) string {
	if metadata != nil {
		if title := strings.TrimSpace(metadata.Title); title != "" {
			return title
		}
	}

	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}

	labels := strings.Split(strings.TrimPrefix(u.Hostname(), "www."), ".")
	if len(labels) > 1 {
		labels = labels[:len(labels)-1]
	}
	return cases.Title(language.English).String(strings.Join(labels, " "))
}
