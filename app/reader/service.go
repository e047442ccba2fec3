// Package reader is the use-case layer: it runs the fetch, ingest, extract,
// summarize and speech stages against the store on behalf of the API and
// the background scheduler.
package reader

import (
	"context"
	"time"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/content"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/summary"
)

type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]feed.RawEntry, *feed.Metadata, error)
}

type FeedIngester interface {
	Ingest(ctx context.Context, feedID int64, entries []feed.RawEntry) (feed.IngestReport, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, url string) (*content.ExtractedContent, error)
	ExtractBatch(ctx context.Context, urls []string) []content.BatchResult
}

type Summarizer interface {
	SummarizeWithFocus(ctx context.Context, cred ai.Credential, text, focus string, opts summary.Options) (summary.Result, error)
	SummarizeCombined(ctx context.Context, cred ai.Credential, sources []summary.Source, opts summary.Options) (summary.Result, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, cred ai.Credential, text string) ([]byte, error)
}

type AudioStore interface {
	Save(data []byte) (string, error)
}

// Deps lists the collaborators of a Service. Speech and audio storage are
// optional; audio operations fail when they are missing.
type Deps struct {
	FeedRepo     database.FeedRepository
	ArticleRepo  database.ArticleRepository
	BookmarkRepo database.BookmarkRepository
	SettingsRepo database.SettingsRepository

	Fetcher     FeedFetcher
	Ingester    FeedIngester
	Extractor   ContentExtractor
	Summarizer  Summarizer
	Synthesizer SpeechSynthesizer
	AudioStore  AudioStore

	// Workers bounds how many feeds RefreshAll refreshes at once.
	Workers int
}

type Service struct {
	feedRepo     database.FeedRepository
	articleRepo  database.ArticleRepository
	bookmarkRepo database.BookmarkRepository
	settingsRepo database.SettingsRepository

	fetcher     FeedFetcher
	ingester    FeedIngester
	extractor   ContentExtractor
	summarizer  Summarizer
	synthesizer SpeechSynthesizer
	audioStore  AudioStore

	workers int
	now     func() time.Time
}

func NewService(deps Deps) *Service {
	workers := deps.Workers
	if workers < 1 {
		workers = 1
	}

	return &Service{
		feedRepo:     deps.FeedRepo,
		articleRepo:  deps.ArticleRepo,
		bookmarkRepo: deps.BookmarkRepo,
		settingsRepo: deps.SettingsRepo,
		fetcher:      deps.Fetcher,
		ingester:     deps.Ingester,
		extractor:    deps.Extractor,
		summarizer:   deps.Summarizer,
		synthesizer:  deps.Synthesizer,
		audioStore:   deps.AudioStore,
		workers:      workers,
		now:          time.Now,
	}
}

// Stats is a snapshot of what the store holds.
type Stats struct {
	Feeds     int                   `json:"feeds"`
	Articles  database.ArticleStats `json:"articles"`
	Bookmarks int                   `json:"bookmarks"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error

	if stats.Feeds, err = s.feedRepo.GetFeedCount(ctx); err != nil {
		return stats, err
	}
	if stats.Articles, err = s.articleRepo.GetArticleStats(ctx); err != nil {
		return stats, err
	}
	if stats.Bookmarks, err = s.bookmarkRepo.GetBookmarkCount(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}
