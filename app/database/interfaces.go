package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lysyi3m/rss-digest/app/apperr"
)

var (
	ErrNotFound      = apperr.ErrNotFound
	ErrDuplicateFeed = errors.New("feed already exists")
)

// ArticleInput is the normalized form of one feed entry handed to the store.
type ArticleInput struct {
	CanonicalURL string
	Link         string
	Title        string
	Snippet      string
	ImageURL     string
	PublishedAt  time.Time
	Batch        int64 // ingestion batch marker, newer batches sort first
	Position     int   // index of the entry inside its batch
}

type UpsertResult int

const (
	UpsertUnchanged UpsertResult = iota
	UpsertInserted
	UpsertUpdated
)

func (r UpsertResult) String() string {
	switch r {
	case UpsertInserted:
		return "inserted"
	case UpsertUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

type ArticleFilter struct {
	FeedID          *int64
	WithoutFullText bool
	Summarized      bool // only articles with a stored summary, newest summary first
	Limit           int
	Offset          int
}

type FeedRepository interface {
	CreateFeed(ctx context.Context, name, url string) (*Feed, error)
	GetFeed(ctx context.Context, id int64) (*Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*Feed, error)
	ListFeeds(ctx context.Context) ([]Feed, error)
	DeleteFeed(ctx context.Context, id int64) (bool, error)
	MarkFetched(ctx context.Context, id int64, fetchedAt time.Time, fetchErr string) error
	GetFeedCount(ctx context.Context) (int, error)
}

type ArticleRepository interface {
	UpsertArticle(ctx context.Context, feedID int64, input ArticleInput) (UpsertResult, error)
	GetArticle(ctx context.Context, id string) (*Article, error)
	ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error)
	ListArticlesWithoutFullText(ctx context.Context, limit int) ([]Article, error)
	SetFullText(ctx context.Context, id string, text string, extractedAt time.Time) error
	SetSummary(ctx context.Context, id string, summary string, summarizedAt time.Time) error
	SetAudioRef(ctx context.Context, id string, ref string) error
	GetArticleCount(ctx context.Context) (int, error)
	GetArticleStats(ctx context.Context) (ArticleStats, error)
}

type BookmarkRepository interface {
	AddBookmark(ctx context.Context, articleID string) (bool, error)
	RemoveBookmark(ctx context.Context, articleID string) (bool, error)
	ListBookmarkedArticles(ctx context.Context) ([]Article, error)
	ClearBookmarks(ctx context.Context) (int, error)
	GetBookmarkCount(ctx context.Context) (int, error)
}

type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (*Setting, error)
	SaveSetting(ctx context.Context, key string, value json.RawMessage) error
	ListSettings(ctx context.Context) ([]Setting, error)
}
