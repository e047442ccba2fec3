package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/feedlist"
	"github.com/lysyi3m/rss-digest/app/reader"
	"github.com/lysyi3m/rss-digest/app/summary"
)

// Reader is the use-case surface the handlers call.
type Reader interface {
	AddFeed(ctx context.Context, name, url string) (reader.FeedResult, error)
	RemoveFeed(ctx context.Context, id int64) error
	ListFeeds(ctx context.Context) ([]database.Feed, error)
	RefreshFeed(ctx context.Context, id int64) (reader.FeedResult, error)
	RefreshAll(ctx context.Context) (reader.RefreshReport, error)
	SyncFeeds(ctx context.Context, entries []feedlist.Entry) reader.SyncReport

	ListArticles(ctx context.Context, query reader.ArticleQuery) ([]database.Article, error)
	GetArticle(ctx context.Context, id string) (*database.Article, error)
	SummarizedArticles(ctx context.Context, limit int) ([]database.Article, error)
	ExtractArticle(ctx context.Context, id string, force bool) (*database.Article, error)
	SummarizeArticleWithFocus(ctx context.Context, cred ai.Credential, id string, style summary.Style, focus string) (*reader.ArticleSummary, error)

	Bookmark(ctx context.Context, id string) (bool, error)
	Unbookmark(ctx context.Context, id string) (bool, error)
	ClearBookmarks(ctx context.Context) (int, error)
	ListBookmarks(ctx context.Context) ([]database.Article, error)

	CombinedSummary(ctx context.Context, cred ai.Credential, style summary.Style) (*reader.CombinedSummary, error)
	GenerateAudio(ctx context.Context, cred ai.Credential, text string) (string, error)
	GenerateArticleAudio(ctx context.Context, cred ai.Credential, id string) (string, error)

	GetSetting(ctx context.Context, key string) (*database.Setting, error)
	ListSettings(ctx context.Context) ([]database.Setting, error)
	SaveSetting(ctx context.Context, key string, value json.RawMessage) error

	Stats(ctx context.Context) (reader.Stats, error)
}

var _ Reader = (*reader.Service)(nil)

// AudioFiles resolves stored audio references to files on disk.
type AudioFiles interface {
	Path(name string) (string, error)
}

type Handler struct {
	reader     Reader
	audioFiles AudioFiles
	aiKey      ai.Credential
	speechKey  ai.Credential
	baseURL    string
	version    string
}

type FeedResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	LastFetchedAt *time.Time `json:"last_fetched_at"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type FeedResultResponse struct {
	Feed   FeedResponse      `json:"feed"`
	Report feed.IngestReport `json:"report"`
	Error  string            `json:"error,omitempty"`
}

type ArticleResponse struct {
	ID           string     `json:"id"`
	FeedID       int64      `json:"feed_id"`
	FeedName     string     `json:"feed_name"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Snippet      string     `json:"snippet"`
	ImageURL     string     `json:"image_url,omitempty"`
	PublishedAt  time.Time  `json:"published_at"`
	FullText     *string    `json:"full_text,omitempty"`
	ExtractedAt  *time.Time `json:"extracted_at,omitempty"`
	Summary      *string    `json:"summary,omitempty"`
	SummarizedAt *time.Time `json:"summarized_at,omitempty"`
	AudioRef     *string    `json:"audio_ref,omitempty"`
	Bookmarked   bool       `json:"bookmarked"`
}

type SummaryResponse struct {
	ArticleID   string        `json:"article_id,omitempty"`
	Style       summary.Style `json:"style"`
	Text        string        `json:"text"`
	SpeechText  string        `json:"speech_text"`
	Truncated   bool          `json:"truncated"`
	FromSnippet bool          `json:"from_snippet,omitempty"`
}

type FailureResponse struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

type CombinedSummaryResponse struct {
	SummaryResponse
	Sources  []reader.SourceRef `json:"sources"`
	Failures []FailureResponse  `json:"failures"`
	AudioRef string             `json:"audio_ref,omitempty"`
}

type SettingResponse struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type addFeedRequest struct {
	Name string `json:"name"`
	URL  string `json:"url" binding:"required"`
}

type summarizeRequest struct {
	Style string `json:"style"`
	Focus string `json:"focus"`
	Audio bool   `json:"audio"`
}

type audioRequest struct {
	Text string `json:"text" binding:"required"`
}

func newFeedResponse(f database.Feed) FeedResponse {
	return FeedResponse{
		ID:            f.ID,
		Name:          f.Name,
		URL:           f.URL,
		LastFetchedAt: f.LastFetchedAt,
		LastError:     f.LastError,
		CreatedAt:     f.CreatedAt,
	}
}

func newFeedResultResponse(result reader.FeedResult) FeedResultResponse {
	resp := FeedResultResponse{
		Feed:   newFeedResponse(result.Feed),
		Report: result.Report,
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}

// newArticleResponse leaves out the full text unless withText is set, to
// keep list responses small.
func newArticleResponse(a database.Article, withText bool) ArticleResponse {
	resp := ArticleResponse{
		ID:           a.ID,
		FeedID:       a.FeedID,
		FeedName:     a.FeedName,
		URL:          a.Link,
		Title:        a.Title,
		Snippet:      a.Snippet,
		ImageURL:     a.ImageURL,
		PublishedAt:  a.PublishedAt,
		ExtractedAt:  a.ExtractedAt,
		Summary:      a.Summary,
		SummarizedAt: a.SummarizedAt,
		AudioRef:     a.AudioRef,
		Bookmarked:   a.Bookmarked,
	}
	if withText {
		resp.FullText = a.FullText
	}
	return resp
}

func newArticleResponses(articles []database.Article) []ArticleResponse {
	resp := make([]ArticleResponse, 0, len(articles))
	for _, a := range articles {
		resp = append(resp, newArticleResponse(a, false))
	}
	return resp
}
