package database

import (
	"encoding/json"
	"time"
)

type Feed struct {
	ID            int64
	Name          string
	URL           string
	LastFetchedAt *time.Time
	LastError     string // message of the last failed refresh, empty after a success
	CreatedAt     time.Time
}

type Article struct {
	ID           string // UUID
	FeedID       int64
	FeedName     string
	CanonicalURL string
	Link         string
	Title        string
	Snippet      string
	ImageURL     string
	PublishedAt  time.Time
	Batch        int64
	Position     int
	FullText     *string
	ExtractedAt  *time.Time
	Summary      *string
	SummarizedAt *time.Time
	AudioRef     *string
	Bookmarked   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Article) HasFullText() bool {
	return a.FullText != nil && *a.FullText != ""
}

type Setting struct {
	Key       string
	Value     json.RawMessage
	UpdatedAt time.Time
}

type ArticleStats struct {
	Total      int `json:"total"`
	Extracted  int `json:"extracted"`
	Summarized int `json:"summarized"`
	Bookmarked int `json:"bookmarked"`
}
