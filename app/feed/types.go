package feed

import (
	"time"
)

type Metadata struct {
	Title           string
	Link            string
	Description     string
	ImageURL        string
	Language        string
	FeedPublishedAt *time.Time
}

// RawEntry is one feed item as published, before deduplication.
type RawEntry struct {
	Link        string // absolute http(s) URL
	Title       string
	PublishedAt time.Time
	Summary     string // feed-native description with markup removed
	ImageURL    string
	GUID        string
}

type IngestReport struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

func (r IngestReport) Total() int {
	return r.Added + r.Updated + r.Skipped + r.Invalid
}
