package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

func strPtr(s string) *string { return &s }

func summarizedArticles() []database.Article {
	summarizedAt := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	return []database.Article{
		{
			ID:           "article-1",
			FeedName:     "Space News",
			Link:         "https://example.com/rover",
			Title:        "New rover",
			PublishedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Summary:      strPtr("A rover landed & sent photos."),
			SummarizedAt: &summarizedAt,
			AudioRef:     strPtr("summary_20240302_090000.mp3"),
		},
		{
			ID:          "article-2",
			FeedName:    "Finance Daily",
			Link:        "https://example.com/rates",
			Title:       "Rates rise",
			PublishedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
			Summary:     strPtr("Rates went up."),
		},
		{
			ID:    "article-3",
			Link:  "https://example.com/pending",
			Title: "Not summarized yet",
		},
	}
}

func TestGenerateDigest(t *testing.T) {
	generator := NewGenerator(func(ref string) (Enclosure, bool) {
		return Enclosure{URL: "https://digest.example.com/api/audio/" + ref, Length: 1234}, true
	})

	rss, err := generator.Run(Channel{
		Title:   "My Digest",
		Link:    "https://digest.example.com",
		SelfURL: "https://digest.example.com/digest.rss",
		Version: "1.2.3",
	}, summarizedArticles())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<rss version="2.0"`,
		"<title>My Digest</title>",
		`<atom:link href="https://digest.example.com/digest.rss" rel="self" type="application/rss+xml" />`,
		"<lastBuildDate>",
		"<generator>RSS-Digest/1.2.3</generator>",
		`<guid isPermaLink="false">rss-digest:article-1</guid>`,
		"<title>New rover</title>",
		"<link>https://example.com/rover</link>",
		"<description>A rover landed &amp; sent photos.</description>",
		"<category>Space News</category>",
		"<pubDate>Fri, 01 Mar 2024 10:00:00 +0000</pubDate>",
		`<enclosure url="https://digest.example.com/api/audio/summary_20240302_090000.mp3" length="1234" type="audio/mpeg" />`,
		"<title>Rates rise</title>",
		"</channel>",
		"</rss>",
	}
	for _, want := range expected {
		if !strings.Contains(rss, want) {
			t.Errorf("RSS should contain %q", want)
		}
	}

	if strings.Contains(rss, "Not summarized yet") {
		t.Error("RSS should skip articles without a summary")
	}
	if strings.Count(rss, "<enclosure") != 1 {
		t.Errorf("Expected exactly one enclosure, got %d", strings.Count(rss, "<enclosure"))
	}
}

func TestGenerateDigestSkipsMissingAudio(t *testing.T) {
	generator := NewGenerator(func(ref string) (Enclosure, bool) {
		return Enclosure{}, false
	})

	rss, err := generator.Run(Channel{}, summarizedArticles())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(rss, "<enclosure") {
		t.Error("RSS should not reference audio files that are gone")
	}
	if !strings.Contains(rss, "<title>RSS Digest</title>") {
		t.Error("RSS should fall back to the default channel title")
	}
	if strings.Contains(rss, "atom:link href") {
		t.Error("RSS should omit the self link when none is known")
	}
}

func TestGenerateDigestParsesBack(t *testing.T) {
	rss, err := NewGenerator(nil).Run(Channel{Title: "My Digest", Link: "https://digest.example.com"}, summarizedArticles())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	metadata, entries, err := NewParser().Run([]byte(rss), "https://digest.example.com/digest.rss")
	if err != nil {
		t.Fatalf("Generated digest should parse, got: %v", err)
	}

	if metadata.Title != "My Digest" {
		t.Errorf("Expected title 'My Digest', got '%s'", metadata.Title)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Link != "https://example.com/rover" || entries[1].Link != "https://example.com/rates" {
		t.Errorf("Expected entries in summary order, got %s, %s", entries[0].Link, entries[1].Link)
	}
	if entries[1].Summary != "Rates went up." {
		t.Errorf("Expected summary as description, got '%s'", entries[1].Summary)
	}
}

func TestGenerateEmptyDigest(t *testing.T) {
	rss, err := NewGenerator(nil).Run(Channel{}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if strings.Contains(rss, "<item>") {
		t.Error("Empty digest should have no items")
	}
}
