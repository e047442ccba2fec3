package database

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func testInput(url string, position int) ArticleInput {
	return ArticleInput{
		CanonicalURL: url,
		Link:         url,
		Title:        "Title " + url,
		Snippet:      "Snippet",
		PublishedAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Batch:        1,
		Position:     position,
	}
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error on second run, got: %v", err)
	}
	if version != 1 {
		t.Errorf("Expected version 1, got %d", version)
	}
	if dirty {
		t.Error("Expected clean migration state")
	}
}

func TestFeedRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedRepository(newTestDB(t))

	feed, err := repo.CreateFeed(ctx, "Example", "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}
	if feed.ID == 0 {
		t.Error("Expected feed ID to be assigned")
	}

	if _, err := repo.CreateFeed(ctx, "Example", "https://other.example.com/feed.xml"); !errors.Is(err, ErrDuplicateFeed) {
		t.Errorf("Expected ErrDuplicateFeed for duplicate name, got: %v", err)
	}

	byURL, err := repo.GetFeedByURL(ctx, "https://example.com/feed.xml")
	if err != nil || byURL == nil {
		t.Fatalf("Expected feed by URL, got %v (err %v)", byURL, err)
	}
	if byURL.LastFetchedAt != nil {
		t.Error("Expected feed to be unfetched")
	}

	fetchedAt := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	if err := repo.MarkFetched(ctx, feed.ID, fetchedAt, "boom"); err != nil {
		t.Fatalf("Failed to mark fetched: %v", err)
	}

	got, err := repo.GetFeed(ctx, feed.ID)
	if err != nil {
		t.Fatalf("Failed to get feed: %v", err)
	}
	if got.LastFetchedAt == nil || !got.LastFetchedAt.Equal(fetchedAt) {
		t.Errorf("Expected last fetched %v, got %v", fetchedAt, got.LastFetchedAt)
	}
	if got.LastError != "boom" {
		t.Errorf("Expected last error 'boom', got '%s'", got.LastError)
	}

	missing, err := repo.GetFeed(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("Expected nil feed for unknown id, got %v (err %v)", missing, err)
	}

	count, err := repo.GetFeedCount(ctx)
	if err != nil || count != 1 {
		t.Errorf("Expected 1 feed, got %d (err %v)", count, err)
	}
}

func TestUpsertArticleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	articles := NewArticleRepository(db)

	feed, err := feeds.CreateFeed(ctx, "Example", "https://example.com/feed.xml")
	if err != nil {
		t.Fatalf("Failed to create feed: %v", err)
	}

	input := testInput("https://example.com/a", 0)

	res, err := articles.UpsertArticle(ctx, feed.ID, input)
	if err != nil || res != UpsertInserted {
		t.Fatalf("Expected inserted, got %s (err %v)", res, err)
	}

	res, err = articles.UpsertArticle(ctx, feed.ID, input)
	if err != nil || res != UpsertUnchanged {
		t.Fatalf("Expected unchanged, got %s (err %v)", res, err)
	}

	list, err := articles.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("Failed to list articles: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(list))
	}

	original := list[0]
	if err := articles.SetFullText(ctx, original.ID, "full text", time.Now()); err != nil {
		t.Fatalf("Failed to set full text: %v", err)
	}
	if err := articles.SetSummary(ctx, original.ID, "summary", time.Now()); err != nil {
		t.Fatalf("Failed to set summary: %v", err)
	}

	input.Title = "Updated title"
	res, err = articles.UpsertArticle(ctx, feed.ID, input)
	if err != nil || res != UpsertUpdated {
		t.Fatalf("Expected updated, got %s (err %v)", res, err)
	}

	got, err := articles.GetArticle(ctx, original.ID)
	if err != nil || got == nil {
		t.Fatalf("Expected article, got %v (err %v)", got, err)
	}
	if got.Title != "Updated title" {
		t.Errorf("Expected updated title, got '%s'", got.Title)
	}
	if got.FullText == nil || *got.FullText != "full text" {
		t.Error("Expected full text to be preserved")
	}
	if got.Summary == nil || *got.Summary != "summary" {
		t.Error("Expected summary to be preserved")
	}
	if got.FeedName != "Example" {
		t.Errorf("Expected feed name 'Example', got '%s'", got.FeedName)
	}
	if !got.PublishedAt.Equal(input.PublishedAt) {
		t.Errorf("Expected published %v, got %v", input.PublishedAt, got.PublishedAt)
	}
}

func TestListArticlesOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	articles := NewArticleRepository(db)

	first, _ := feeds.CreateFeed(ctx, "First", "https://first.example.com/feed")
	second, _ := feeds.CreateFeed(ctx, "Second", "https://second.example.com/feed")

	for i, url := range []string{"https://first.example.com/c", "https://first.example.com/a", "https://first.example.com/b"} {
		if _, err := articles.UpsertArticle(ctx, first.ID, testInput(url, i)); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
	}
	newer := testInput("https://second.example.com/x", 0)
	newer.Batch = 2
	if _, err := articles.UpsertArticle(ctx, second.ID, newer); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	all, err := articles.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	want := []string{
		"https://second.example.com/x",
		"https://first.example.com/c",
		"https://first.example.com/a",
		"https://first.example.com/b",
	}
	if len(all) != len(want) {
		t.Fatalf("Expected %d articles, got %d", len(want), len(all))
	}
	for i, url := range want {
		if all[i].CanonicalURL != url {
			t.Errorf("Position %d: expected %s, got %s", i, url, all[i].CanonicalURL)
		}
	}

	byFeed, err := articles.ListArticles(ctx, ArticleFilter{FeedID: &first.ID, Limit: 2})
	if err != nil {
		t.Fatalf("Failed to list by feed: %v", err)
	}
	if len(byFeed) != 2 || byFeed[0].CanonicalURL != "https://first.example.com/c" {
		t.Errorf("Unexpected feed filter result: %+v", byFeed)
	}

	if err := articles.SetFullText(ctx, all[0].ID, "text", time.Now()); err != nil {
		t.Fatalf("Failed to set full text: %v", err)
	}
	pending, err := articles.ListArticlesWithoutFullText(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("Expected 3 articles without text, got %d", len(pending))
	}

	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := articles.SetSummary(ctx, all[2].ID, "older", base); err != nil {
		t.Fatalf("Failed to set summary: %v", err)
	}
	if err := articles.SetSummary(ctx, all[1].ID, "newer", base.Add(time.Hour)); err != nil {
		t.Fatalf("Failed to set summary: %v", err)
	}
	summarized, err := articles.ListArticles(ctx, ArticleFilter{Summarized: true})
	if err != nil {
		t.Fatalf("Failed to list summarized: %v", err)
	}
	if len(summarized) != 2 || summarized[0].ID != all[1].ID || summarized[1].ID != all[2].ID {
		t.Errorf("Expected summarized articles newest first, got %+v", summarized)
	}

	if err := articles.SetAudioRef(ctx, "missing", "x.mp3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown article, got: %v", err)
	}
}

func TestDeleteFeedCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	articles := NewArticleRepository(db)
	bookmarks := NewBookmarkRepository(db)

	feed, _ := feeds.CreateFeed(ctx, "Example", "https://example.com/feed.xml")
	if _, err := articles.UpsertArticle(ctx, feed.ID, testInput("https://example.com/a", 0)); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	list, _ := articles.ListArticles(ctx, ArticleFilter{})
	if _, err := bookmarks.AddBookmark(ctx, list[0].ID); err != nil {
		t.Fatalf("Failed to bookmark: %v", err)
	}

	deleted, err := feeds.DeleteFeed(ctx, feed.ID)
	if err != nil || !deleted {
		t.Fatalf("Expected feed deleted, got %v (err %v)", deleted, err)
	}

	if count, _ := articles.GetArticleCount(ctx); count != 0 {
		t.Errorf("Expected articles to be deleted, got %d", count)
	}
	if count, _ := bookmarks.GetBookmarkCount(ctx); count != 0 {
		t.Errorf("Expected bookmarks to be deleted, got %d", count)
	}

	deleted, err = feeds.DeleteFeed(ctx, feed.ID)
	if err != nil || deleted {
		t.Errorf("Expected second delete to report false, got %v (err %v)", deleted, err)
	}
}

func TestBookmarks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	feeds := NewFeedRepository(db)
	articles := NewArticleRepository(db)
	bookmarks := NewBookmarkRepository(db)

	feed, _ := feeds.CreateFeed(ctx, "Example", "https://example.com/feed.xml")
	for i, url := range []string{"https://example.com/a", "https://example.com/b"} {
		if _, err := articles.UpsertArticle(ctx, feed.ID, testInput(url, i)); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
	}
	list, _ := articles.ListArticles(ctx, ArticleFilter{})

	// Bookmark b before a
	for _, id := range []string{list[1].ID, list[0].ID} {
		added, err := bookmarks.AddBookmark(ctx, id)
		if err != nil || !added {
			t.Fatalf("Expected bookmark added, got %v (err %v)", added, err)
		}
	}

	added, err := bookmarks.AddBookmark(ctx, list[0].ID)
	if err != nil || added {
		t.Errorf("Expected repeated bookmark to be a no-op, got %v (err %v)", added, err)
	}

	if _, err := bookmarks.AddBookmark(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}

	marked, err := bookmarks.ListBookmarkedArticles(ctx)
	if err != nil {
		t.Fatalf("Failed to list bookmarks: %v", err)
	}
	if len(marked) != 2 || marked[0].ID != list[1].ID || marked[1].ID != list[0].ID {
		t.Errorf("Expected bookmarks in bookmark order, got %+v", marked)
	}
	if !marked[0].Bookmarked {
		t.Error("Expected Bookmarked flag to be set")
	}

	got, err := articles.GetArticle(ctx, list[0].ID)
	if err != nil || got == nil || !got.Bookmarked {
		t.Errorf("Expected article to be bookmarked, got %+v (err %v)", got, err)
	}

	removed, err := bookmarks.RemoveBookmark(ctx, list[0].ID)
	if err != nil || !removed {
		t.Errorf("Expected bookmark removed, got %v (err %v)", removed, err)
	}

	cleared, err := bookmarks.ClearBookmarks(ctx)
	if err != nil || cleared != 1 {
		t.Errorf("Expected 1 bookmark cleared, got %d (err %v)", cleared, err)
	}

	stats, err := articles.GetArticleStats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Total != 2 || stats.Bookmarked != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(newTestDB(t))

	missing, err := repo.GetSetting(ctx, "summary.style")
	if err != nil || missing != nil {
		t.Fatalf("Expected no setting, got %v (err %v)", missing, err)
	}

	if err := repo.SaveSetting(ctx, "summary.style", json.RawMessage(`"brief"`)); err != nil {
		t.Fatalf("Failed to save setting: %v", err)
	}
	if err := repo.SaveSetting(ctx, "summary.style", json.RawMessage(`"detailed"`)); err != nil {
		t.Fatalf("Failed to overwrite setting: %v", err)
	}
	if err := repo.SaveSetting(ctx, "broken", json.RawMessage(`{`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}

	got, err := repo.GetSetting(ctx, "summary.style")
	if err != nil || got == nil {
		t.Fatalf("Expected setting, got %v (err %v)", got, err)
	}
	if string(got.Value) != `"detailed"` {
		t.Errorf("Expected detailed, got %s", got.Value)
	}

	all, err := repo.ListSettings(ctx)
	if err != nil || len(all) != 1 {
		t.Errorf("Expected 1 setting, got %d (err %v)", len(all), err)
	}
}
