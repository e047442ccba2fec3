package reader

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/database"
)

// Bookmark marks an article. Bookmarking twice is not an error; added reports
// whether this call created the bookmark.
func (s *Service) Bookmark(ctx context.Context, id string) (added bool, err error) {
	added, err = s.bookmarkRepo.AddBookmark(ctx, id)
	if err != nil {
		return false, err
	}
	if added {
		slog.Debug("Article bookmarked", "article", id)
	}
	return added, nil
}

// Unbookmark removes a bookmark; removed is false when there was none.
func (s *Service) Unbookmark(ctx context.Context, id string) (removed bool, err error) {
	return s.bookmarkRepo.RemoveBookmark(ctx, id)
}

func (s *Service) ClearBookmarks(ctx context.Context) (int, error) {
	cleared, err := s.bookmarkRepo.ClearBookmarks(ctx)
	if err != nil {
		return 0, err
	}
	slog.Info("Bookmarks cleared", "count", cleared)
	return cleared, nil
}

// ListBookmarks returns bookmarked articles in the order they were bookmarked.
func (s *Service) ListBookmarks(ctx context.Context) ([]database.Article, error) {
	return s.bookmarkRepo.ListBookmarkedArticles(ctx)
}

func (s *Service) BookmarkCount(ctx context.Context) (int, error) {
	return s.bookmarkRepo.GetBookmarkCount(ctx)
}
