package database

import (
	"context"
	"fmt"
	"time"
)

var _ BookmarkRepository = (*BookmarkRepo)(nil)

type BookmarkRepo struct {
	db *DB
}

func NewBookmarkRepository(db *DB) *BookmarkRepo {
	return &BookmarkRepo{db: db}
}

// AddBookmark is idempotent: bookmarking an already bookmarked article
// reports false without error. Unknown articles yield ErrNotFound.
func (r *BookmarkRepo) AddBookmark(ctx context.Context, articleID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE id = ?`, articleID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check article: %w", err)
	}
	if exists == 0 {
		return false, fmt.Errorf("failed to bookmark article %s: %w", articleID, ErrNotFound)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookmarks (article_id, created_at) VALUES (?, ?)
		ON CONFLICT (article_id) DO NOTHING
	`, articleID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to add bookmark: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bookmark: %w", err)
	}

	return affected > 0, nil
}

func (r *BookmarkRepo) RemoveBookmark(ctx context.Context, articleID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE article_id = ?`, articleID)
	if err != nil {
		return false, fmt.Errorf("failed to remove bookmark: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// ListBookmarkedArticles returns bookmarked articles in the order they were bookmarked.
func (r *BookmarkRepo) ListBookmarkedArticles(ctx context.Context) ([]Article, error) {
	query, args, err := selectArticles().
		Where("b.article_id IS NOT NULL").
		OrderBy("b.created_at ASC", "b.rowid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookmark query: %w", err)
	}

	return queryArticles(ctx, r.db, query, args...)
}

func (r *BookmarkRepo) ClearBookmarks(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear bookmarks: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(affected), nil
}

func (r *BookmarkRepo) GetBookmarkCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return count, nil
}
