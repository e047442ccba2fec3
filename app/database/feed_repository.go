package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ FeedRepository = (*FeedRepo)(nil)

type FeedRepo struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepo {
	return &FeedRepo{db: db}
}

const feedColumns = `id, name, url, last_fetched_at, last_error, created_at`

func (r *FeedRepo) CreateFeed(ctx context.Context, name, url string) (*Feed, error) {
	now := time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO feeds (name, url, last_error, created_at)
		VALUES (?, ?, '', ?)
	`, name, url, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFeed, name)
		}
		return nil, fmt.Errorf("failed to create feed: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read feed id: %w", err)
	}

	return &Feed{ID: id, Name: name, URL: url, CreatedAt: now}, nil
}

func (r *FeedRepo) GetFeed(ctx context.Context, id int64) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE id = ?`, id)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return feed, nil
}

func (r *FeedRepo) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE url = ?`, url)

	feed, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}

	return feed, nil
}

func (r *FeedRepo) ListFeeds(ctx context.Context) ([]Feed, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+feedColumns+` FROM feeds ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed rows: %w", err)
	}

	return feeds, nil
}

// DeleteFeed removes the feed together with its articles and their bookmarks.
func (r *FeedRepo) DeleteFeed(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete feed: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *FeedRepo) MarkFetched(ctx context.Context, id int64, fetchedAt time.Time, fetchErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds SET last_fetched_at = ?, last_error = ? WHERE id = ?
	`, fetchedAt.UTC(), fetchErr, id)
	if err != nil {
		return fmt.Errorf("failed to update fetch status: %w", err)
	}

	return nil
}

func (r *FeedRepo) GetFeedCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feeds`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count feeds: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var (
		feed          Feed
		lastFetchedAt sql.NullTime
	)

	if err := row.Scan(&feed.ID, &feed.Name, &feed.URL, &lastFetchedAt, &feed.LastError, &feed.CreatedAt); err != nil {
		return nil, err
	}

	feed.LastFetchedAt = timePtr(lastFetchedAt)
	return &feed, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
