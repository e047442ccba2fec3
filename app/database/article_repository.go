package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var _ ArticleRepository = (*ArticleRepo)(nil)

var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type ArticleRepo struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

var articleColumns = []string{
	"a.id", "a.feed_id", "f.name", "a.canonical_url", "a.link", "a.title", "a.snippet", "a.image_url",
	"a.published_at", "a.batch", "a.position", "a.full_text", "a.extracted_at", "a.summary",
	"a.summarized_at", "a.audio_ref", "b.article_id IS NOT NULL", "a.created_at", "a.updated_at",
}

func selectArticles() sq.SelectBuilder {
	return builder.Select(articleColumns...).
		From("articles a").
		Join("feeds f ON f.id = a.feed_id").
		LeftJoin("bookmarks b ON b.article_id = a.id")
}

// UpsertArticle inserts the article or refreshes title, snippet and image of
// the row already stored under the same canonical URL. Extracted text,
// summaries, audio and the original feed ownership are never touched.
func (r *ArticleRepo) UpsertArticle(ctx context.Context, feedID int64, input ArticleInput) (UpsertResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		id       string
		title    string
		snippet  string
		imageURL string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, title, snippet, image_url FROM articles WHERE canonical_url = ?
	`, input.CanonicalURL).Scan(&id, &title, &snippet, &imageURL)

	now := time.Now().UTC()
	result := UpsertUnchanged

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO articles (id, feed_id, canonical_url, link, title, snippet, image_url,
			                      published_at, batch, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), feedID, input.CanonicalURL, input.Link, input.Title, input.Snippet, input.ImageURL,
			input.PublishedAt.UTC(), input.Batch, input.Position, now, now)
		if err != nil {
			return UpsertUnchanged, fmt.Errorf("failed to insert article: %w", err)
		}
		result = UpsertInserted

	case err != nil:
		return UpsertUnchanged, fmt.Errorf("failed to look up article: %w", err)

	default:
		newImage := imageURL
		if newImage == "" {
			newImage = input.ImageURL
		}
		if title == input.Title && snippet == input.Snippet && newImage == imageURL {
			return UpsertUnchanged, nil
		}

		query, args, err := builder.Update("articles").
			Set("title", input.Title).
			Set("snippet", input.Snippet).
			Set("image_url", newImage).
			Set("updated_at", now).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return UpsertUnchanged, fmt.Errorf("failed to build update query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return UpsertUnchanged, fmt.Errorf("failed to update article: %w", err)
		}
		result = UpsertUpdated
	}

	if err := tx.Commit(); err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to commit article: %w", err)
	}

	return result, nil
}

func (r *ArticleRepo) GetArticle(ctx context.Context, id string) (*Article, error) {
	query, args, err := selectArticles().Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

// ListArticles returns articles newest ingestion batch first, and within a
// batch in the order the feed published them.
func (r *ArticleRepo) ListArticles(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	q := selectArticles()
	if filter.Summarized {
		q = q.Where(sq.NotEq{"a.summary": nil}).OrderBy("a.summarized_at DESC")
	} else {
		q = q.OrderBy("a.batch DESC", "a.position ASC", "a.created_at DESC")
	}

	if filter.FeedID != nil {
		q = q.Where(sq.Eq{"a.feed_id": *filter.FeedID})
	}
	if filter.WithoutFullText {
		q = q.Where(sq.Or{sq.Eq{"a.full_text": nil}, sq.Eq{"a.full_text": ""}})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			q = q.Offset(uint64(filter.Offset))
		}
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build article query: %w", err)
	}

	return r.queryArticles(ctx, query, args...)
}

func (r *ArticleRepo) ListArticlesWithoutFullText(ctx context.Context, limit int) ([]Article, error) {
	return r.ListArticles(ctx, ArticleFilter{WithoutFullText: true, Limit: limit})
}

func (r *ArticleRepo) SetFullText(ctx context.Context, id string, text string, extractedAt time.Time) error {
	return r.update(ctx, id, "full text", map[string]any{
		"full_text":    text,
		"extracted_at": extractedAt.UTC(),
	})
}

func (r *ArticleRepo) SetSummary(ctx context.Context, id string, summary string, summarizedAt time.Time) error {
	return r.update(ctx, id, "summary", map[string]any{
		"summary":       summary,
		"summarized_at": summarizedAt.UTC(),
	})
}

func (r *ArticleRepo) SetAudioRef(ctx context.Context, id string, ref string) error {
	return r.update(ctx, id, "audio reference", map[string]any{
		"audio_ref": ref,
	})
}

func (r *ArticleRepo) GetArticleCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (r *ArticleRepo) GetArticleStats(ctx context.Context) (ArticleStats, error) {
	var stats ArticleStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN a.full_text IS NOT NULL AND a.full_text != '' THEN 1 END),
			COUNT(a.summary),
			COUNT(b.article_id)
		FROM articles a
		LEFT JOIN bookmarks b ON b.article_id = a.id
	`).Scan(&stats.Total, &stats.Extracted, &stats.Summarized, &stats.Bookmarked)
	if err != nil {
		return ArticleStats{}, fmt.Errorf("failed to get article stats: %w", err)
	}
	return stats, nil
}

func (r *ArticleRepo) update(ctx context.Context, id, what string, values map[string]any) error {
	values["updated_at"] = time.Now().UTC()

	query, args, err := builder.Update("articles").SetMap(values).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s update: %w", what, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("failed to update %s for article %s: %w", what, id, ErrNotFound)
	}

	return nil
}

func (r *ArticleRepo) queryArticles(ctx context.Context, query string, args ...any) ([]Article, error) {
	return queryArticles(ctx, r.db, query, args...)
}

func queryArticles(ctx context.Context, db *DB, query string, args ...any) ([]Article, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, *article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func scanArticle(row rowScanner) (*Article, error) {
	var (
		a            Article
		fullText     sql.NullString
		extractedAt  sql.NullTime
		summary      sql.NullString
		summarizedAt sql.NullTime
		audioRef     sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.FeedID, &a.FeedName, &a.CanonicalURL, &a.Link, &a.Title, &a.Snippet, &a.ImageURL,
		&a.PublishedAt, &a.Batch, &a.Position, &fullText, &extractedAt, &summary,
		&summarizedAt, &audioRef, &a.Bookmarked, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.FullText = stringPtr(fullText)
	a.ExtractedAt = timePtr(extractedAt)
	a.Summary = stringPtr(summary)
	a.SummarizedAt = timePtr(summarizedAt)
	a.AudioRef = stringPtr(audioRef)

	return &a, nil
}
