package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/metrics"
	"github.com/lysyi3m/rss-digest/app/summary"
)

const (
	defaultArticleLimit = 50
	maxArticleLimit     = 500
)

type ArticleQuery struct {
	FeedID *int64
	Limit  int
	Offset int
}

// ListArticles returns the newest ingestion batches first and keeps feed
// order inside each batch.
func (s *Service) ListArticles(ctx context.Context, query ArticleQuery) ([]database.Article, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultArticleLimit
	}
	limit = min(limit, maxArticleLimit)

	return s.articleRepo.ListArticles(ctx, database.ArticleFilter{
		FeedID: query.FeedID,
		Limit:  limit,
		Offset: max(query.Offset, 0),
	})
}

// SummarizedArticles returns articles with a stored summary, most recently
// summarized first.
func (s *Service) SummarizedArticles(ctx context.Context, limit int) ([]database.Article, error) {
	if limit <= 0 {
		limit = defaultArticleLimit
	}
	return s.articleRepo.ListArticles(ctx, database.ArticleFilter{
		Summarized: true,
		Limit:      min(limit, maxArticleLimit),
	})
}

func (s *Service) GetArticle(ctx context.Context, id string) (*database.Article, error) {
	article, err := s.articleRepo.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, fmt.Errorf("article %s: %w", id, apperr.ErrNotFound)
	}
	return article, nil
}

// ExtractArticle fetches and stores the full text of an article. Stored text
// is reused unless force is set.
func (s *Service) ExtractArticle(ctx context.Context, id string, force bool) (*database.Article, error) {
	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.HasFullText() && !force {
		return article, nil
	}

	extracted, err := s.extractor.Extract(ctx, article.Link)
	metrics.RecordExtraction(err)
	if err != nil {
		slog.Warn("Article extraction failed", "article", article.ID, "url", article.Link, "error", err)
		return nil, err
	}

	now := s.now()
	if err := s.articleRepo.SetFullText(ctx, article.ID, extracted.Text, now); err != nil {
		return nil, err
	}

	text := extracted.Text
	article.FullText = &text
	article.ExtractedAt = &now
	return article, nil
}

// ArticleSummary is a stored single-article summary.
type ArticleSummary struct {
	Article     *database.Article
	Result      summary.Result
	Style       summary.Style
	FromSnippet bool // the page had no usable text and the feed snippet was summarized
}

// SummarizeArticle summarizes the full text of an article, extracting it
// first when needed. A page with no usable content falls back to the feed
// snippet. An empty style uses the stored default.
func (s *Service) SummarizeArticle(ctx context.Context, cred ai.Credential, id string, style summary.Style) (*ArticleSummary, error) {
	return s.SummarizeArticleWithFocus(ctx, cred, id, style, "")
}

// SummarizeArticleWithFocus is SummarizeArticle steered toward focus, e.g.
// "market impact". An empty focus gives a general summary.
func (s *Service) SummarizeArticleWithFocus(ctx context.Context, cred ai.Credential, id string, style summary.Style, focus string) (*ArticleSummary, error) {
	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if style == "" {
		style = s.DefaultStyle(ctx)
	}

	text, fromSnippet, err := s.articleText(ctx, article)
	if err != nil {
		return nil, err
	}

	start := s.now()
	result, err := s.summarizer.SummarizeWithFocus(ctx, cred, text, focus, summary.Options{Style: style})
	metrics.RecordSummary("single", err, time.Since(start))
	if err != nil {
		slog.Warn("Article summarization failed", "article", article.ID, "error", err)
		return nil, err
	}

	now := s.now()
	if err := s.articleRepo.SetSummary(ctx, article.ID, result.Text, now); err != nil {
		return nil, err
	}
	article.Summary = &result.Text
	article.SummarizedAt = &now

	return &ArticleSummary{Article: article, Result: result, Style: style, FromSnippet: fromSnippet}, nil
}

// articleText returns the text to summarize for article and whether it is
// the feed snippet standing in for the page.
func (s *Service) articleText(ctx context.Context, article *database.Article) (string, bool, error) {
	if article.HasFullText() {
		return *article.FullText, false, nil
	}

	extracted, err := s.ExtractArticle(ctx, article.ID, false)
	if err == nil {
		article.FullText = extracted.FullText
		article.ExtractedAt = extracted.ExtractedAt
		return *extracted.FullText, false, nil
	}

	if errors.Is(err, apperr.ErrNoUsableContent) && strings.TrimSpace(article.Snippet) != "" {
		slog.Debug("Using feed snippet for summary", "article", article.ID)
		return article.Snippet, true, nil
	}
	return "", false, err
}

// PendingExtractions lists up to limit articles that have no full text yet.
func (s *Service) PendingExtractions(ctx context.Context, limit int) ([]database.Article, error) {
	return s.articleRepo.ListArticlesWithoutFullText(ctx, limit)
}
