package reader

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/rss-digest/app/ai"
	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/metrics"
	"github.com/lysyi3m/rss-digest/app/summary"
)

type SourceRef struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	FeedName  string `json:"feed_name"`
}

// ArticleFailure names a bookmarked article left out of a combined summary.
type ArticleFailure struct {
	ArticleID string
	Title     string
	Err       error
}

type CombinedSummary struct {
	summary.Result
	Style    summary.Style
	Sources  []SourceRef
	Failures []ArticleFailure
}

// CombinedSummary summarizes all bookmarked articles in one request, in
// bookmark order. Articles without stored text are extracted first and the
// text is kept. An article that cannot be read is reported in Failures and
// does not stop the others.
func (s *Service) CombinedSummary(ctx context.Context, cred ai.Credential, style summary.Style) (*CombinedSummary, error) {
	if style == "" {
		style = s.DefaultStyle(ctx)
	}

	articles, err := s.bookmarkRepo.ListBookmarkedArticles(ctx)
	if err != nil {
		return nil, err
	}

	combined := &CombinedSummary{Style: style}
	texts := s.bookmarkTexts(ctx, articles, combined)

	sources := make([]summary.Source, 0, len(articles))
	for i, article := range articles {
		if texts[i] == "" {
			continue
		}
		sources = append(sources, summary.Source{
			ID:       article.ID,
			Title:    article.Title,
			FeedName: article.FeedName,
			Text:     texts[i],
		})
		combined.Sources = append(combined.Sources, SourceRef{
			ArticleID: article.ID,
			Title:     article.Title,
			FeedName:  article.FeedName,
		})
	}

	start := s.now()
	result, err := s.summarizer.SummarizeCombined(ctx, cred, sources, summary.Options{Style: style})
	metrics.RecordSummary("combined", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	combined.Result = result

	slog.Info("Combined summary generated", "articles", len(sources), "failed", len(combined.Failures), "truncated", result.Truncated)
	return combined, nil
}

// bookmarkTexts returns the text to summarize for each article. Missing text
// is extracted in one batch; successes are stored, and failures without a
// usable snippet are appended to combined.Failures with an empty text.
func (s *Service) bookmarkTexts(ctx context.Context, articles []database.Article, combined *CombinedSummary) []string {
	texts := make([]string, len(articles))
	var pending []int
	var urls []string

	for i, article := range articles {
		if article.HasFullText() {
			texts[i] = *article.FullText
			continue
		}
		pending = append(pending, i)
		urls = append(urls, article.Link)
	}
	if len(pending) == 0 {
		return texts
	}

	results := s.extractor.ExtractBatch(ctx, urls)
	for n, result := range results {
		i := pending[n]
		article := articles[i]
		metrics.RecordExtraction(result.Err)

		if result.Err == nil {
			texts[i] = result.Content.Text
			if err := s.articleRepo.SetFullText(ctx, article.ID, result.Content.Text, s.now()); err != nil {
				slog.Error("Database error", "operation", "set_full_text", "article", article.ID, "error", err)
			}
			continue
		}

		if errors.Is(result.Err, apperr.ErrNoUsableContent) && strings.TrimSpace(article.Snippet) != "" {
			texts[i] = article.Snippet
			continue
		}

		slog.Warn("Bookmarked article left out of combined summary", "article", article.ID, "error", result.Err)
		combined.Failures = append(combined.Failures, ArticleFailure{
			ArticleID: article.ID,
			Title:     article.Title,
			Err:       result.Err,
		})
	}

	return texts
}
