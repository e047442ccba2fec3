package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/apperr"
)

type ExtractContentTask struct {
	Task
	ArticleID string
	service   FeedService
}

func NewExtractContentTask(articleID string, service FeedService) *ExtractContentTask {
	return &ExtractContentTask{
		Task:      NewTask(TaskTypeExtractContent, articleID),
		ArticleID: articleID,
		service:   service,
	}
}

func (t *ExtractContentTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	article, err := t.service.ExtractArticle(ctx, t.ArticleID, false)
	if errors.Is(err, apperr.ErrNoUsableContent) {
		slog.Debug("Article has no extractable content", "article", t.ArticleID, "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to extract article: %w", err)
	}

	slog.Info("Task completed",
		"type", "ExtractContent",
		"article", t.ArticleID,
		"characters", len(*article.FullText),
		"duration", t.GetDuration())

	return nil
}
