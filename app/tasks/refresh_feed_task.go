package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/database"
)

type RefreshFeedTask struct {
	Task
	FeedID  int64
	service FeedService
}

func NewRefreshFeedTask(f database.Feed, service FeedService) *RefreshFeedTask {
	return &RefreshFeedTask{
		Task:    NewTask(TaskTypeRefreshFeed, f.Name),
		FeedID:  f.ID,
		service: service,
	}
}

func (t *RefreshFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.service.RefreshFeed(ctx, t.FeedID)
	if err != nil {
		return fmt.Errorf("failed to refresh feed: %w", err)
	}

	slog.Info("Task completed",
		"type", "RefreshFeed",
		"feed", t.Subject,
		"added", result.Report.Added,
		"updated", result.Report.Updated,
		"skipped", result.Report.Skipped,
		"invalid", result.Report.Invalid,
		"duration", t.GetDuration())

	return nil
}
