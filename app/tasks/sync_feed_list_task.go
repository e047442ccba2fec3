package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/feedlist"
)

type SyncFeedListTask struct {
	Task
	Entries []feedlist.Entry
	service FeedService
}

func NewSyncFeedListTask(entries []feedlist.Entry, service FeedService) *SyncFeedListTask {
	return &SyncFeedListTask{
		Task:    NewTask(TaskTypeSyncFeedList, "feed list"),
		Entries: entries,
		service: service,
	}
}

// Execute registers listed feeds. Per-feed failures are logged by the
// service and never fail the task.
func (t *SyncFeedListTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report := t.service.SyncFeeds(ctx, t.Entries)

	slog.Info("Task completed",
		"type", "SyncFeedList",
		"added", report.Added,
		"existing", report.Existing,
		"failed", report.Failed,
		"duration", t.GetDuration())

	return nil
}
