package tasks

import (
	"context"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feedlist"
	"github.com/lysyi3m/rss-digest/app/reader"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Example usage:
//
//	scheduler := NewScheduler(service, feedList, interval, workerCount, autoExtract)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshFeedTask(feed, service))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// FeedService is the part of the reader service the background tasks drive.
type FeedService interface {
	ListFeeds(ctx context.Context) ([]database.Feed, error)
	RefreshFeed(ctx context.Context, id int64) (reader.FeedResult, error)
	PendingExtractions(ctx context.Context, limit int) ([]database.Article, error)
	ExtractArticle(ctx context.Context, id string, force bool) (*database.Article, error)
	SyncFeeds(ctx context.Context, entries []feedlist.Entry) reader.SyncReport
}
