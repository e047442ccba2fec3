package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lysyi3m/rss-digest/app/apperr"
	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feedlist"
	"github.com/lysyi3m/rss-digest/app/metrics"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize          = 300
	taskTimeout        = 5 * time.Minute
	maxRetryDelay      = 30 * time.Second
	extractionsPerTick = 20
	attemptedCacheSize = 4096
)

type Scheduler struct {
	service     FeedService
	feedList    *feedlist.List
	interval    time.Duration
	workerCount int
	autoExtract bool
	retryDelay  func(retry int) time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	// Articles already handed to an extraction task, so permanent failures
	// are not retried on every tick.
	attempted *lru.Cache[string, struct{}]
}

// NewScheduler refreshes every feed once per interval. feedList may be nil.
func NewScheduler(service FeedService, feedList *feedlist.List, interval time.Duration, workerCount int, autoExtract bool) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	attempted, _ := lru.New[string, struct{}](attemptedCacheSize)

	return &Scheduler{
		service:     service,
		feedList:    feedList,
		interval:    interval,
		workerCount: max(workerCount, 1),
		autoExtract: autoExtract,
		retryDelay:  backoff,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		attempted:   attempted,
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

	if s.feedList != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := s.feedList.Watch(s.ctx, func(entries []feedlist.Entry) {
				if err := s.EnqueueTask(NewSyncFeedListTask(entries, s.service)); err != nil {
					slog.Warn("Failed to enqueue SyncFeedListTask", "error", err)
				}
			})
			if err != nil {
				slog.Warn("Feed list watcher stopped", "path", s.feedList.Path(), "error", err)
			}
		}()
	}
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if s.feedList != nil && s.feedList.Count() > 0 {
		if err := s.EnqueueTask(NewSyncFeedListTask(s.feedList.Entries(), s.service)); err != nil {
			slog.Warn("Failed to enqueue SyncFeedListTask", "error", err)
		}
	}
	s.enqueueTasks()
}

func (s *Scheduler) enqueueTasks() {
	feeds, err := s.service.ListFeeds(s.ctx)
	if err != nil {
		slog.Warn("Failed to list feeds, skipping tick", "error", err)
		return
	}

	slog.Debug("Processing feeds for task scheduling", "count", len(feeds))

	now := time.Now()
	for _, f := range feeds {
		if !s.due(f, now) {
			slog.Debug("Feed not due for refresh yet", "feed", f.Name, "last_fetched_at", f.LastFetchedAt)
			continue
		}
		if err := s.EnqueueTask(NewRefreshFeedTask(f, s.service)); err != nil {
			slog.Warn("Failed to enqueue RefreshFeedTask", "feed", f.Name, "error", err)
		}
	}

	if s.autoExtract {
		s.enqueueExtractions()
	}
}

func (s *Scheduler) enqueueExtractions() {
	articles, err := s.service.PendingExtractions(s.ctx, extractionsPerTick+s.attempted.Len())
	if err != nil {
		slog.Warn("Failed to list articles without content", "error", err)
		return
	}

	queued := 0
	for _, article := range articles {
		if queued == extractionsPerTick {
			break
		}
		if s.attempted.Contains(article.ID) {
			continue
		}
		if err := s.EnqueueTask(NewExtractContentTask(article.ID, s.service)); err != nil {
			slog.Warn("Failed to enqueue ExtractContentTask", "article", article.ID, "error", err)
			return
		}
		s.attempted.Add(article.ID, struct{}{})
		queued++
	}
}

// due reports whether f has not been refreshed within the last interval.
func (s *Scheduler) due(f database.Feed, now time.Time) bool {
	if f.LastFetchedAt == nil {
		return true
	}
	// Small slack so a feed refreshed at the previous tick is due at this one.
	return now.Sub(*f.LastFetchedAt) >= s.interval-time.Second
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	if !apperr.Retryable(err) {
		slog.Error("Task failed", "worker_id", workerID, "type", string(task.GetType()), "subject", task.GetSubject(), "error", err)
		return
	}

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay(task.GetRetryCount())
	metrics.RecordTaskRetry(string(task.GetType()))

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String(), "error", err)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// backoff doubles from one second per retry, capped at maxRetryDelay.
func backoff(retry int) time.Duration {
	delay := time.Duration(1<<uint(max(retry-1, 0))) * time.Second
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
