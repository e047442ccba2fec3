package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/rss-digest/app/database"
)

// Ingester turns fetched entries into stored articles keyed by canonical URL.
// Batches for the same feed are serialized; the store's unique index keeps
// concurrent batches of different feeds from inserting the same article twice.
type Ingester struct {
	articleRepo database.ArticleRepository
	now         func() time.Time

	mu        sync.Mutex
	feedLocks map[int64]*sync.Mutex
	lastBatch int64
}

func NewIngester(articleRepo database.ArticleRepository) *Ingester {
	return &Ingester{
		articleRepo: articleRepo,
		now:         time.Now,
		feedLocks:   make(map[int64]*sync.Mutex),
	}
}

// Ingest stores entries in feed order. Entries sharing a canonical URL are
// stored once, at the position of the first occurrence with the title and
// snippet of the last; repeats count as skipped. Entries written before a
// store failure stay committed; the returned IngestError carries their counts.
func (i *Ingester) Ingest(ctx context.Context, feedID int64, entries []RawEntry) (IngestReport, error) {
	lock := i.feedLock(feedID)
	lock.Lock()
	defer lock.Unlock()

	var report IngestReport
	batch := i.nextBatch()

	inputs := make([]database.ArticleInput, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for position, entry := range entries {
		canonical, err := CanonicalURL(entry.Link)
		if err != nil {
			slog.Debug("Skipping entry with invalid link", "feed_id", feedID, "link", entry.Link, "error", err)
			report.Invalid++
			continue
		}

		input := database.ArticleInput{
			CanonicalURL: canonical,
			Link:         entry.Link,
			Title:        entry.Title,
			Snippet:      entry.Summary,
			ImageURL:     entry.ImageURL,
			PublishedAt:  entry.PublishedAt,
			Batch:        batch,
			Position:     position,
		}

		if idx, ok := seen[canonical]; ok {
			input.Position = inputs[idx].Position
			inputs[idx] = input
			report.Skipped++
			continue
		}
		seen[canonical] = len(inputs)
		inputs = append(inputs, input)
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingestion interrupted: %w", err)
		}

		result, err := i.articleRepo.UpsertArticle(ctx, feedID, input)
		if err != nil {
			return report, &IngestError{Reason: IngestStoreWriteFailure, FeedID: feedID, Report: report, Err: err}
		}

		switch result {
		case database.UpsertInserted:
			report.Added++
		case database.UpsertUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
	}

	return report, nil
}

func (i *Ingester) feedLock(feedID int64) *sync.Mutex {
	i.mu.Lock()
	defer i.mu.Unlock()

	lock, ok := i.feedLocks[feedID]
	if !ok {
		lock = &sync.Mutex{}
		i.feedLocks[feedID] = lock
	}
	return lock
}

// nextBatch returns a strictly increasing marker so later batches sort first.
func (i *Ingester) nextBatch() int64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	batch := i.now().UnixNano()
	if batch <= i.lastBatch {
		batch = i.lastBatch + 1
	}
	i.lastBatch = batch
	return batch
}
