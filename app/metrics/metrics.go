// Package metrics provides Prometheus metrics for the digest pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rssdigest"

var (
	// FeedRefreshTotal counts feed refreshes by outcome.
	FeedRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_refresh_total",
			Help:      "Total number of feed refreshes",
		},
		[]string{"status"},
	)

	// FeedRefreshDuration measures fetch plus ingestion time.
	FeedRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_refresh_duration_seconds",
			Help:      "Duration of feed refreshes in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// ArticlesIngestedTotal counts ingested entries by result.
	ArticlesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_ingested_total",
			Help:      "Total number of feed entries processed by ingestion",
		},
		[]string{"result"},
	)

	// ExtractionsTotal counts content extractions by outcome.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total number of article extractions",
		},
		[]string{"status"},
	)

	// SummariesTotal counts summarization requests.
	SummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Total number of summarization requests",
		},
		[]string{"kind", "status"},
	)

	// SummaryDuration measures time spent waiting on the AI service.
	SummaryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_duration_seconds",
			Help:      "Duration of summarization requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"kind"},
	)

	// SpeechTotal counts speech synthesis requests.
	SpeechTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_total",
			Help:      "Total number of speech synthesis requests",
		},
		[]string{"status"},
	)

	// TaskRetriesTotal counts scheduled task retries by task type.
	TaskRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_retries_total",
			Help:      "Total number of scheduled task retries",
		},
		[]string{"type"},
	)
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordFeedRefresh records one refresh and the ingestion counts it produced.
func RecordFeedRefresh(err error, duration time.Duration, added, updated, skipped, invalid int) {
	FeedRefreshTotal.WithLabelValues(status(err)).Inc()
	FeedRefreshDuration.Observe(duration.Seconds())

	ArticlesIngestedTotal.WithLabelValues("added").Add(float64(added))
	ArticlesIngestedTotal.WithLabelValues("updated").Add(float64(updated))
	ArticlesIngestedTotal.WithLabelValues("skipped").Add(float64(skipped))
	ArticlesIngestedTotal.WithLabelValues("invalid").Add(float64(invalid))
}

func RecordExtraction(err error) {
	ExtractionsTotal.WithLabelValues(status(err)).Inc()
}

// RecordSummary records a summarization request; kind is "single" or "combined".
func RecordSummary(kind string, err error, duration time.Duration) {
	SummariesTotal.WithLabelValues(kind, status(err)).Inc()
	SummaryDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func RecordSpeech(err error) {
	SpeechTotal.WithLabelValues(status(err)).Inc()
}

func RecordTaskRetry(taskType string) {
	TaskRetriesTotal.WithLabelValues(taskType).Inc()
}
