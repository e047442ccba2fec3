package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordFeedRefresh(t *testing.T) {
	before := testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("added"))
	failures := testutil.ToFloat64(FeedRefreshTotal.WithLabelValues("error"))

	RecordFeedRefresh(nil, time.Second, 3, 1, 2, 0)
	RecordFeedRefresh(errors.New("boom"), time.Second, 0, 0, 0, 0)

	if got := testutil.ToFloat64(ArticlesIngestedTotal.WithLabelValues("added")) - before; got != 3 {
		t.Errorf("Expected 3 added articles recorded, got %v", got)
	}
	if got := testutil.ToFloat64(FeedRefreshTotal.WithLabelValues("error")) - failures; got != 1 {
		t.Errorf("Expected 1 failed refresh recorded, got %v", got)
	}
}

func TestRecordSummary(t *testing.T) {
	before := testutil.ToFloat64(SummariesTotal.WithLabelValues("combined", "success"))

	RecordSummary("combined", nil, 2*time.Second)

	if got := testutil.ToFloat64(SummariesTotal.WithLabelValues("combined", "success")) - before; got != 1 {
		t.Errorf("Expected 1 combined summary recorded, got %v", got)
	}
}
