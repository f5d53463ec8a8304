package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of workflow health.
type MetricsSnapshot struct {
	ByStatus map[model.Status]int     `json:"by_status"`
	BySource map[model.SourceKind]int `json:"by_source"`

	Total       int `json:"total"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	NeedsReview int `json:"needs_review"`
	InProgress  int `json:"in_progress"`

	// FailureRate is FAILED_* over finished complaints (completed, failed
	// or waiting for review).
	FailureRate float64 `json:"failure_rate"`

	CollectedAt time.Time `json:"collected_at"`
}

// Finished returns the number of complaints the pipeline stopped on.
func (s *MetricsSnapshot) Finished() int {
	return s.Completed + s.Failed + s.NeedsReview
}

// FailedByStage returns FAILED_<STAGE> counts keyed by stage.
func (s *MetricsSnapshot) FailedByStage() map[model.Stage]int {
	out := make(map[model.Stage]int)
	for _, stage := range model.Stages() {
		if n := s.ByStatus[stage.Failed()]; n > 0 {
			out[stage] = n
		}
	}
	return out
}

// Counter is the slice of the store the collector reads.
type Counter interface {
	CountByStatus(ctx context.Context) (map[model.Status]int, error)
	CountBySource(ctx context.Context) (map[model.SourceKind]int, error)
}

var _ Counter = (store.Store)(nil)

// Collector gathers workflow metrics from the store.
type Collector struct {
	store Counter
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st Counter) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot of the current workflow states.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	byStatus, err := c.store.CountByStatus(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count by status")
	}
	bySource, err := c.store.CountBySource(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count by source")
	}

	snap := &MetricsSnapshot{
		ByStatus:    byStatus,
		BySource:    bySource,
		CollectedAt: c.now().UTC(),
	}
	if snap.ByStatus == nil {
		snap.ByStatus = map[model.Status]int{}
	}
	if snap.BySource == nil {
		snap.BySource = map[model.SourceKind]int{}
	}

	for status, n := range snap.ByStatus {
		snap.Total += n
		switch {
		case status == model.StatusCompleted:
			snap.Completed += n
		case status.IsFailed():
			snap.Failed += n
		case status == model.StatusNeedsReview:
			snap.NeedsReview += n
		default:
			snap.InProgress += n
		}
	}

	if finished := snap.Finished(); finished > 0 {
		snap.FailureRate = float64(snap.Failed) / float64(finished)
	}

	return snap, nil
}
