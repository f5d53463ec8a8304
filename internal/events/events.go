// Package events records workflow audit events. Events always go to the
// store; Kafka publication is optional and best-effort.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/store"
)

// Publisher receives audit events.
type Publisher interface {
	Publish(ctx context.Context, ev *model.AuditEvent) error
	Close() error
}

// Recorder stamps events and writes them to the store, then forwards them
// to any extra publishers. A failure of an extra publisher is logged and
// never fails the caller.
type Recorder struct {
	store store.Store
	extra []Publisher
	now   func() time.Time
}

// NewRecorder creates a Recorder over st.
func NewRecorder(st store.Store, extra ...Publisher) *Recorder {
	return &Recorder{store: st, extra: extra, now: time.Now}
}

// Record fills in id and timestamp when missing and persists ev.
func (r *Recorder) Record(ctx context.Context, ev *model.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now().UTC()
	}

	if err := r.store.AppendEvent(ctx, ev); err != nil {
		return eris.Wrapf(err, "events: append %s for %s", ev.Type, ev.ComplaintID)
	}

	for _, p := range r.extra {
		if err := p.Publish(ctx, ev); err != nil {
			zap.L().Warn("events: publish failed",
				zap.String("complaint_id", ev.ComplaintID),
				zap.String("type", ev.Type),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Close closes the extra publishers.
func (r *Recorder) Close() error {
	var first error
	for _, p := range r.extra {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
