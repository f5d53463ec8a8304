// Package ticketing implements ticket providers: a local tracker and a
// Jira-backed tracker. Both deduplicate by idempotency token.
package ticketing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

// Ledger is the durable record of tickets already raised. store.Store
// satisfies it.
type Ledger interface {
	FindTicketByToken(ctx context.Context, token string) (*model.TicketRecord, error)
	MaxTicketSequence(ctx context.Context, projectKey string) (int, error)
}

// LocalTracker is an in-process ticket tracker. Keys are sequential
// (PROJECT-1001, PROJECT-1002, ...). With a ledger, numbering continues
// after the highest key already stored and tokens resolve to tickets raised
// by earlier processes.
type LocalTracker struct {
	mu         sync.Mutex
	projectKey string
	browseURL  string
	counter    int
	byToken    map[string]*model.TicketRecord
	ledger     Ledger
	now        func() time.Time
}

var _ capability.Ticketer = (*LocalTracker)(nil)

// LocalOption configures a LocalTracker.
type LocalOption func(*LocalTracker)

// WithLedger backs the tracker with persisted tickets.
func WithLedger(l Ledger) LocalOption {
	return func(t *LocalTracker) { t.ledger = l }
}

// NewLocalTracker creates a tracker for projectKey whose links point at
// browseURL.
func NewLocalTracker(projectKey, browseURL string, opts ...LocalOption) *LocalTracker {
	if projectKey == "" {
		projectKey = "SUPORTE"
	}
	t := &LocalTracker{
		projectKey: projectKey,
		browseURL:  strings.TrimRight(browseURL, "/"),
		counter:    1000,
		byToken:    make(map[string]*model.TicketRecord),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CreateTicket returns the existing ticket for the token or creates one.
func (t *LocalTracker) CreateTicket(ctx context.Context, req capability.TicketRequest) (*model.TicketRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.IdempotencyToken == "" {
		return nil, resilience.NewFatalError(eris.New("ticketing: empty idempotency token"), "invalid ticket request")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byToken[req.IdempotencyToken]; ok {
		out := *existing
		out.Reused = true
		return &out, nil
	}

	if t.ledger != nil {
		stored, err := t.ledger.FindTicketByToken(ctx, req.IdempotencyToken)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "ticketing: look up token"), 0)
		}
		if stored != nil {
			rec := &model.TicketRecord{
				TicketID:  stored.TicketID,
				Key:       stored.Key,
				Link:      stored.Link,
				Status:    stored.Status,
				Token:     stored.Token,
				CreatedAt: stored.CreatedAt,
			}
			t.byToken[req.IdempotencyToken] = rec
			out := *rec
			out.Reused = true
			return &out, nil
		}

		seq, err := t.ledger.MaxTicketSequence(ctx, t.projectKey)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "ticketing: read ticket sequence"), 0)
		}
		if seq > t.counter {
			t.counter = seq
		}
	}

	t.counter++
	key := fmt.Sprintf("%s-%d", t.projectKey, t.counter)
	rec := &model.TicketRecord{
		TicketID:  fmt.Sprintf("%d", t.counter),
		Key:       key,
		Link:      t.browseURL + "/" + key,
		Status:    "Open",
		Token:     req.IdempotencyToken,
		CreatedAt: t.now().UTC(),
	}
	t.byToken[req.IdempotencyToken] = rec

	zap.L().Info("ticketing: created local ticket",
		zap.String("key", key),
		zap.String("priority", string(req.Priority)),
		zap.String("assignee", req.Assignee),
	)

	out := *rec
	return &out, nil
}

// Count returns the number of tickets created.
func (t *LocalTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byToken)
}
