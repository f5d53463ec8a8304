// Package dispatch drives complaints through the orchestrator with at most
// one run per complaint id and a ceiling on concurrent runs.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/pipeline"
)

// DefaultMaxConcurrent is used when no ceiling is configured.
const DefaultMaxConcurrent = 4

// ErrInFlight is returned when a complaint is already running a different
// operation.
var ErrInFlight = eris.New("dispatch: complaint already in flight")

// Op is a dispatchable orchestrator operation.
type Op string

// Operations.
const (
	OpProcess   Op = "process"
	OpResume    Op = "resume"
	OpReprocess Op = "reprocess"
)

// Runner is the orchestrator surface the dispatcher drives.
type Runner interface {
	Process(ctx context.Context, id string) (*model.WorkflowState, error)
	Resume(ctx context.Context, id string) (*model.WorkflowState, error)
	Reprocess(ctx context.Context, id string, opts pipeline.ReprocessOptions) (*model.WorkflowState, error)
}

var _ Runner = (*pipeline.Orchestrator)(nil)

// Request asks for one operation on one complaint.
type Request struct {
	ID        string
	Op        Op
	Reprocess pipeline.ReprocessOptions
}

// Result is the outcome of a Request. Shared is set when the caller joined
// a run started by another caller.
type Result struct {
	ID     string
	Op     Op
	State  *model.WorkflowState
	Err    error
	Shared bool
}

type flight struct {
	op    Op
	state *model.WorkflowState
	err   error
}

// Dispatcher serializes runs per complaint id and bounds concurrent runs
// across ids.
type Dispatcher struct {
	runner Runner
	limit  int
	sem    *semaphore.Weighted
	group  singleflight.Group

	mu       sync.Mutex
	inflight map[string]Op
	cancels  map[string]context.CancelFunc

	active atomic.Int64
	wg     sync.WaitGroup
}

// New creates a Dispatcher running at most maxConcurrent complaints at once.
func New(runner Runner, maxConcurrent int) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Dispatcher{
		runner:   runner,
		limit:    maxConcurrent,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		inflight: make(map[string]Op),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Limit returns the concurrency ceiling.
func (d *Dispatcher) Limit() int { return d.limit }

// Active returns the number of runs holding a concurrency slot.
func (d *Dispatcher) Active() int { return int(d.active.Load()) }

// InFlight reports the operation running for id, if any.
func (d *Dispatcher) InFlight(id string) (Op, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	op, ok := d.inflight[id]
	return op, ok
}

// Dispatch runs req and waits for its result. A request for an id that is
// already running joins that run; when the running operation differs the
// caller waits for it and then receives ErrInFlight.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	if req.Op == "" {
		req.Op = OpProcess
	}
	ch := d.group.DoChan(req.ID, func() (any, error) {
		return d.run(ctx, req), nil
	})

	select {
	case <-ctx.Done():
		return Result{ID: req.ID, Op: req.Op, Err: ctx.Err()}
	case r := <-ch:
		f := r.Val.(*flight)
		if f.op != req.Op {
			return Result{
				ID:     req.ID,
				Op:     req.Op,
				State:  f.state,
				Err:    eris.Wrapf(ErrInFlight, "dispatch: %s requested for %s while %s ran", req.Op, req.ID, f.op),
				Shared: true,
			}
		}
		return Result{ID: req.ID, Op: req.Op, State: f.state, Err: f.err, Shared: r.Shared}
	}
}

// Go dispatches req in the background under ctx. Wait blocks until every
// background dispatch has finished.
func (d *Dispatcher) Go(ctx context.Context, req Request) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		res := d.Dispatch(ctx, req)
		if res.Err != nil {
			zap.L().Warn("dispatch: background run ended with error",
				zap.String("complaint_id", req.ID),
				zap.String("op", string(req.Op)),
				zap.Error(res.Err),
			)
		}
	}()
}

// Wait blocks until background dispatches finish.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Batch dispatches every request and returns results in request order.
// Individual failures never stop the batch.
func (d *Dispatcher) Batch(ctx context.Context, reqs []Request) []Result {
	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.limit)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = d.Dispatch(gctx, req)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Abort cancels the run in flight for id. It reports whether a run was
// found.
func (d *Dispatcher) Abort(id string) bool {
	d.mu.Lock()
	cancel, ok := d.cancels[id]
	d.mu.Unlock()
	if ok {
		cancel()
		zap.L().Info("dispatch: abort requested", zap.String("complaint_id", id))
	}
	return ok
}

func (d *Dispatcher) run(parent context.Context, req Request) (f *flight) {
	f = &flight{op: req.Op}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	d.mu.Lock()
	d.inflight[req.ID] = req.Op
	d.cancels[req.ID] = cancel
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		delete(d.inflight, req.ID)
		delete(d.cancels, req.ID)
		d.mu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			f.err = eris.Errorf("dispatch: panic running %s for %s: %v", req.Op, req.ID, r)
			zap.L().Error("dispatch: run panicked",
				zap.String("complaint_id", req.ID),
				zap.Any("panic", r),
			)
		}
	}()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		f.err = eris.Wrap(err, "dispatch: acquire slot")
		return f
	}
	d.active.Add(1)
	defer func() {
		d.active.Add(-1)
		d.sem.Release(1)
	}()

	log := zap.L().With(zap.String("complaint_id", req.ID), zap.String("op", string(req.Op)))
	log.Debug("dispatch: run started")

	switch req.Op {
	case OpProcess:
		f.state, f.err = d.runner.Process(ctx, req.ID)
	case OpResume:
		f.state, f.err = d.runner.Resume(ctx, req.ID)
	case OpReprocess:
		f.state, f.err = d.runner.Reprocess(ctx, req.ID, req.Reprocess)
	default:
		f.err = eris.Errorf("dispatch: unknown operation %q", req.Op)
	}

	if f.err != nil {
		log.Warn("dispatch: run failed", zap.Error(f.err))
	} else if f.state != nil {
		log.Debug("dispatch: run finished", zap.String("status", string(f.state.Status)))
	}
	return f
}
