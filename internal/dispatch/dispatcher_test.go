package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/pipeline"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls map[string]int

	running    atomic.Int32
	maxRunning atomic.Int32

	started chan string
	release chan struct{}
	hold    time.Duration
	panics  bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		calls:   make(map[string]int),
		started: make(chan string, 16),
	}
}

func (f *fakeRunner) do(ctx context.Context, op Op, id string) (*model.WorkflowState, error) {
	f.mu.Lock()
	f.calls[string(op)+":"+id]++
	f.mu.Unlock()

	n := f.running.Add(1)
	defer f.running.Add(-1)
	for {
		cur := f.maxRunning.Load()
		if n <= cur || f.maxRunning.CompareAndSwap(cur, n) {
			break
		}
	}

	f.started <- id
	if f.panics {
		panic("boom")
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	return &model.WorkflowState{ComplaintID: id, Status: model.StatusCompleted}, nil
}

func (f *fakeRunner) Process(ctx context.Context, id string) (*model.WorkflowState, error) {
	return f.do(ctx, OpProcess, id)
}

func (f *fakeRunner) Resume(ctx context.Context, id string) (*model.WorkflowState, error) {
	return f.do(ctx, OpResume, id)
}

func (f *fakeRunner) Reprocess(ctx context.Context, id string, _ pipeline.ReprocessOptions) (*model.WorkflowState, error) {
	return f.do(ctx, OpReprocess, id)
}

func (f *fakeRunner) count(op Op, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[string(op)+":"+id]
}

func TestDispatch_SingleFlightPerID(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	d := New(runner, 4)
	ctx := context.Background()

	var first, second Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = d.Dispatch(ctx, Request{ID: "RA-1001", Op: OpProcess})
	}()
	<-runner.started

	op, ok := d.InFlight("RA-1001")
	require.True(t, ok)
	assert.Equal(t, OpProcess, op)

	wg.Add(1)
	go func() {
		defer wg.Done()
		second = d.Dispatch(ctx, Request{ID: "RA-1001", Op: OpProcess})
	}()
	time.Sleep(20 * time.Millisecond)
	close(runner.release)
	wg.Wait()

	assert.Equal(t, 1, runner.count(OpProcess, "RA-1001"))
	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Same(t, first.State, second.State)
	assert.True(t, second.Shared)

	_, ok = d.InFlight("RA-1001")
	assert.False(t, ok)
}

func TestDispatch_DifferentOpIsRejectedAfterWaiting(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	d := New(runner, 2)
	ctx := context.Background()

	done := make(chan Result, 1)
	go func() { done <- d.Dispatch(ctx, Request{ID: "RA-1001", Op: OpProcess}) }()
	<-runner.started

	resumed := make(chan Result, 1)
	go func() { resumed <- d.Dispatch(ctx, Request{ID: "RA-1001", Op: OpResume}) }()
	time.Sleep(20 * time.Millisecond)
	close(runner.release)

	res := <-resumed
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, ErrInFlight))
	assert.Equal(t, 0, runner.count(OpResume, "RA-1001"))
	require.NoError(t, (<-done).Err)
}

func TestBatch_RespectsCeiling(t *testing.T) {
	runner := newFakeRunner()
	runner.started = make(chan string, 64)
	runner.hold = 15 * time.Millisecond
	d := New(runner, 2)

	var reqs []Request
	for i := 0; i < 8; i++ {
		reqs = append(reqs, Request{ID: fmt.Sprintf("C-%d", i)})
	}
	results := d.Batch(context.Background(), reqs)

	require.Len(t, results, 8)
	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, reqs[i].ID, r.ID)
		assert.Equal(t, OpProcess, r.Op)
		assert.Equal(t, 1, runner.count(OpProcess, reqs[i].ID))
	}
	assert.LessOrEqual(t, runner.maxRunning.Load(), int32(2))
	assert.Equal(t, 0, d.Active())
}

func TestAbort_CancelsRun(t *testing.T) {
	runner := newFakeRunner()
	runner.release = make(chan struct{})
	d := New(runner, 1)

	done := make(chan Result, 1)
	go func() { done <- d.Dispatch(context.Background(), Request{ID: "RA-1001", Op: OpReprocess}) }()
	<-runner.started

	assert.True(t, d.Abort("RA-1001"))
	res := <-done
	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.False(t, d.Abort("RA-1001"))
}

func TestDispatch_RecoversPanic(t *testing.T) {
	runner := newFakeRunner()
	runner.panics = true
	d := New(runner, 1)

	res := d.Dispatch(context.Background(), Request{ID: "RA-1001", Op: OpResume})
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "panic")
	assert.Equal(t, 0, d.Active())
}

func TestDispatch_UnknownOp(t *testing.T) {
	d := New(newFakeRunner(), 1)
	res := d.Dispatch(context.Background(), Request{ID: "RA-1001", Op: "delete"})
	require.Error(t, res.Err)
}

func TestGo_BackgroundRuns(t *testing.T) {
	runner := newFakeRunner()
	d := New(runner, 2)
	d.Go(context.Background(), Request{ID: "A"})
	d.Go(context.Background(), Request{ID: "B", Op: OpResume})
	d.Wait()

	assert.Equal(t, 1, runner.count(OpProcess, "A"))
	assert.Equal(t, 1, runner.count(OpResume, "B"))
}

func TestNew_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultMaxConcurrent, New(newFakeRunner(), 0).Limit())
}
