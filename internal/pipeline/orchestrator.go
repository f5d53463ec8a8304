package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/events"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
	"github.com/sells-group/complaint-cli/internal/store"
)

// persistTimeout bounds state writes made after the caller's context is
// cancelled.
const persistTimeout = 10 * time.Second

// storeOperation names the retry policy entry used for persistence.
const storeOperation = "store"

// Options tunes an Orchestrator.
type Options struct {
	Policy   resilience.Policy
	Breakers *resilience.Breakers
	Now      func() time.Time
	NewID    func() string
}

// Orchestrator is the only writer of workflow states. Calls for one
// complaint id must not overlap; the dispatcher enforces that.
type Orchestrator struct {
	store    store.Store
	stages   Handlers
	recorder *events.Recorder
	policy   resilience.Policy
	breakers *resilience.Breakers
	now      func() time.Time
	newID    func() string
}

// Submission is the result of Submit.
type Submission struct {
	State     *model.WorkflowState
	Duplicate bool
}

// ReprocessOptions controls a reprocess run.
type ReprocessOptions struct {
	// SupersedeTicket retires the linked ticket so the new run raises a
	// new one.
	SupersedeTicket bool
}

// New creates an Orchestrator. rec may be nil, in which case audit events
// go only to st.
func New(st store.Store, stages Handlers, rec *events.Recorder, opts Options) (*Orchestrator, error) {
	if st == nil {
		return nil, eris.New("pipeline: store is required")
	}
	if stages.Anonymize == nil || stages.Analyze == nil || stages.QA == nil ||
		stages.Route == nil || stages.Ticket == nil || stages.Notify == nil {
		return nil, eris.New("pipeline: every stage handler is required")
	}
	if rec == nil {
		rec = events.NewRecorder(st)
	}
	if opts.Breakers == nil {
		opts.Breakers = resilience.NewBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	if opts.Policy.Base.MaxAttempts == 0 {
		opts.Policy.Base = resilience.DefaultRetryConfig()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		store:    st,
		stages:   stages,
		recorder: rec,
		policy:   opts.Policy,
		breakers: opts.Breakers,
		now:      opts.Now,
		newID:    opts.NewID,
	}, nil
}

// Breakers exposes the per-stage circuit breakers.
func (o *Orchestrator) Breakers() *resilience.Breakers { return o.breakers }

// Submit validates and stores a new complaint with a NEW workflow state. A
// record whose (source, external id) is already known returns the existing
// state with Duplicate set.
func (o *Orchestrator) Submit(ctx context.Context, rec *model.ComplaintRecord) (*Submission, error) {
	if rec == nil {
		return nil, resilience.NewValidationError("record", "required")
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	existing, err := o.findBySource(ctx, rec)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return o.duplicate(ctx, existing)
	}

	in := *rec
	if in.ID == "" {
		in.ID = o.newID()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = o.now().UTC()
	}

	err = o.persist(ctx, func(ctx context.Context) error { return o.store.InsertComplaint(ctx, &in) })
	if errors.Is(err, store.ErrConflict) {
		existing, findErr := o.findBySource(ctx, &in)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, resilience.NewValidationError("id", "already used by another complaint")
		}
		return o.duplicate(ctx, existing)
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: insert complaint")
	}

	st := model.NewWorkflowState(&in, 1, o.newID(), o.now().UTC())
	if err := o.save(ctx, st); err != nil {
		return nil, err
	}
	o.record(ctx, st, model.EventSubmitted, "", "")
	zap.L().Info("pipeline: complaint submitted",
		zap.String("complaint_id", in.ID),
		zap.String("source", string(in.Source)),
	)
	return &Submission{State: st}, nil
}

func (o *Orchestrator) findBySource(ctx context.Context, rec *model.ComplaintRecord) (*model.ComplaintRecord, error) {
	var found *model.ComplaintRecord
	err := o.persist(ctx, func(ctx context.Context) error {
		var err error
		found, err = o.store.FindComplaintBySource(ctx, rec.Source, rec.ExternalID)
		return err
	})
	return found, eris.Wrap(err, "pipeline: find complaint")
}

func (o *Orchestrator) duplicate(ctx context.Context, rec *model.ComplaintRecord) (*Submission, error) {
	st, err := o.store.GetState(ctx, rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		// The record was stored but its first state was not.
		st = model.NewWorkflowState(rec, 1, o.newID(), o.now().UTC())
		if err := o.save(ctx, st); err != nil {
			return nil, err
		}
		o.record(ctx, st, model.EventSubmitted, "", "")
		return &Submission{State: st}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get state")
	}
	o.record(ctx, st, model.EventDuplicate, "", "")
	zap.L().Info("pipeline: duplicate complaint", zap.String("complaint_id", rec.ID))
	return &Submission{State: st, Duplicate: true}, nil
}

// GetState returns the latest state of a complaint, including its error
// history.
func (o *Orchestrator) GetState(ctx context.Context, id string) (*model.WorkflowState, error) {
	st, err := o.store.GetState(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: get state %s", id)
	}
	return st, nil
}

// ListPending returns states that have not completed.
func (o *Orchestrator) ListPending(ctx context.Context, filter store.StateFilter) ([]model.WorkflowState, error) {
	filter.PendingOnly = true
	states, err := o.store.ListStates(ctx, filter)
	return states, eris.Wrap(err, "pipeline: list pending")
}

// Events returns the audit trail of a complaint, newest first.
func (o *Orchestrator) Events(ctx context.Context, id string, limit int) ([]model.AuditEvent, error) {
	evs, err := o.store.ListEvents(ctx, id, limit)
	return evs, eris.Wrap(err, "pipeline: list events")
}

// Runs returns the archived runs of a complaint.
func (o *Orchestrator) Runs(ctx context.Context, id string) ([]model.WorkflowState, error) {
	runs, err := o.store.ListRuns(ctx, id)
	return runs, eris.Wrap(err, "pipeline: list runs")
}

// Process drives a complaint from its current boundary until it completes,
// fails or halts. A halted state is returned unchanged.
func (o *Orchestrator) Process(ctx context.Context, id string) (*model.WorkflowState, error) {
	rec, st, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status.Halted() {
		return st, nil
	}
	return o.drive(ctx, rec, st)
}

// Resume re-enters the pipeline of a failed, paused or interrupted
// complaint at its last completed boundary. Completed stages never run
// again. A complaint in NEEDS_REVIEW resumes at the QA gate with the
// analysis approved by the operator.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*model.WorkflowState, error) {
	rec, st, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status == model.StatusCompleted {
		return st, nil
	}

	from := st.Status
	next := st.Clone()
	next.Status = next.LastCompleted
	next.UpdatedAt = o.now().UTC()

	event := model.EventResumed
	if from == model.StatusNeedsReview {
		next.ReviewApproved = true
		event = model.EventReviewResumed
	}
	if err := o.save(ctx, next); err != nil {
		return nil, err
	}
	o.record(ctx, next, event, "", "")
	zap.L().Info("pipeline: resuming",
		zap.String("complaint_id", id),
		zap.String("from", string(from)),
		zap.String("at", string(next.Status)),
	)
	return o.drive(ctx, rec, next)
}

// Reprocess archives the current run and starts a new one from NEW. The
// linked ticket is kept unless opts.SupersedeTicket is set.
func (o *Orchestrator) Reprocess(ctx context.Context, id string, opts ReprocessOptions) (*model.WorkflowState, error) {
	rec, st, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := o.persist(ctx, func(ctx context.Context) error { return o.store.ArchiveRun(ctx, st) }); err != nil {
		return nil, eris.Wrap(err, "pipeline: archive run")
	}

	next := model.NewWorkflowState(rec, st.Run+1, o.newID(), o.now().UTC())
	next.TicketToken = st.TicketToken
	if opts.SupersedeTicket {
		var n int
		err := o.persist(ctx, func(ctx context.Context) error {
			var err error
			n, err = o.store.SupersedeTickets(ctx, id)
			return err
		})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: supersede tickets")
		}
		next.TicketToken = fmt.Sprintf("%s:r%d", id, next.Run)
		zap.L().Info("pipeline: tickets superseded", zap.String("complaint_id", id), zap.Int("count", n))
	}

	if err := o.save(ctx, next); err != nil {
		return nil, err
	}
	o.record(ctx, next, model.EventReprocessed, "", "")
	return o.drive(ctx, rec, next)
}

func (o *Orchestrator) load(ctx context.Context, id string) (*model.ComplaintRecord, *model.WorkflowState, error) {
	rec, err := o.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "pipeline: get complaint %s", id)
	}
	st, err := o.store.GetState(ctx, id)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "pipeline: get state %s", id)
	}
	if st.Attempts == nil {
		st.Attempts = make(map[model.Stage]int)
	}
	return rec, st, nil
}

// drive runs stages in order until the state halts. Stage failures are
// recorded in the state and do not produce an error; cancellation and
// persistence failures do.
func (o *Orchestrator) drive(ctx context.Context, rec *model.ComplaintRecord, st *model.WorkflowState) (*model.WorkflowState, error) {
	for {
		if st.Status == model.StatusNotified {
			return o.complete(ctx, st)
		}
		stage, ok := model.NextStage(st.Status)
		if !ok {
			return st, nil
		}
		if err := ctx.Err(); err != nil {
			return o.cancel(ctx, st, stage, err)
		}

		var err error
		switch stage {
		case model.StageQA:
			st, err = o.runQA(ctx, rec, st)
		case model.StageTicket:
			st, err = o.runTicket(ctx, rec, st)
		default:
			st, err = o.runStage(ctx, rec, st, stage)
		}
		if err != nil {
			return st, err
		}
	}
}

func (o *Orchestrator) runStage(ctx context.Context, rec *model.ComplaintRecord, st *model.WorkflowState, stage model.Stage) (*model.WorkflowState, error) {
	out, err := o.invoke(ctx, rec, st, stage, false)
	if err != nil {
		return o.fail(ctx, st, stage, err)
	}
	next := st.Clone()
	o.apply(next, stage, out)
	return o.advance(ctx, next, stage, model.EventTransition)
}

// runQA applies the QA gate. An inconsistent analysis gets exactly one
// strict re-analysis; a second inconsistency pauses the run for review.
func (o *Orchestrator) runQA(ctx context.Context, rec *model.ComplaintRecord, st *model.WorkflowState) (*model.WorkflowState, error) {
	if st.ReviewApproved && st.Analysis != nil {
		next := st.Clone()
		next.Analysis = st.Analysis.WithQuality(model.QualityApproved, "aprovada em revisão manual")
		return o.advance(ctx, next, model.StageQA, model.EventTransition)
	}

	out, err := o.invoke(ctx, rec, st, model.StageQA, false)
	if err == nil {
		next := st.Clone()
		o.apply(next, model.StageQA, out)
		return o.advance(ctx, next, model.StageQA, model.EventTransition)
	}
	var ce *resilience.ConsistencyError
	if !errors.As(err, &ce) {
		return o.fail(ctx, st, model.StageQA, err)
	}
	if st.QAReanalyzed {
		return o.needsReview(ctx, st, ce)
	}

	o.record(ctx, st, model.EventReanalysis, model.StageQA, resilience.KindConsistency)
	zap.L().Info("pipeline: qa inconsistent, re-analyzing",
		zap.String("complaint_id", st.ComplaintID),
		zap.String("check", ce.Check),
	)
	out, err = o.invoke(ctx, rec, st, model.StageAnalyze, true)
	if err != nil {
		return o.fail(ctx, st, model.StageQA, err)
	}
	next := st.Clone()
	next.PriorAnalyses = append(next.PriorAnalyses, *st.Analysis)
	next.Analysis = out.Analysis
	next.QAReanalyzed = true
	next.UpdatedAt = o.now().UTC()
	if err := o.save(ctx, next); err != nil {
		return nil, err
	}

	out, err = o.invoke(ctx, rec, next, model.StageQA, false)
	if err == nil {
		final := next.Clone()
		o.apply(final, model.StageQA, out)
		return o.advance(ctx, final, model.StageQA, model.EventTransition)
	}
	if errors.As(err, &ce) {
		return o.needsReview(ctx, next, ce)
	}
	return o.fail(ctx, next, model.StageQA, err)
}

func (o *Orchestrator) needsReview(ctx context.Context, st *model.WorkflowState, ce *resilience.ConsistencyError) (*model.WorkflowState, error) {
	next := st.Clone()
	next.Analysis = st.Analysis.WithQuality(model.QualityNeedsReview, ce.Detail)
	next.Status = model.StatusNeedsReview
	next.UpdatedAt = o.now().UTC()
	if err := o.save(ctx, next); err != nil {
		return nil, err
	}
	o.stages.Anonymize.Forget(st.ComplaintID)
	o.record(ctx, next, model.EventNeedsReview, model.StageQA, resilience.KindConsistency)
	zap.L().Warn("pipeline: analysis needs review",
		zap.String("complaint_id", st.ComplaintID),
		zap.String("check", ce.Check),
	)
	return next, nil
}

// runTicket reuses the linked ticket when one exists and otherwise raises
// a new one under the run's idempotency token.
func (o *Orchestrator) runTicket(ctx context.Context, rec *model.ComplaintRecord, st *model.WorkflowState) (*model.WorkflowState, error) {
	linked, err := o.activeTicket(ctx, st.ComplaintID)
	if err != nil {
		return nil, err
	}
	if linked != nil {
		next := st.Clone()
		linked.Reused = true
		next.Ticket = linked
		return o.advance(ctx, next, model.StageTicket, model.EventTicketReused)
	}

	out, err := o.invoke(ctx, rec, st, model.StageTicket, false)
	if err != nil {
		return o.fail(ctx, st, model.StageTicket, err)
	}

	t := *out.Ticket
	t.ComplaintID = st.ComplaintID
	t.Token = st.IdempotencyToken()
	t.Run = st.Run
	t.Superseded = false
	if t.CreatedAt.IsZero() {
		t.CreatedAt = o.now().UTC()
	}

	err = o.persist(ctx, func(ctx context.Context) error { return o.store.SaveTicket(ctx, &t) })
	if errors.Is(err, store.ErrConflict) {
		// Another writer linked a ticket first; adopt it.
		linked, err = o.activeTicket(ctx, st.ComplaintID)
		if err != nil {
			return nil, err
		}
		if linked == nil {
			return nil, eris.Wrap(resilience.ErrDuplicateTicket, "pipeline: ticket conflict without linked ticket")
		}
		linked.Reused = true
		t = *linked
	} else if err != nil {
		return nil, eris.Wrap(err, "pipeline: save ticket")
	}

	next := st.Clone()
	next.Ticket = &t
	event := model.EventTransition
	if t.Reused {
		event = model.EventTicketReused
	}
	return o.advance(ctx, next, model.StageTicket, event)
}

func (o *Orchestrator) activeTicket(ctx context.Context, id string) (*model.TicketRecord, error) {
	var t *model.TicketRecord
	err := o.persist(ctx, func(ctx context.Context) error {
		var err error
		t, err = o.store.FindActiveTicket(ctx, id)
		return err
	})
	return t, eris.Wrap(err, "pipeline: find linked ticket")
}

// invoke runs one stage handler under the stage retry policy and circuit
// breaker. Every attempt is counted and every failed attempt is recorded
// in st's error history.
func (o *Orchestrator) invoke(ctx context.Context, rec *model.ComplaintRecord, st *model.WorkflowState, stage model.Stage, strict bool) (*Outcome, error) {
	h := o.stages.lookup(stage)
	view := View{Record: rec, State: st.Clone(), Strict: strict}
	log := zap.L().With(
		zap.String("complaint_id", st.ComplaintID),
		zap.String("stage", string(stage)),
		zap.Int("run", st.Run),
	)

	cfg := o.policy.For(string(stage))
	cfg.OnRetry = resilience.RetryLogger("pipeline", string(stage))
	cfg.OnFailure = func(attempt int, err error) {
		if ctx.Err() != nil {
			return
		}
		kind := resilience.Classify(err)
		st.Errors = append(st.Errors, model.StageError{
			Run:     st.Run,
			Stage:   stage,
			Attempt: st.Attempts[stage],
			Kind:    string(kind),
			Message: err.Error(),
			At:      o.now().UTC(),
		})
		log.Warn("pipeline: stage attempt failed",
			zap.Int("attempt", attempt),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	breaker := o.breakers.Get(string(stage))
	start := time.Now()
	out, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Outcome, error) {
		st.Attempts[stage]++
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*Outcome, error) {
			return h.Execute(ctx, view)
		})
	})
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		st.Errors = append(st.Errors, model.StageError{
			Run:     st.Run,
			Stage:   stage,
			Attempt: st.Attempts[stage],
			Kind:    string(resilience.Classify(w)),
			Message: w.Error(),
			At:      o.now().UTC(),
		})
		log.Warn("pipeline: stage warning", zap.Error(w))
	}
	log.Debug("pipeline: stage executed", zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (o *Orchestrator) apply(st *model.WorkflowState, stage model.Stage, out *Outcome) {
	switch stage {
	case model.StageAnonymize:
		st.Masked = out.Masked
	case model.StageAnalyze, model.StageQA:
		st.Analysis = out.Analysis
	case model.StageRoute:
		st.Routing = out.Routing
		if st.Routing.DecidedAt.IsZero() {
			st.Routing.DecidedAt = o.now().UTC()
		}
	case model.StageNotify:
		st.Notifications = append(st.Notifications, out.Notifications...)
	}
}

// advance moves st past stage and persists it.
func (o *Orchestrator) advance(ctx context.Context, st *model.WorkflowState, stage model.Stage, event string) (*model.WorkflowState, error) {
	st.Status = stage.To()
	st.LastCompleted = st.Status
	st.UpdatedAt = o.now().UTC()
	if err := o.save(ctx, st); err != nil {
		return nil, err
	}
	o.record(ctx, st, event, stage, "")
	zap.L().Info("pipeline: stage complete",
		zap.String("complaint_id", st.ComplaintID),
		zap.String("stage", string(stage)),
		zap.String("status", string(st.Status)),
	)
	return st, nil
}

// fail moves st to the stage's failure status and drops the complaint's
// unmasked originals; a resumed run restores them from the record.
// Cancellation is never a failure.
func (o *Orchestrator) fail(ctx context.Context, st *model.WorkflowState, stage model.Stage, err error) (*model.WorkflowState, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return o.cancel(ctx, st, stage, ctxErr)
	}
	kind := resilience.Classify(err)
	next := st.Clone()
	next.Status = stage.Failed()
	next.UpdatedAt = o.now().UTC()
	if saveErr := o.save(ctx, next); saveErr != nil {
		return nil, saveErr
	}
	o.stages.Anonymize.Forget(st.ComplaintID)
	o.record(ctx, next, model.EventFailed, stage, kind)
	zap.L().Error("pipeline: stage failed",
		zap.String("complaint_id", st.ComplaintID),
		zap.String("stage", string(stage)),
		zap.String("kind", string(kind)),
		zap.Int("attempts", next.Attempts[stage]),
		zap.Error(err),
	)
	return next, nil
}

// cancel records the interruption and leaves st at its last completed
// boundary so it can be resumed.
func (o *Orchestrator) cancel(ctx context.Context, st *model.WorkflowState, stage model.Stage, cause error) (*model.WorkflowState, error) {
	next := st.Clone()
	next.Status = next.LastCompleted
	next.UpdatedAt = o.now().UTC()
	next.Errors = append(next.Errors, model.StageError{
		Run:     next.Run,
		Stage:   stage,
		Attempt: next.Attempts[stage],
		Kind:    string(resilience.KindCancelled),
		Message: "cancelled",
		At:      next.UpdatedAt,
	})
	if err := o.save(ctx, next); err != nil {
		return nil, err
	}
	o.record(ctx, next, model.EventCancelled, stage, resilience.KindCancelled)
	zap.L().Warn("pipeline: cancelled",
		zap.String("complaint_id", st.ComplaintID),
		zap.String("stage", string(stage)),
		zap.String("status", string(next.Status)),
	)
	return next, eris.Wrapf(cause, "pipeline: %s cancelled at %s", st.ComplaintID, stage)
}

// complete finalizes a notified run.
func (o *Orchestrator) complete(ctx context.Context, st *model.WorkflowState) (*model.WorkflowState, error) {
	next := st.Clone()
	now := o.now().UTC()
	next.Status = model.StatusCompleted
	next.LastCompleted = model.StatusCompleted
	next.UpdatedAt = now
	next.CompletedAt = &now
	if err := o.save(ctx, next); err != nil {
		return nil, err
	}
	o.stages.Anonymize.Forget(st.ComplaintID)
	o.record(ctx, next, model.EventCompleted, "", "")
	zap.L().Info("pipeline: complaint completed",
		zap.String("complaint_id", st.ComplaintID),
		zap.Int("run", st.Run),
	)
	return next, nil
}

// save writes st under the persistence retry policy. It survives caller
// cancellation so a finished stage is never lost.
func (o *Orchestrator) save(ctx context.Context, st *model.WorkflowState) error {
	err := o.persist(ctx, func(ctx context.Context) error { return o.store.SaveState(ctx, st) })
	return eris.Wrapf(err, "pipeline: save state %s", st.ComplaintID)
}

func (o *Orchestrator) persist(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	cfg := o.policy.For(storeOperation)
	cfg.AttemptTimeout = 0
	cfg.OnRetry = resilience.RetryLogger("store", "persist")
	return resilience.Do(ctx, cfg, fn)
}

func (o *Orchestrator) record(ctx context.Context, st *model.WorkflowState, typ string, stage model.Stage, kind resilience.ErrorKind) {
	ev := &model.AuditEvent{
		ComplaintID: st.ComplaintID,
		Run:         st.Run,
		Type:        typ,
		Stage:       stage,
		Status:      st.Status,
		ErrorKind:   string(kind),
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := o.recorder.Record(ctx, ev); err != nil {
		zap.L().Error("pipeline: record audit event",
			zap.String("complaint_id", st.ComplaintID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}
