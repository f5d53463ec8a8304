package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id, externalID string) *model.ComplaintRecord {
	return &model.ComplaintRecord{
		ID:          id,
		ExternalID:  externalID,
		Source:      model.SourceFeedbackSite,
		Title:       "Produto com defeito",
		Description: "A TV parou de funcionar.",
		CreatedAt:   time.Now().UTC(),
	}
}

func seedState(t *testing.T, s Store, id string, status model.Status, updated time.Time) *model.WorkflowState {
	t.Helper()
	ctx := context.Background()
	rec := testRecord(id, "ext-"+id)
	require.NoError(t, s.InsertComplaint(ctx, rec))
	st := model.NewWorkflowState(rec, 1, "run-"+id, updated)
	st.Status = status
	st.UpdatedAt = updated
	require.NoError(t, s.SaveState(ctx, st))
	return st
}

func TestSQLiteStore_ComplaintDedup(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertComplaint(ctx, testRecord("RA-1001", "1001")))

	err := s.InsertComplaint(ctx, testRecord("RA-other", "1001"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	found, err := s.FindComplaintBySource(ctx, model.SourceFeedbackSite, "1001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "RA-1001", found.ID)

	missing, err := s.FindComplaintBySource(ctx, model.SourceChat, "1001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got, err := s.GetComplaint(ctx, "RA-1001")
	require.NoError(t, err)
	assert.Equal(t, "A TV parou de funcionar.", got.Description)

	_, err = s.GetComplaint(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_StateRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	st := seedState(t, s, "RA-1", model.StatusNew, time.Now().UTC())
	st.Status = model.StatusAnalyzed
	st.LastCompleted = model.StatusAnalyzed
	st.Attempts[model.StageAnalyze] = 2
	st.Analysis = &model.AnalysisResult{Version: 1, Summary: "s", Category: model.CategoryDefective}
	st.Errors = append(st.Errors, model.StageError{Stage: model.StageAnalyze, Attempt: 1, Kind: "transient"})
	require.NoError(t, s.SaveState(ctx, st))

	got, err := s.GetState(ctx, "RA-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnalyzed, got.Status)
	assert.Equal(t, 2, got.Attempts[model.StageAnalyze])
	assert.Equal(t, model.CategoryDefective, got.Analysis.Category)
	require.Len(t, got.Errors, 1)

	_, err = s.GetState(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_ListStates(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	seedState(t, s, "A", model.StatusCompleted, base)
	seedState(t, s, "B", model.StatusFailedRoute, base.Add(time.Minute))
	seedState(t, s, "C", model.StatusNeedsReview, base.Add(2*time.Minute))
	seedState(t, s, "D", model.StatusNew, base.Add(3*time.Minute))

	pending, err := s.ListStates(ctx, StateFilter{PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "B", pending[0].ComplaintID)

	failed, err := s.ListStates(ctx, StateFilter{Statuses: []model.Status{model.StatusFailedRoute, model.StatusNeedsReview}})
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	page, err := s.ListStates(ctx, StateFilter{PendingOnly: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "C", page[0].ComplaintID)

	bySource, err := s.ListStates(ctx, StateFilter{Source: model.SourceEmail})
	require.NoError(t, err)
	assert.Empty(t, bySource)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.StatusCompleted])
	assert.Equal(t, 1, counts[model.StatusNeedsReview])

	sources, err := s.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sources[model.SourceFeedbackSite])
}

func TestSQLiteStore_ArchiveRuns(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	st := seedState(t, s, "RA-9", model.StatusCompleted, time.Now().UTC())
	require.NoError(t, s.ArchiveRun(ctx, st))
	require.NoError(t, s.ArchiveRun(ctx, st), "archiving the same run twice is a no-op")

	runs, err := s.ListRuns(ctx, "RA-9")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.StatusCompleted, runs[0].Status)
}

func TestSQLiteStore_TicketLink(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	seedState(t, s, "RA-1001", model.StatusRouted, time.Now().UTC())

	none, err := s.FindActiveTicket(ctx, "RA-1001")
	require.NoError(t, err)
	assert.Nil(t, none)

	ticket := &model.TicketRecord{
		ComplaintID: "RA-1001", TicketID: "10001", Key: "SUPORTE-1001",
		Link: "https://jira.example.com/browse/SUPORTE-1001", Status: "Open",
		Token: "RA-1001", Run: 1, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.SaveTicket(ctx, ticket))

	dup := *ticket
	dup.TicketID = "10002"
	err = s.SaveTicket(ctx, &dup)
	assert.True(t, errors.Is(err, ErrConflict), "only one active ticket per complaint")

	active, err := s.FindActiveTicket(ctx, "RA-1001")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "SUPORTE-1001", active.Key)
	assert.False(t, active.Superseded)

	n, err := s.SupersedeTickets(ctx, "RA-1001")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.SaveTicket(ctx, &dup), "a new ticket is allowed after superseding")
}

func TestSQLiteStore_TicketLedger(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedState(t, s, "RA-1001", model.StatusRouted, now)
	seedState(t, s, "RA-1002", model.StatusRouted, now)

	seq, err := s.MaxTicketSequence(ctx, "SUPORTE")
	require.NoError(t, err)
	assert.Zero(t, seq)

	for _, tk := range []*model.TicketRecord{
		{ComplaintID: "RA-1001", TicketID: "1009", Key: "SUPORTE-1009", Token: "RA-1001"},
		{ComplaintID: "RA-1002", TicketID: "1010", Key: "SUPORTE-1010", Token: "RA-1002"},
	} {
		tk.Status, tk.Run, tk.CreatedAt = "Open", 1, now
		require.NoError(t, s.SaveTicket(ctx, tk))
	}
	_, err = s.SupersedeTickets(ctx, "RA-1002")
	require.NoError(t, err)
	require.NoError(t, s.SaveTicket(ctx, &model.TicketRecord{
		ComplaintID: "RA-1002", TicketID: "77", Key: "OUTRO-77", Token: "RA-1002:r2",
		Status: "Open", Run: 2, CreatedAt: now,
	}))

	seq, err = s.MaxTicketSequence(ctx, "SUPORTE")
	require.NoError(t, err)
	assert.Equal(t, 1010, seq, "superseded tickets still hold their key")

	seq, err = s.MaxTicketSequence(ctx, "OUTRO")
	require.NoError(t, err)
	assert.Equal(t, 77, seq)

	found, err := s.FindTicketByToken(ctx, "RA-1001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "SUPORTE-1009", found.Key)
	assert.Equal(t, "RA-1001", found.ComplaintID)

	missing, err := s.FindTicketByToken(ctx, "RA-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStore_Events(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, typ := range []string{model.EventSubmitted, model.EventTransition, model.EventCompleted} {
		require.NoError(t, s.AppendEvent(ctx, &model.AuditEvent{
			ComplaintID: "RA-1", Run: 1, Type: typ, Status: model.StatusNew, CreatedAt: now,
		}))
	}

	events, err := s.ListEvents(ctx, "RA-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, model.EventSubmitted, events[0].Type)
	assert.Equal(t, model.EventCompleted, events[2].Type)
	assert.NotEmpty(t, events[0].ID)

	limited, err := s.ListEvents(ctx, "RA-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
