package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/config"
	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/ingest"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/monitoring"
)

// offlineConfig loads config with a temp sqlite store and the keyword
// classifier.
func offlineConfig(t *testing.T) {
	t.Helper()
	t.Setenv("COMPLAINT_STORE_DATABASE_URL", filepath.Join(t.TempDir(), "complaints.db"))
	t.Setenv("COMPLAINT_ANTHROPIC_OFFLINE", "true")
	t.Setenv("COMPLAINT_RETRY_INITIAL_BACKOFF_MS", "1")
	t.Setenv("COMPLAINT_RETRY_MAX_BACKOFF_MS", "5")

	c, err := config.Load()
	require.NoError(t, err)
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitEnv_ProcessesToCompletion(t *testing.T) {
	offlineConfig(t)
	ctx := context.Background()

	env, err := initEnv(ctx, "process")
	require.NoError(t, err)
	defer env.Close()

	sub, err := env.Orchestrator.Submit(ctx, &model.ComplaintRecord{
		ExternalID:      "EMAIL-42",
		Source:          model.SourceEmail,
		Title:           "Cobrança em dobro",
		Description:     "Fui cobrado duas vezes na fatura do cartão. Meu CPF é 123.456.789-09.",
		ConsumerName:    "Maria Souza",
		ConsumerContact: "maria.souza@example.com",
	})
	require.NoError(t, err)
	require.False(t, sub.Duplicate)

	res := env.Dispatcher.Dispatch(ctx, dispatch.Request{ID: sub.State.ComplaintID, Op: dispatch.OpProcess})
	require.NoError(t, res.Err)
	require.NotNil(t, res.State)
	assert.Equal(t, model.StatusCompleted, res.State.Status)
	require.NotNil(t, res.State.Ticket)
	assert.True(t, strings.HasPrefix(res.State.Ticket.Key, cfg.Ticketing.ProjectKey+"-"))
	assert.NotContains(t, res.State.Masked.Description, "123.456.789-09")

	// Team notice plus customer confirmation, both through the outbox.
	sent := env.Outbox.Sent()
	require.Len(t, sent, 2)
	for _, msg := range sent {
		assert.Equal(t, cfg.Notify.EmailFrom, msg.From)
	}

	snap, err := monitoring.NewCollector(env.Store).Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Completed)
}

func TestInitEnv_ValidatesConfig(t *testing.T) {
	offlineConfig(t)
	cfg.Anthropic.Offline = false
	cfg.Anthropic.Key = ""

	_, err := initEnv(context.Background(), "process")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key")
}

func TestSubmitBatch_SkipsDuplicates(t *testing.T) {
	offlineConfig(t)
	ctx := context.Background()

	env, err := initEnv(ctx, "process")
	require.NoError(t, err)
	defer env.Close()

	b, err := ingest.NewLoader(filepath.Join("..", "internal", "ingest", "testdata", "feeds")).Load(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, b.Records)

	reqs, sum := submitBatch(ctx, env.Orchestrator, b)
	assert.Equal(t, len(b.Records), sum.Loaded)
	assert.Equal(t, len(b.Records), sum.Submitted)
	assert.Zero(t, sum.Errors)
	assert.Len(t, reqs, sum.Submitted)

	results := env.Dispatcher.Batch(ctx, reqs)
	for _, r := range results {
		require.NotNil(t, r.State, "complaint %s", r.ID)
		assert.True(t, r.State.Status.Halted(), "complaint %s stopped at %s", r.ID, r.State.Status)
	}

	// A second poll of the same feeds submits nothing new and skips halted
	// complaints.
	reqs, sum = submitBatch(ctx, env.Orchestrator, b)
	assert.Zero(t, sum.Submitted)
	assert.Equal(t, len(b.Records), sum.Duplicates)
	assert.Empty(t, reqs)
}

func TestReadRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "complaint.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"external_id": "RA-9",
		"source": "reclame_aqui",
		"title": "Produto com defeito",
		"description": "Chegou quebrado."
	}`), 0o600))

	rec, err := readRecord(nil, path)
	require.NoError(t, err)
	assert.Equal(t, model.SourceFeedbackSite, rec.Source)
	assert.Equal(t, "RA-9", rec.ExternalID)

	rec, err = readRecord(bytes.NewBufferString(`{"external_id":"CH-1","source":"whatsapp","description":"oi"}`), "-")
	require.NoError(t, err)
	assert.Equal(t, model.SourceChat, rec.Source)

	_, err = readRecord(nil, "")
	assert.Error(t, err)

	_, err = readRecord(bytes.NewBufferString(`{`), "-")
	assert.Error(t, err)
}

func TestParseSources(t *testing.T) {
	kinds, err := parseSources([]string{"email,chat", "jira"})
	require.NoError(t, err)
	assert.Equal(t, []model.SourceKind{model.SourceEmail, model.SourceChat, model.SourceIssueTracker}, kinds)

	_, err = parseSources([]string{"fax"})
	assert.Error(t, err)
}

func TestPendingFilter(t *testing.T) {
	f, err := pendingFilter([]string{"needs_review", "FAILED_TICKET"}, "telefone", 20)
	require.NoError(t, err)
	assert.True(t, f.PendingOnly)
	assert.Equal(t, []model.Status{model.StatusNeedsReview, model.StatusFailedTicket}, f.Statuses)
	assert.Equal(t, model.SourcePhone, f.Source)
	assert.Equal(t, 20, f.Limit)

	_, err = pendingFilter([]string{"DONE"}, "", 0)
	assert.Error(t, err)
	_, err = pendingFilter(nil, "fax", 0)
	assert.Error(t, err)
}

func TestStateView_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, stateView{State: &model.WorkflowState{ComplaintID: "C-1", Status: model.StatusNew}}))

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "state")
	assert.NotContains(t, got, "runs")
}
