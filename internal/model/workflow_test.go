package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStage_Transitions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusNew, StageAnonymize.From())
	assert.Equal(t, StatusAnonymized, StageAnonymize.To())
	assert.Equal(t, StatusQAOK, StageQA.To())
	assert.Equal(t, StatusNotified, StageNotify.To())
	assert.Equal(t, StatusFailedRoute, StageRoute.Failed())
	assert.Equal(t, StatusFailedQA, StageQA.Failed())

	prev := StatusNew
	for _, st := range Stages() {
		next, ok := NextStage(prev)
		assert.True(t, ok)
		assert.Equal(t, st, next)
		prev = st.To()
	}
	_, ok := NextStage(StatusNotified)
	assert.False(t, ok)
}

func TestStatus_Classification(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailedTicket.Terminal())
	assert.False(t, StatusNeedsReview.Terminal())
	assert.True(t, StatusNeedsReview.Halted())
	assert.False(t, StatusRouted.Halted())
	assert.True(t, StatusFailedNotify.IsFailed())
	assert.True(t, StatusFailedAnonymize.Valid())
	assert.False(t, Status("FAILED_LUNCH").Valid())

	st, ok := FailedStage(StatusFailedRoute)
	assert.True(t, ok)
	assert.Equal(t, StageRoute, st)
	assert.Equal(t, -1, StatusFailedRoute.Progress())
}

func TestWorkflowState_CloneIsDeep(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	orig := NewWorkflowState(&rec, 1, "run-1", time.Now())
	orig.Attempts[StageAnalyze] = 2
	orig.Analysis = &AnalysisResult{Summary: "s", KeyIssues: []string{"a"}}
	orig.Masked = &MaskedComplaint{Counts: map[string]int{"email": 1}}

	c := orig.Clone()
	c.Attempts[StageAnalyze] = 5
	c.Analysis.KeyIssues[0] = "b"
	c.Masked.Counts["email"] = 9

	assert.Equal(t, 2, orig.Attempts[StageAnalyze])
	assert.Equal(t, "a", orig.Analysis.KeyIssues[0])
	assert.Equal(t, 1, orig.Masked.Counts["email"])
}

func TestWorkflowState_Reached(t *testing.T) {
	t.Parallel()

	rec := validRecord()
	w := NewWorkflowState(&rec, 1, "run-1", time.Now())
	w.LastCompleted = StatusNotified
	w.Status = StatusFailedNotify
	assert.True(t, w.Reached(StatusNotified))
	assert.True(t, w.Reached(StatusRouted))
	assert.False(t, w.Reached(StatusCompleted))
}

func TestAnalysisResult_CheckShape(t *testing.T) {
	t.Parallel()

	a := AnalysisResult{
		Summary:   "Produto quebrou",
		Category:  CategoryDefective,
		Sentiment: SentimentDissatisfied,
		Urgency:   UrgencyHigh,
	}
	assert.NoError(t, a.CheckShape())

	bad := a
	bad.Category = "Outros"
	assert.Error(t, bad.CheckShape())

	stamped := a.WithQuality(QualityApproved, "ok")
	assert.Equal(t, QualityApproved, stamped.Quality)
	assert.Empty(t, a.Quality)
}
