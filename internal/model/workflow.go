package model

import (
	"strings"
	"time"
)

// Status is the position of a complaint in the workflow.
type Status string

// Workflow statuses in processing order, followed by the paused and failed
// statuses.
const (
	StatusNew           Status = "NEW"
	StatusAnonymized    Status = "ANONYMIZED"
	StatusAnalyzed      Status = "ANALYZED"
	StatusQAOK          Status = "QA_OK"
	StatusRouted        Status = "ROUTED"
	StatusTicketCreated Status = "TICKET_CREATED"
	StatusNotified      Status = "NOTIFIED"
	StatusCompleted     Status = "COMPLETED"

	StatusNeedsReview Status = "NEEDS_REVIEW"

	StatusFailedAnonymize Status = "FAILED_ANONYMIZE"
	StatusFailedAnalyze   Status = "FAILED_ANALYZE"
	StatusFailedQA        Status = "FAILED_QA"
	StatusFailedRoute     Status = "FAILED_ROUTE"
	StatusFailedTicket    Status = "FAILED_TICKET"
	StatusFailedNotify    Status = "FAILED_NOTIFY"
)

var progressOrder = []Status{
	StatusNew, StatusAnonymized, StatusAnalyzed, StatusQAOK,
	StatusRouted, StatusTicketCreated, StatusNotified, StatusCompleted,
}

// Progress returns the position of s in the processing order, or -1 for
// paused and failed statuses.
func (s Status) Progress() int {
	for i, p := range progressOrder {
		if p == s {
			return i
		}
	}
	return -1
}

// IsFailed reports whether s is a FAILED_<STAGE> status.
func (s Status) IsFailed() bool {
	return strings.HasPrefix(string(s), "FAILED_")
}

// Terminal reports whether no automatic transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s.IsFailed()
}

// Halted reports whether the automatic pipeline stops at s.
func (s Status) Halted() bool {
	return s.Terminal() || s == StatusNeedsReview
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	if s.Progress() >= 0 || s == StatusNeedsReview {
		return true
	}
	for _, st := range Stages() {
		if s == st.Failed() {
			return true
		}
	}
	return false
}

// Stage is one ordered processing step.
type Stage string

// Stages in processing order.
const (
	StageAnonymize Stage = "anonymize"
	StageAnalyze   Stage = "analyze"
	StageQA        Stage = "qa"
	StageRoute     Stage = "route"
	StageTicket    Stage = "ticket"
	StageNotify    Stage = "notify"
)

// Stages returns the stages in processing order.
func Stages() []Stage {
	return []Stage{StageAnonymize, StageAnalyze, StageQA, StageRoute, StageTicket, StageNotify}
}

// From is the status a stage consumes.
func (s Stage) From() Status {
	for i, st := range Stages() {
		if st == s {
			return progressOrder[i]
		}
	}
	return ""
}

// To is the status a stage produces on success.
func (s Stage) To() Status {
	for i, st := range Stages() {
		if st == s {
			return progressOrder[i+1]
		}
	}
	return ""
}

// Failed is the terminal failure status of a stage.
func (s Stage) Failed() Status {
	return Status("FAILED_" + strings.ToUpper(string(s)))
}

// NextStage returns the stage that consumes status s.
func NextStage(s Status) (Stage, bool) {
	for _, st := range Stages() {
		if st.From() == s {
			return st, true
		}
	}
	return "", false
}

// FailedStage returns the stage a FAILED_<STAGE> status belongs to.
func FailedStage(s Status) (Stage, bool) {
	for _, st := range Stages() {
		if st.Failed() == s {
			return st, true
		}
	}
	return "", false
}

// StageError is one entry of a workflow's error history.
type StageError struct {
	Run     int       `json:"run"`
	Stage   Stage     `json:"stage"`
	Attempt int       `json:"attempt"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// MaskedComplaint holds the anonymized text of a complaint and the number
// of sensitive matches removed per detector kind.
type MaskedComplaint struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Counts      map[string]int `json:"counts,omitempty"`
}

// WorkflowState is the orchestration envelope of one complaint run. It is
// written only by the orchestrator.
type WorkflowState struct {
	ComplaintID    string               `json:"complaint_id"`
	Source         SourceKind           `json:"source"`
	ExternalID     string               `json:"external_id"`
	Run            int                  `json:"run"`
	RunID          string               `json:"run_id"`
	Status         Status               `json:"status"`
	LastCompleted  Status               `json:"last_completed"`
	Masked         *MaskedComplaint     `json:"masked,omitempty"`
	Analysis       *AnalysisResult      `json:"analysis,omitempty"`
	PriorAnalyses  []AnalysisResult     `json:"prior_analyses,omitempty"`
	Routing        *RoutingDecision     `json:"routing,omitempty"`
	TicketToken    string               `json:"ticket_token,omitempty"`
	Ticket         *TicketRecord        `json:"ticket,omitempty"`
	Notifications  []NotificationRecord `json:"notifications,omitempty"`
	Attempts       map[Stage]int        `json:"attempts"`
	Errors         []StageError         `json:"errors,omitempty"`
	QAReanalyzed   bool                 `json:"qa_reanalyzed,omitempty"`
	ReviewApproved bool                 `json:"review_approved,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
}

// NewWorkflowState creates the NEW state of run number run for rec.
func NewWorkflowState(rec *ComplaintRecord, run int, runID string, now time.Time) *WorkflowState {
	return &WorkflowState{
		ComplaintID:   rec.ID,
		Source:        rec.Source,
		ExternalID:    rec.ExternalID,
		Run:           run,
		RunID:         runID,
		Status:        StatusNew,
		LastCompleted: StatusNew,
		Attempts:      make(map[Stage]int),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IdempotencyToken is the token sent with ticket creation: the explicit
// TicketToken when set, otherwise the complaint id.
func (w *WorkflowState) IdempotencyToken() string {
	if w.TicketToken != "" {
		return w.TicketToken
	}
	return w.ComplaintID
}

// Reached reports whether the run has completed the boundary s.
func (w *WorkflowState) Reached(s Status) bool {
	return w.LastCompleted.Progress() >= s.Progress()
}

// Clone returns a deep copy of w.
func (w *WorkflowState) Clone() *WorkflowState {
	c := *w
	if w.Masked != nil {
		m := *w.Masked
		m.Counts = cloneCounts(w.Masked.Counts)
		c.Masked = &m
	}
	if w.Analysis != nil {
		a := *w.Analysis
		a.KeyIssues = append([]string(nil), w.Analysis.KeyIssues...)
		c.Analysis = &a
	}
	if w.Routing != nil {
		r := *w.Routing
		c.Routing = &r
	}
	if w.Ticket != nil {
		t := *w.Ticket
		c.Ticket = &t
	}
	if w.CompletedAt != nil {
		at := *w.CompletedAt
		c.CompletedAt = &at
	}
	c.PriorAnalyses = append([]AnalysisResult(nil), w.PriorAnalyses...)
	c.Notifications = append([]NotificationRecord(nil), w.Notifications...)
	c.Errors = append([]StageError(nil), w.Errors...)
	c.Attempts = make(map[Stage]int, len(w.Attempts))
	for k, v := range w.Attempts {
		c.Attempts[k] = v
	}
	return &c
}

// LastError returns the most recent error history entry, if any.
func (w *WorkflowState) LastError() (StageError, bool) {
	if len(w.Errors) == 0 {
		return StageError{}, false
	}
	return w.Errors[len(w.Errors)-1], true
}

func cloneCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// AuditEvent is an append-only record of a workflow transition. Events never
// carry complaint text.
type AuditEvent struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	Run         int       `json:"run"`
	Type        string    `json:"type"`
	Stage       Stage     `json:"stage,omitempty"`
	Status      Status    `json:"status"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Audit event types.
const (
	EventSubmitted     = "submitted"
	EventDuplicate     = "duplicate"
	EventTransition    = "transition"
	EventFailed        = "failed"
	EventReanalysis    = "reanalysis"
	EventNeedsReview   = "needs_review"
	EventReviewResumed = "review_resumed"
	EventTicketReused  = "ticket_reused"
	EventCancelled     = "cancelled"
	EventResumed       = "resumed"
	EventReprocessed   = "reprocessed"
	EventCompleted     = "completed"
)
