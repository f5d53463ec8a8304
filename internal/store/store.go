// Package store persists complaints, workflow states, ticket links and audit
// events. Workflow states are stored as JSON documents keyed by complaint id.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/model"
)

// Sentinel errors. Check with errors.Is.
var (
	ErrNotFound = eris.New("store: not found")
	ErrConflict = eris.New("store: conflict")
)

// DefaultListLimit is applied when a filter sets no limit.
const DefaultListLimit = 100

// Store is the persistence capability of the orchestrator.
type Store interface {
	// InsertComplaint stores a new record. It returns ErrConflict when a
	// record with the same id or the same (source, external id) exists.
	InsertComplaint(ctx context.Context, rec *model.ComplaintRecord) error
	GetComplaint(ctx context.Context, id string) (*model.ComplaintRecord, error)
	// FindComplaintBySource returns nil, nil when no record matches.
	FindComplaintBySource(ctx context.Context, source model.SourceKind, externalID string) (*model.ComplaintRecord, error)

	// SaveState upserts the current workflow state of a complaint.
	SaveState(ctx context.Context, st *model.WorkflowState) error
	GetState(ctx context.Context, complaintID string) (*model.WorkflowState, error)
	ListStates(ctx context.Context, filter StateFilter) ([]model.WorkflowState, error)
	// ArchiveRun keeps a superseded run for history.
	ArchiveRun(ctx context.Context, st *model.WorkflowState) error
	ListRuns(ctx context.Context, complaintID string) ([]model.WorkflowState, error)

	// SaveTicket links a ticket to its complaint. It returns ErrConflict
	// when a non-superseded ticket is already linked.
	SaveTicket(ctx context.Context, t *model.TicketRecord) error
	// FindActiveTicket returns the non-superseded ticket of a complaint, or
	// nil, nil when none exists.
	FindActiveTicket(ctx context.Context, complaintID string) (*model.TicketRecord, error)
	SupersedeTickets(ctx context.Context, complaintID string) (int, error)
	// FindTicketByToken returns the latest ticket raised under an
	// idempotency token, or nil, nil when none exists.
	FindTicketByToken(ctx context.Context, token string) (*model.TicketRecord, error)
	// MaxTicketSequence returns the highest N among ticket keys of the form
	// projectKey-N, or 0.
	MaxTicketSequence(ctx context.Context, projectKey string) (int, error)

	AppendEvent(ctx context.Context, ev *model.AuditEvent) error
	ListEvents(ctx context.Context, complaintID string, limit int) ([]model.AuditEvent, error)

	CountByStatus(ctx context.Context) (map[model.Status]int, error)
	CountBySource(ctx context.Context) (map[model.SourceKind]int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// StateFilter selects workflow states.
type StateFilter struct {
	Statuses      []model.Status
	Source        model.SourceKind
	PendingOnly   bool
	UpdatedBefore time.Time
	Limit         int
	Offset        int
}

func (f StateFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}
