// Package pipeline drives complaints through the fixed stage sequence
// anonymize, analyze, QA, route, ticket and notify. The Orchestrator owns
// every WorkflowState transition; stage handlers see a read-only view and
// return an Outcome.
package pipeline

import (
	"context"

	"github.com/sells-group/complaint-cli/internal/model"
)

// View is what a stage handler sees of a complaint. State is a private
// copy; changes to it are discarded.
type View struct {
	Record *model.ComplaintRecord
	State  *model.WorkflowState
	// Strict asks the analyze stage for a re-analysis under the stricter
	// directive.
	Strict bool
}

// Outcome is the result of one successful stage invocation. Only the
// fields the stage produces are set.
type Outcome struct {
	Masked        *model.MaskedComplaint
	Analysis      *model.AnalysisResult
	Routing       *model.RoutingDecision
	Ticket        *model.TicketRecord
	Notifications []model.NotificationRecord
	// Warnings are best-effort failures that do not fail the stage. They
	// are recorded in the error history.
	Warnings []error
}

// Handler executes one stage.
type Handler interface {
	Stage() model.Stage
	Execute(ctx context.Context, v View) (*Outcome, error)
}

// Handlers is the stage sequence. Its fields are in processing order.
type Handlers struct {
	Anonymize *AnonymizeHandler
	Analyze   *AnalyzeHandler
	QA        *QAGate
	Route     *RouteHandler
	Ticket    *TicketHandler
	Notify    *NotifyHandler
}

// sequence returns the handlers indexed the same way as model.Stages.
func (h Handlers) sequence() [6]Handler {
	return [6]Handler{h.Anonymize, h.Analyze, h.QA, h.Route, h.Ticket, h.Notify}
}

func (h Handlers) lookup(stage model.Stage) Handler {
	for i, st := range model.Stages() {
		if st == stage {
			return h.sequence()[i]
		}
	}
	return nil
}
