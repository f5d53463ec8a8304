// Package capability declares the narrow interfaces the orchestrator uses to
// reach classification, routing, ticketing and notification providers.
package capability

import (
	"context"

	"github.com/sells-group/complaint-cli/internal/model"
)

// AnalysisRequest carries masked complaint text to the classifier. It must
// never contain unmasked text.
type AnalysisRequest struct {
	ComplaintID string
	Title       string
	Description string
	Metadata    map[string]string
	// Strict asks the classifier to reserve escalated urgencies for text
	// that explicitly justifies them.
	Strict bool
}

// Classifier summarizes and classifies a complaint. Malformed provider
// output must surface as an error, never as a degraded result.
type Classifier interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*model.AnalysisResult, error)
}

// RouteRequest is the routing input.
type RouteRequest struct {
	Summary   string
	Category  model.Category
	Sentiment model.Sentiment
	Urgency   model.Urgency
}

// Router picks the responsible team from a fixed catalog.
type Router interface {
	Route(ctx context.Context, req RouteRequest) (*model.RoutingDecision, error)
}

// TicketRequest is the ticket creation input.
type TicketRequest struct {
	IdempotencyToken string
	Title            string
	Body             string
	Priority         model.Priority
	Assignee         string
	Labels           []string
}

// Ticketer creates external tickets. Creating twice with the same
// idempotency token must return the first ticket.
type Ticketer interface {
	CreateTicket(ctx context.Context, req TicketRequest) (*model.TicketRecord, error)
}

// Notification is one message to deliver.
type Notification struct {
	Recipient  string
	Subject    string
	TicketLink string
	Summary    string
}

// Notifier delivers notifications. Delivery is confirmed but not
// exactly-once.
type Notifier interface {
	Notify(ctx context.Context, n Notification) (model.DeliveryStatus, error)
}
