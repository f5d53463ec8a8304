// Package routing assigns analyzed complaints to a team from a fixed catalog
// and derives priority and SLA.
package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

// CatalogRouter routes by category using a Catalog.
type CatalogRouter struct {
	catalog *Catalog
	now     func() time.Time
}

var _ capability.Router = (*CatalogRouter)(nil)

// NewCatalogRouter creates a router over catalog.
func NewCatalogRouter(catalog *Catalog) *CatalogRouter {
	return &CatalogRouter{catalog: catalog, now: time.Now}
}

// Route picks the team for req. Unknown analysis values are fatal.
func (r *CatalogRouter) Route(ctx context.Context, req capability.RouteRequest) (*model.RoutingDecision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !req.Category.Valid() || !req.Urgency.Valid() || !req.Sentiment.Valid() {
		return nil, resilience.NewFatalError(
			eris.Errorf("routing: cannot route category=%q urgency=%q sentiment=%q", req.Category, req.Urgency, req.Sentiment),
			"incomplete analysis",
		)
	}

	team, matched := r.catalog.ForCategory(req.Category)
	if !matched {
		zap.L().Warn("routing: using fallback team",
			zap.String("category", string(req.Category)),
			zap.String("team", team.Name),
		)
	}

	contact := team.Email
	if contact == "" {
		contact = team.SlackChannel
	}

	return &model.RoutingDecision{
		TeamID:        team.ID,
		Team:          team.Name,
		Contact:       contact,
		Channel:       team.SlackChannel,
		Priority:      PriorityFor(req.Urgency, req.Sentiment),
		Justification: justify(req, team),
		SLAHours:      r.catalog.SLA(team, req.Urgency),
		DecidedAt:     r.now().UTC(),
	}, nil
}

// PriorityFor applies the urgency by sentiment matrix. A very dissatisfied
// consumer raises priority one step below critical urgency.
func PriorityFor(u model.Urgency, s model.Sentiment) model.Priority {
	angry := s == model.SentimentVeryDissatisfied
	switch u {
	case model.UrgencyCritical:
		return model.PriorityCritical
	case model.UrgencyHigh:
		if angry {
			return model.PriorityCritical
		}
		return model.PriorityHigh
	case model.UrgencyMedium:
		if angry {
			return model.PriorityHigh
		}
		return model.PriorityMedium
	default:
		if angry {
			return model.PriorityMedium
		}
		return model.PriorityLow
	}
}

func justify(req capability.RouteRequest, team Team) string {
	resp := team.Responsibilities
	if len(resp) > 3 {
		resp = resp[:3]
	}
	return fmt.Sprintf(
		"Reclamação classificada como '%s' com urgência '%s'. Time '%s' é responsável por esta categoria e possui expertise em: %s.",
		req.Category, req.Urgency, team.Name, strings.Join(resp, ", "),
	)
}
