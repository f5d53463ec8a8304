package notify

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

// Router sends channel recipients ("#name") to Slack and everything else to
// email.
type Router struct {
	slack capability.Notifier
	email capability.Notifier
}

var _ capability.Notifier = (*Router)(nil)

// NewRouter creates a Router. slack may be nil, in which case channel
// recipients are rejected.
func NewRouter(slack, email capability.Notifier) *Router {
	return &Router{slack: slack, email: email}
}

// Notify dispatches n by recipient kind.
func (r *Router) Notify(ctx context.Context, n capability.Notification) (model.DeliveryStatus, error) {
	if strings.HasPrefix(strings.TrimSpace(n.Recipient), "#") {
		if r.slack == nil {
			return model.DeliveryFailed, resilience.NewFatalError(
				eris.Errorf("notify: no slack transport for %s", n.Recipient), "notification transport not configured")
		}
		return r.slack.Notify(ctx, n)
	}
	if r.email == nil {
		return model.DeliveryFailed, resilience.NewFatalError(
			eris.New("notify: no email transport"), "notification transport not configured")
	}
	return r.email.Notify(ctx, n)
}
