package ticketing

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
	"github.com/sells-group/complaint-cli/pkg/jira"
)

var labelUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.:-]`)

// TokenLabel is the Jira label that marks the ticket for an idempotency
// token.
func TokenLabel(token string) string {
	return "complaint-" + labelUnsafe.ReplaceAllString(token, "-")
}

// JiraPriority maps a routing priority to a Jira priority name.
func JiraPriority(p model.Priority) string {
	switch p {
	case model.PriorityLow:
		return "Low"
	case model.PriorityHigh:
		return "High"
	case model.PriorityCritical:
		return "Highest"
	default:
		return "Medium"
	}
}

// JiraTracker creates tickets in Jira. It searches for the token label
// before creating, so a retried request after a lost response finds the
// first issue instead of opening a second one.
type JiraTracker struct {
	client    jira.Client
	browseURL string
	now       func() time.Time
}

var _ capability.Ticketer = (*JiraTracker)(nil)

// NewJiraTracker wraps a Jira client.
func NewJiraTracker(client jira.Client, browseURL string) *JiraTracker {
	return &JiraTracker{client: client, browseURL: strings.TrimRight(browseURL, "/"), now: time.Now}
}

// CreateTicket implements capability.Ticketer.
func (t *JiraTracker) CreateTicket(ctx context.Context, req capability.TicketRequest) (*model.TicketRecord, error) {
	label := TokenLabel(req.IdempotencyToken)

	found, err := t.client.SearchByLabel(ctx, label)
	if err != nil {
		return nil, classify(err)
	}
	if len(found) > 0 {
		zap.L().Info("ticketing: reusing jira issue", zap.String("key", found[0].Key), zap.String("label", label))
		rec := t.record(found[0], req.IdempotencyToken)
		rec.Reused = true
		return rec, nil
	}

	issue, err := t.client.CreateIssue(ctx, jira.IssueRequest{
		Summary:     req.Title,
		Description: req.Body,
		Priority:    JiraPriority(req.Priority),
		Labels:      append([]string{label}, req.Labels...),
	})
	if err != nil {
		return nil, classify(err)
	}
	if issue.Status == "" {
		issue.Status = "Open"
	}
	return t.record(*issue, req.IdempotencyToken), nil
}

func (t *JiraTracker) record(issue jira.Issue, token string) *model.TicketRecord {
	return &model.TicketRecord{
		TicketID:  issue.ID,
		Key:       issue.Key,
		Link:      t.browseURL + "/" + issue.Key,
		Status:    issue.Status,
		Token:     token,
		CreatedAt: t.now().UTC(),
	}
}

func classify(err error) error {
	if code := jira.StatusCode(err); code != 0 {
		return resilience.FromHTTPStatus(err, code)
	}
	return err
}
