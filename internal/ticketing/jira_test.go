package ticketing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
	"github.com/sells-group/complaint-cli/pkg/jira"
	jiramocks "github.com/sells-group/complaint-cli/pkg/jira/mocks"
)

func TestTokenLabel(t *testing.T) {
	assert.Equal(t, "complaint-RA-1001", TokenLabel("RA-1001"))
	assert.Equal(t, "complaint-RA-1001:r2", TokenLabel("RA-1001:r2"))
	assert.Equal(t, "complaint-a-b-c", TokenLabel("a b/c"))
}

func TestJiraPriority(t *testing.T) {
	assert.Equal(t, "Low", JiraPriority(model.PriorityLow))
	assert.Equal(t, "Medium", JiraPriority(model.PriorityMedium))
	assert.Equal(t, "High", JiraPriority(model.PriorityHigh))
	assert.Equal(t, "Highest", JiraPriority(model.PriorityCritical))
}

func TestJiraTracker_CreatesWhenNoLabelMatch(t *testing.T) {
	client := jiramocks.NewMockClient(t)
	client.On("SearchByLabel", mock.Anything, "complaint-RA-1001").Return([]jira.Issue{}, nil)
	client.On("CreateIssue", mock.Anything, mock.MatchedBy(func(req jira.IssueRequest) bool {
		return req.Summary == "Notebook não liga" &&
			req.Priority == "High" &&
			len(req.Labels) == 2 && req.Labels[0] == "complaint-RA-1001" && req.Labels[1] == "team-produtos"
	})).Return(&jira.Issue{ID: "10001", Key: "SUP-1"}, nil)

	tr := NewJiraTracker(client, "https://technova.atlassian.net/browse/")
	rec, err := tr.CreateTicket(context.Background(), capability.TicketRequest{
		IdempotencyToken: "RA-1001",
		Title:            "Notebook não liga",
		Priority:         model.PriorityHigh,
		Labels:           []string{"team-produtos"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SUP-1", rec.Key)
	assert.Equal(t, "https://technova.atlassian.net/browse/SUP-1", rec.Link)
	assert.Equal(t, "Open", rec.Status)
	assert.False(t, rec.Reused)
}

func TestJiraTracker_ReusesLabelledIssue(t *testing.T) {
	client := jiramocks.NewMockClient(t)
	client.On("SearchByLabel", mock.Anything, "complaint-RA-1001").
		Return([]jira.Issue{{ID: "10001", Key: "SUP-1", Status: "In Progress"}}, nil)

	tr := NewJiraTracker(client, "https://technova.atlassian.net/browse")
	rec, err := tr.CreateTicket(context.Background(), capability.TicketRequest{IdempotencyToken: "RA-1001"})
	require.NoError(t, err)
	assert.Equal(t, "SUP-1", rec.Key)
	assert.Equal(t, "In Progress", rec.Status)
	assert.True(t, rec.Reused)
	client.AssertNotCalled(t, "CreateIssue", mock.Anything, mock.Anything)
}

func TestJiraTracker_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want resilience.ErrorKind
	}{
		{"rate limited", &jira.APIError{StatusCode: 429}, resilience.KindTransient},
		{"unavailable", &jira.APIError{StatusCode: 503}, resilience.KindTransient},
		{"forbidden", &jira.APIError{StatusCode: 403}, resilience.KindFatal},
		{"timeout", context.DeadlineExceeded, resilience.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := jiramocks.NewMockClient(t)
			client.On("SearchByLabel", mock.Anything, mock.Anything).Return(nil, tt.err)

			tr := NewJiraTracker(client, "https://x")
			_, err := tr.CreateTicket(context.Background(), capability.TicketRequest{IdempotencyToken: "t"})
			require.Error(t, err)
			assert.Equal(t, tt.want, resilience.Classify(err))
		})
	}
}
