package classify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/capability"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
	"github.com/sells-group/complaint-cli/pkg/anthropic"
	anthropicmocks "github.com/sells-group/complaint-cli/pkg/anthropic/mocks"
)

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_1",
		Model:   "claude-haiku-4-5-20251001",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestLLMClassifier_Analyze(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) == 1 &&
			req.Temperature != nil &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == "user"
	})).Return(textResponse(`{"category":"Produto com defeito","sentiment":"insatisfeito","urgency":"alta","summary":"Notebook não liga.","key_issues":["não liga"]}`), nil)

	c := NewLLMClassifier(client, Config{})
	res, err := c.Analyze(context.Background(), capability.AnalysisRequest{
		ComplaintID: "c-1",
		Title:       "Notebook não liga",
		Description: "Comprei há 2 meses, ainda na garantia. CPF [DOCUMENTO-P].",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryDefective, res.Category)
	assert.Equal(t, model.UrgencyHigh, res.Urgency)
	assert.Equal(t, "claude-haiku-4-5-20251001", res.Model)
	assert.False(t, res.CreatedAt.IsZero())
	assert.False(t, res.Strict)
}

func TestLLMClassifier_StrictAddsDirective(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) == 1 && strings.Contains(req.System[0].Text, "REVISÃO")
	})).Return(textResponse(`{"category":"Atendimento ruim","sentiment":"neutro","urgency":"media","summary":"ok"}`), nil)

	c := NewLLMClassifier(client, Config{})
	res, err := c.Analyze(context.Background(), capability.AnalysisRequest{ComplaintID: "c-2", Title: "t", Description: "d", Strict: true})
	require.NoError(t, err)
	assert.True(t, res.Strict)
}

func TestLLMClassifier_UrgencyFloorFromKeywords(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"category":"Cobrança indevida","sentiment":"insatisfeito","urgency":"baixa","summary":"Cobrança duplicada."}`), nil)

	c := NewLLMClassifier(client, Config{})
	res, err := c.Analyze(context.Background(), capability.AnalysisRequest{
		ComplaintID: "c-3",
		Title:       "Cobrança em dobro",
		Description: "Se não resolverem vou ao Procon.",
	})
	require.NoError(t, err)
	assert.Equal(t, model.UrgencyCritical, res.Urgency)
}

func TestLLMClassifier_MalformedIsFatal(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("desculpe, não sei"), nil)

	c := NewLLMClassifier(client, Config{})
	_, err := c.Analyze(context.Background(), capability.AnalysisRequest{ComplaintID: "c-4", Title: "t", Description: "d"})
	require.Error(t, err)
	assert.Equal(t, resilience.KindFatal, resilience.Classify(err))
}

func TestLLMClassifier_PlainErrorPassesThrough(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

	c := NewLLMClassifier(client, Config{})
	_, err := c.Analyze(context.Background(), capability.AnalysisRequest{ComplaintID: "c-5", Title: "t", Description: "d"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, resilience.IsTransient(err))
}

func TestLLMClassifier_HTTPStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   resilience.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, resilience.KindTransient},
		{"overloaded", http.StatusServiceUnavailable, resilience.KindTransient},
		{"unauthorized", http.StatusUnauthorized, resilience.KindFatal},
		{"bad request", http.StatusBadRequest, resilience.KindFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"nope"}}`))
			}))
			defer ts.Close()

			c := NewLLMClassifier(anthropic.NewClient("test-key", option.WithBaseURL(ts.URL)), Config{})
			_, err := c.Analyze(context.Background(), capability.AnalysisRequest{ComplaintID: "c-6", Title: "t", Description: "d"})
			require.Error(t, err)
			assert.Equal(t, tt.want, resilience.Classify(err))
		})
	}
}

func TestLLMClassifier_RateLimitHonorsContext(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	c := NewLLMClassifier(client, Config{RateLimit: 0.001})
	// Drain the single token.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Analyze(ctx, capability.AnalysisRequest{ComplaintID: "c-7"})
	require.Error(t, err)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}
