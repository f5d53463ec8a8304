package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wireRequest is the subset of a Messages API request body the classifier
// relies on.
type wireRequest struct {
	Model     string `json:"model"`
	MaxTokens int64  `json:"max_tokens"`
	System    []struct {
		Text         string `json:"text"`
		CacheControl *struct {
			Type string `json:"type"`
			TTL  string `json:"ttl"`
		} `json:"cache_control"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
}

const analysisJSON = `{"resumo":"Notebook na garantia sem retorno","categoria":"produto_defeituoso","urgencia":"alta"}`

func analysisMessage() map[string]any {
	return map[string]any{
		"id":          "msg_ra1001",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": analysisJSON}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":                420,
			"output_tokens":               64,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     1800,
		},
	}
}

// messagesAPI serves a canned answer for /v1/messages and queues every
// decoded request body.
func messagesAPI(t *testing.T, status int, body any) (Client, chan wireRequest) {
	t.Helper()
	seen := make(chan wireRequest, 8)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var req wireRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			seen <- req
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return NewClient("test-key", option.WithBaseURL(ts.URL)), seen
}

func TestSDKClient_CreateMessage_ClassifierRequest(t *testing.T) {
	client, seen := messagesAPI(t, http.StatusOK, analysisMessage())

	temp := 0.2
	resp, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 1024,
		System: []SystemBlock{
			{Text: "Classifique a reclamação em JSON.", CacheControl: &CacheControl{TTL: "1h"}},
		},
		Messages:    []Message{{Role: "user", Content: "Título: Notebook parou de funcionar"}},
		Temperature: &temp,
	})
	require.NoError(t, err)

	got := <-seen
	assert.Equal(t, "claude-haiku-4-5-20251001", got.Model)
	assert.Equal(t, int64(1024), got.MaxTokens)
	require.Len(t, got.System, 1)
	assert.Equal(t, "Classifique a reclamação em JSON.", got.System[0].Text)
	require.NotNil(t, got.System[0].CacheControl)
	assert.Equal(t, "ephemeral", got.System[0].CacheControl.Type)
	assert.Equal(t, "1h", got.System[0].CacheControl.TTL)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "Título: Notebook parou de funcionar", got.Messages[0].Content[0].Text)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)

	assert.Equal(t, "msg_ra1001", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.JSONEq(t, analysisJSON, resp.Text())
	assert.Equal(t, int64(420), resp.Usage.InputTokens)
	assert.Equal(t, int64(1800), resp.Usage.CacheReadInputTokens)
}

func TestSDKClient_CreateMessage_OmitsUnsetOptions(t *testing.T) {
	client, seen := messagesAPI(t, http.StatusOK, analysisMessage())

	_, err := client.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 256,
		Messages:  []Message{{Role: "user", Content: "oi"}},
	})
	require.NoError(t, err)
	got := <-seen
	assert.Empty(t, got.System)
	assert.Nil(t, got.Temperature)
}

func TestSDKClient_CreateMessage_APIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		errType string
	}{
		{"rate limited", http.StatusTooManyRequests, "rate_limit_error"},
		{"overloaded", 529, "overloaded_error"},
		{"unauthorized", http.StatusUnauthorized, "authentication_error"},
		{"server error", http.StatusInternalServerError, "api_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, seen := messagesAPI(t, tt.status, map[string]any{
				"type":  "error",
				"error": map[string]any{"type": tt.errType, "message": tt.name},
			})

			_, err := client.CreateMessage(context.Background(), MessageRequest{
				Model:     "claude-haiku-4-5-20251001",
				MaxTokens: 64,
				Messages:  []Message{{Role: "user", Content: "oi"}},
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "anthropic: create message")
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Len(t, seen, 1, "SDK retries are disabled")
		})
	}
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(assert.AnError))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestMessageResponse_Text(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "text", Text: "{\"a\":"},
		{Type: "tool_use", Text: "ignored"},
		{Type: "text", Text: "1}"},
	}}
	assert.Equal(t, "{\"a\":1}", resp.Text())

	var empty *MessageResponse
	assert.Empty(t, empty.Text())
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 0.0001)
	assert.InDelta(t, 18.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
	assert.Zero(t, u.EstimateCost("unknown-model"))
}

func TestEstimateCost_WithCache(t *testing.T) {
	u := TokenUsage{CacheCreationInputTokens: 1_000_000, CacheReadInputTokens: 1_000_000}
	// 0.80*1.25 + 0.80*0.1
	assert.InDelta(t, 1.08, u.EstimateCost("claude-haiku-4-5-20251001"), 0.0001)
}

func TestToSDKMessages_Roles(t *testing.T) {
	out := toSDKMessages([]Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "other", Content: "c"},
	})
	require.Len(t, out, 3)
	assert.Equal(t, "user", string(out[0].Role))
	assert.Equal(t, "assistant", string(out[1].Role))
	assert.Equal(t, "user", string(out[2].Role))
}
