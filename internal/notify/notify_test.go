package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/capability"
	capmocks "github.com/sells-group/complaint-cli/internal/capability/mocks"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/resilience"
)

func TestOutbox_Notify(t *testing.T) {
	o := NewOutbox(WithSender("atendimento@technova.com.br"))
	status, err := o.Notify(context.Background(), capability.Notification{
		Recipient:  "produtos@technova.com.br",
		Subject:    "[ALTA PRIORIDADE] Nova reclamação atribuída - SUPORTE-1001",
		TicketLink: "https://jira.local/SUPORTE-1001",
		Summary:    "Notebook não liga.",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DeliverySent, status)

	sent := o.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "produtos@technova.com.br", sent[0].To)
	assert.Equal(t, "atendimento@technova.com.br", sent[0].From)
	assert.NotEmpty(t, sent[0].ID)
	assert.Equal(t, "https://jira.local/SUPORTE-1001", sent[0].TicketLink)
}

func TestOutbox_EmptyRecipientIsFatal(t *testing.T) {
	o := NewOutbox()
	status, err := o.Notify(context.Background(), capability.Notification{Recipient: "  "})
	require.Error(t, err)
	assert.Equal(t, model.DeliveryFailed, status)
	assert.Equal(t, resilience.KindFatal, resilience.Classify(err))
	assert.Empty(t, o.Sent())
}

func TestRouter_DispatchesByRecipient(t *testing.T) {
	slackN := capmocks.NewMockNotifier(t)
	email := capmocks.NewMockNotifier(t)

	slackN.On("Notify", mock.Anything, mock.MatchedBy(func(n capability.Notification) bool {
		return n.Recipient == "#time-produtos"
	})).Return(model.DeliverySent, nil).Once()
	email.On("Notify", mock.Anything, mock.MatchedBy(func(n capability.Notification) bool {
		return n.Recipient == "cliente@example.com"
	})).Return(model.DeliverySent, nil).Once()

	r := NewRouter(slackN, email)
	_, err := r.Notify(context.Background(), capability.Notification{Recipient: "#time-produtos"})
	require.NoError(t, err)
	_, err = r.Notify(context.Background(), capability.Notification{Recipient: "cliente@example.com"})
	require.NoError(t, err)
}

func TestRouter_MissingTransport(t *testing.T) {
	r := NewRouter(nil, nil)
	_, err := r.Notify(context.Background(), capability.Notification{Recipient: "#x"})
	assert.Equal(t, resilience.KindFatal, resilience.Classify(err))
	_, err = r.Notify(context.Background(), capability.Notification{Recipient: "a@b.c"})
	assert.Equal(t, resilience.KindFatal, resilience.Classify(err))
}

func newSlackServer(t *testing.T, h http.HandlerFunc) *SlackNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewSlackNotifier("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
}

func TestSlackNotifier_Success(t *testing.T) {
	n := newSlackServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "time-produtos", r.FormValue("channel"))
		assert.Contains(t, r.FormValue("blocks"), "SUPORTE-1001")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`)) //nolint:errcheck
	})

	status, err := n.Notify(context.Background(), capability.Notification{
		Recipient:  "#time-produtos",
		Subject:    "Nova reclamação atribuída - SUPORTE-1001",
		TicketLink: "https://jira.local/SUPORTE-1001",
		Summary:    "Notebook não liga.",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DeliverySent, status)
}

func TestSlackNotifier_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    resilience.ErrorKind
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: resilience.KindTransient,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			want: resilience.KindTransient,
		},
		{
			name: "channel not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`)) //nolint:errcheck
			},
			want: resilience.KindFatal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newSlackServer(t, tt.handler)
			status, err := n.Notify(context.Background(), capability.Notification{Recipient: "#x", Subject: "s"})
			require.Error(t, err)
			assert.Equal(t, model.DeliveryFailed, status)
			assert.Equal(t, tt.want, resilience.Classify(err))
		})
	}
}

func TestSlackNotifier_EmptyChannel(t *testing.T) {
	n := NewSlackNotifierWithPoster(nil)
	_, err := n.Notify(context.Background(), capability.Notification{})
	assert.Equal(t, resilience.KindFatal, resilience.Classify(err))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
}
