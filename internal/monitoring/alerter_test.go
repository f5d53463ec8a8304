package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/complaint-cli/internal/config"
	"github.com/sells-group/complaint-cli/internal/model"
)

func thresholds() config.MonitoringConfig {
	return config.MonitoringConfig{
		FailureRateThreshold:   0.10,
		ReviewBacklogThreshold: 5,
		FailedBacklogThreshold: 5,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Total:       100,
		Completed:   95,
		Failed:      5,
		FailureRate: 0.05,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
	assert.True(t, a.State().Healthy)
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Total:       20,
		Completed:   16,
		Failed:      4,
		FailureRate: 0.2, // 4/20 = 20%
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "20.0%")
}

func TestAlerter_Evaluate_ReviewBacklog(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ReviewBacklogThreshold: 2})

	alerts := a.Evaluate(&MetricsSnapshot{NeedsReview: 3})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertReviewBacklog, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "3 complaint(s) waiting for manual review")
}

func TestAlerter_Evaluate_FailedBacklog(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailedBacklogThreshold: 1})

	snap := &MetricsSnapshot{
		Failed: 2,
		ByStatus: map[model.Status]int{
			model.StatusFailedNotify: 2,
		},
	}
	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailedBacklog, alerts[0].Type)
	assert.Equal(t, map[string]int{"notify": 2}, alerts[0].Details["by_stage"])
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Completed:   10,
		Failed:      10,
		NeedsReview: 8,
		FailureRate: 10.0 / 28.0,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 3)

	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertFailureRate])
	assert.True(t, types[AlertReviewBacklog])
	assert.True(t, types[AlertFailedBacklog])

	st := a.State()
	assert.False(t, st.Healthy)
	assert.Len(t, st.Alerts, 3)
}

func TestAlerter_Evaluate_MinimumFinishedRequired(t *testing.T) {
	a := NewAlerter(thresholds())

	// Only 3 finished complaints, below the minimum for the rate alert.
	snap := &MetricsSnapshot{
		Completed:   1,
		Failed:      2,
		FailureRate: 0.666,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_ZeroThresholdsDisabled(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &MetricsSnapshot{Completed: 1, Failed: 50, NeedsReview: 50, FailureRate: 0.5}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_StateRecovers(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{ReviewBacklogThreshold: 1})

	require.Len(t, a.Evaluate(&MetricsSnapshot{NeedsReview: 4}), 1)
	assert.False(t, a.State().Healthy)

	assert.Empty(t, a.Evaluate(&MetricsSnapshot{NeedsReview: 0}))
	st := a.State()
	assert.True(t, st.Healthy)
	assert.Empty(t, st.Alerts)
	assert.False(t, st.CheckedAt.IsZero())
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	alerts := []Alert{
		{Type: AlertFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertReviewBacklog, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "",
	})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: "http://example.com",
	})

	sent := a.SendAlerts(context.Background(), nil)
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL: ts.URL,
	})

	alerts := []Alert{
		{Type: AlertFailedBacklog, Message: "test"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 0, sent)
}
