package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate   AlertType = "failure_rate"
	AlertReviewBacklog AlertType = "review_backlog"
	AlertFailedBacklog AlertType = "failed_backlog"
)

// minFinished is the number of finished complaints below which the failure
// rate is not evaluated.
const minFinished = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// AlertState is the outcome of the most recent evaluation.
type AlertState struct {
	Alerts    []Alert   `json:"alerts"`
	CheckedAt time.Time `json:"checked_at,omitempty"`
	Healthy   bool      `json:"healthy"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client

	mu   sync.RWMutex
	last AlertState
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		last:   AlertState{Healthy: true},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// The result becomes the alert state reported by State.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	finished := snap.Finished()
	if a.cfg.FailureRateThreshold > 0 && finished >= minFinished && snap.FailureRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Complaint failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished)",
				snap.FailureRate*100, a.cfg.FailureRateThreshold*100, snap.Failed, finished,
			),
			Details: map[string]any{
				"failure_rate": snap.FailureRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.ReviewBacklogThreshold > 0 && snap.NeedsReview > a.cfg.ReviewBacklogThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertReviewBacklog,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d complaint(s) waiting for manual review (threshold %d)",
				snap.NeedsReview, a.cfg.ReviewBacklogThreshold,
			),
			Details: map[string]any{
				"needs_review": snap.NeedsReview,
				"threshold":    a.cfg.ReviewBacklogThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.FailedBacklogThreshold > 0 && snap.Failed > a.cfg.FailedBacklogThreshold {
		byStage := make(map[string]int)
		for stage, n := range snap.FailedByStage() {
			byStage[string(stage)] = n
		}
		alerts = append(alerts, Alert{
			Type:     AlertFailedBacklog,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d failed complaint(s) waiting for resume (threshold %d)",
				snap.Failed, a.cfg.FailedBacklogThreshold,
			),
			Details: map[string]any{
				"failed":    snap.Failed,
				"threshold": a.cfg.FailedBacklogThreshold,
				"by_stage":  byStage,
			},
			Timestamp: now,
		})
	}

	a.mu.Lock()
	a.last = AlertState{Alerts: alerts, CheckedAt: now, Healthy: len(alerts) == 0}
	a.mu.Unlock()

	return alerts
}

// State returns the most recent alert state.
func (a *Alerter) State() AlertState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	st := a.last
	st.Alerts = append([]Alert(nil), a.last.Alerts...)
	return st
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
