package monitoring

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultCheckSchedule is used when no schedule is configured.
const DefaultCheckSchedule = "@every 15m"

// Checker runs alert checks, either once or on a cron schedule.
type Checker struct {
	collector *Collector
	alerter   *Alerter
}

// NewChecker creates an alert checker.
func NewChecker(collector *Collector, alerter *Alerter) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
	}
}

// Check collects a snapshot, evaluates it and sends any alerts.
func (c *Checker) Check(ctx context.Context) (*MetricsSnapshot, []Alert, error) {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		return nil, nil, err
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		zap.L().Debug("monitoring: no alerts triggered", zap.Int("total", snap.Total))
		return snap, nil, nil
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	zap.L().Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return snap, alerts, nil
}

// Register adds the check to sched under spec. Jobs run with ctx.
func (c *Checker) Register(ctx context.Context, sched *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultCheckSchedule
	}
	id, err := sched.AddFunc(spec, func() {
		if _, _, err := c.Check(ctx); err != nil {
			zap.L().Error("monitoring: check failed", zap.Error(err))
		}
	})
	if err != nil {
		return 0, eris.Wrapf(err, "monitoring: invalid schedule %q", spec)
	}
	zap.L().Info("monitoring: check scheduled", zap.String("schedule", spec))
	return id, nil
}

// Run schedules the check and blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context, spec string) error {
	sched := cron.New()
	if _, err := c.Register(ctx, sched, spec); err != nil {
		return err
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker")
	sched.Start()

	<-ctx.Done()
	<-sched.Stop().Done()
	log.Info("alert checker stopped")
	return nil
}
