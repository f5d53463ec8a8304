package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/api"
	"github.com/sells-group/complaint-cli/internal/monitoring"
)

const shutdownTimeout = 15 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the complaint API with scheduled feed polling and alert checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		collector := monitoring.NewCollector(env.Store)
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		checker := monitoring.NewChecker(collector, alerter)

		sched, err := newScheduler(ctx, env, checker)
		if err != nil {
			return err
		}
		sched.Start()

		server := api.New(ctx, env.Orchestrator, env.Dispatcher, collector,
			api.WithCORSOrigins(cfg.Server.CORSOrigins),
			api.WithAlerter(alerter),
		)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		err = srv.ListenAndServe()

		<-sched.Stop().Done()
		env.Dispatcher.Wait()
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newScheduler registers the feed poll and the alert check on a cron
// scheduler. An empty poll schedule disables polling.
func newScheduler(ctx context.Context, env *appEnv, checker *monitoring.Checker) (*cron.Cron, error) {
	sched := cron.New()
	if spec := cfg.Ingest.PollSchedule; spec != "" {
		dir := cfg.Ingest.DataDir
		if _, err := sched.AddFunc(spec, func() { pollFeeds(ctx, env, dir) }); err != nil {
			return nil, eris.Wrapf(err, "ingest: invalid poll schedule %q", spec)
		}
		zap.L().Info("ingest: feed poll scheduled", zap.String("schedule", spec), zap.String("dir", dir))
	}
	if _, err := checker.Register(ctx, sched, cfg.Monitoring.CheckSchedule); err != nil {
		return nil, err
	}
	return sched, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
