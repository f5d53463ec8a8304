package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/complaint-cli/internal/monitoring"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show complaint counts by status and source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := openReadStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "stats")
		}
		if asJSON {
			return writeJSON(os.Stdout, snap)
		}
		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Evaluate alert thresholds and send webhook alerts",
	Long:  "Runs one alert check, or with --watch keeps checking on the configured schedule until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		watch, _ := cmd.Flags().GetBool("watch")

		st, err := openReadStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		checker := monitoring.NewChecker(monitoring.NewCollector(st), monitoring.NewAlerter(cfg.Monitoring))
		if watch {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return checker.Run(ctx, cfg.Monitoring.CheckSchedule)
		}

		snap, alerts, err := checker.Check(cmd.Context())
		if err != nil {
			return err
		}
		formatSnapshot(os.Stdout, snap)
		fmt.Fprintln(os.Stdout)
		formatAlerts(os.Stdout, alerts)
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "print as JSON")
	monitorCmd.Flags().Bool("watch", false, "keep checking on monitoring.check_schedule")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(monitorCmd)
}
