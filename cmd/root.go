// Command complaint-cli ingests customer complaints and drives them through
// anonymization, classification, routing, ticketing and notification.
package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "complaint-cli",
	Short:             "Customer complaint processing orchestrator",
	Long:              "Anonymizes, classifies, routes and tickets customer complaints from every support channel, then notifies the owning team and the consumer.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { _ = zap.L().Sync() },
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "override log.level (debug, info, warn, error)")
	pf.Bool("offline", false, "classify with keyword rules instead of the Anthropic API")
}

// setup loads config.yaml and COMPLAINT_* variables, applies the global
// flag overrides and installs the process logger.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	applyOverrides(c, cmd)

	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c
	return nil
}

func applyOverrides(c *config.Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	if lvl, _ := flags.GetString("log-level"); lvl != "" {
		c.Log.Level = lvl
	}
	if flags.Changed("offline") {
		c.Anthropic.Offline, _ = flags.GetBool("offline")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
