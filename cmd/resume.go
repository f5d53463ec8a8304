package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/pipeline"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <complaint-id>...",
	Short: "Resume failed, paused or interrupted complaints",
	Long:  "Re-enters the pipeline at the last completed stage. A complaint waiting in NEEDS_REVIEW resumes at the QA gate as approved.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs := make([]dispatch.Request, len(args))
		for i, id := range args {
			reqs[i] = dispatch.Request{ID: id, Op: dispatch.OpResume}
		}
		return runRequests(cmd, reqs)
	},
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <complaint-id>...",
	Short: "Archive the current run and process complaints from the start",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		supersede, _ := cmd.Flags().GetBool("supersede-ticket")
		reqs := make([]dispatch.Request, len(args))
		for i, id := range args {
			reqs[i] = dispatch.Request{
				ID:        id,
				Op:        dispatch.OpReprocess,
				Reprocess: pipeline.ReprocessOptions{SupersedeTicket: supersede},
			}
		}
		return runRequests(cmd, reqs)
	},
}

// runRequests dispatches reqs and prints their results. It fails when any
// request failed.
func runRequests(cmd *cobra.Command, reqs []dispatch.Request) error {
	env, err := initEnv(cmd.Context(), "process")
	if err != nil {
		return err
	}
	defer env.Close()

	results := env.Dispatcher.Batch(cmd.Context(), reqs)
	if failed := formatResults(os.Stdout, results); failed > 0 {
		return fmt.Errorf("%d of %d complaints failed", failed, len(results))
	}
	return nil
}

func init() {
	reprocessCmd.Flags().Bool("supersede-ticket", false, "retire the linked ticket so the new run opens a new one")
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(reprocessCmd)
}
