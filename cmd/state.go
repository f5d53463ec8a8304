package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/store"
)

// stateView is the JSON shape of the state command.
type stateView struct {
	State  *model.WorkflowState  `json:"state"`
	Runs   []model.WorkflowState `json:"runs,omitempty"`
	Events []model.AuditEvent    `json:"events,omitempty"`
}

var stateCmd = &cobra.Command{
	Use:   "state <complaint-id>",
	Short: "Show the workflow state of a complaint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		asJSON, _ := cmd.Flags().GetBool("json")
		withEvents, _ := cmd.Flags().GetBool("events")
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := openReadStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		view := stateView{}
		view.State, err = st.GetState(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "state")
		}
		if view.Runs, err = st.ListRuns(ctx, args[0]); err != nil {
			return eris.Wrap(err, "state: runs")
		}
		if withEvents {
			if view.Events, err = st.ListEvents(ctx, args[0], limit); err != nil {
				return eris.Wrap(err, "state: events")
			}
		}

		if asJSON {
			return writeJSON(os.Stdout, view)
		}
		formatState(os.Stdout, view.State)
		if len(view.Runs) > 0 {
			fmt.Fprintln(os.Stdout, "\nArchived runs:")
			formatStatesList(os.Stdout, view.Runs)
		}
		if len(view.Events) > 0 {
			fmt.Fprintln(os.Stdout, "\nEvents:")
			formatEvents(os.Stdout, view.Events)
		}
		return nil
	},
}

// openReadStore validates config for read-only use and opens the store.
func openReadStore(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("read"); err != nil {
		return nil, err
	}
	return initStore(cmd.Context())
}

func init() {
	stateCmd.Flags().Bool("json", false, "print as JSON")
	stateCmd.Flags().Bool("events", true, "include the audit trail")
	stateCmd.Flags().Int("limit", 50, "max number of events")
	rootCmd.AddCommand(stateCmd)
}
