package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/store"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List complaints that have not completed",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		statuses, _ := cmd.Flags().GetStringSlice("status")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter, err := pendingFilter(statuses, source, limit)
		if err != nil {
			return err
		}

		st, err := openReadStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		states, err := st.ListStates(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "pending")
		}

		if asJSON {
			if states == nil {
				states = []model.WorkflowState{}
			}
			return writeJSON(os.Stdout, states)
		}
		if len(states) == 0 {
			fmt.Fprintln(os.Stderr, "No pending complaints.")
			return nil
		}
		formatStatesList(os.Stdout, states)
		return nil
	},
}

// pendingFilter builds a pending-only state filter from flag values.
func pendingFilter(statuses []string, source string, limit int) (store.StateFilter, error) {
	filter := store.StateFilter{PendingOnly: true, Limit: limit}
	for _, raw := range statuses {
		s := model.Status(strings.ToUpper(strings.TrimSpace(raw)))
		if !s.Valid() {
			return filter, eris.Errorf("unknown status %q", raw)
		}
		filter.Statuses = append(filter.Statuses, s)
	}
	if source != "" {
		kind, ok := model.ParseSourceKind(source)
		if !ok {
			return filter, eris.Errorf("unknown source %q", source)
		}
		filter.Source = kind
	}
	return filter, nil
}

func init() {
	pendingCmd.Flags().StringSlice("status", nil, "filter by status (NEEDS_REVIEW, FAILED_TICKET, ...)")
	pendingCmd.Flags().String("source", "", "filter by source")
	pendingCmd.Flags().Int("limit", 50, "max number of complaints to list")
	pendingCmd.Flags().Bool("json", false, "print as JSON")
	rootCmd.AddCommand(pendingCmd)
}
