package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/model"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one complaint and process it",
	Long:  "Reads a complaint record as JSON from --file (or stdin with -), stores it and drives it through the pipeline.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		source, _ := cmd.Flags().GetString("source")
		noProcess, _ := cmd.Flags().GetBool("no-process")
		asJSON, _ := cmd.Flags().GetBool("json")

		rec, err := readRecord(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}
		if source != "" {
			kind, ok := model.ParseSourceKind(source)
			if !ok {
				return eris.Errorf("unknown source %q", source)
			}
			rec.Source = kind
		}

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		sub, err := env.Orchestrator.Submit(ctx, rec)
		if err != nil {
			return eris.Wrap(err, "submit")
		}
		st := sub.State
		if sub.Duplicate {
			cmd.PrintErrf("Complaint already known as %s.\n", st.ComplaintID)
		}

		if !noProcess && !st.Status.Halted() {
			res := env.Dispatcher.Dispatch(ctx, dispatch.Request{ID: st.ComplaintID, Op: dispatch.OpProcess})
			if res.State != nil {
				st = res.State
			}
			if res.Err != nil {
				cmd.PrintErrf("Processing stopped: %v\n", res.Err)
			}
		}

		if asJSON {
			return writeJSON(cmd.OutOrStdout(), st)
		}
		formatState(cmd.OutOrStdout(), st)
		return nil
	},
}

// readRecord decodes one complaint record from path, or from stdin when
// path is "-".
func readRecord(stdin io.Reader, path string) (*model.ComplaintRecord, error) {
	if path == "" {
		return nil, eris.New("--file is required")
	}
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck
		r = f
	}
	var rec model.ComplaintRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, eris.Wrap(err, "decode complaint")
	}
	if kind, ok := model.ParseSourceKind(string(rec.Source)); ok {
		rec.Source = kind
	}
	return &rec, nil
}

func init() {
	submitCmd.Flags().String("file", "", "path to a JSON complaint record, or - for stdin")
	submitCmd.Flags().String("source", "", "override the record source (feedback-site, issue-tracker, chat, phone, email)")
	submitCmd.Flags().Bool("no-process", false, "store the complaint without processing it")
	submitCmd.Flags().Bool("json", false, "print the resulting state as JSON")
	rootCmd.AddCommand(submitCmd)
}
