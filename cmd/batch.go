package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/ingest"
	"github.com/sells-group/complaint-cli/internal/model"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Ingest source feeds and process every new complaint",
	Long:  "Loads the JSON feed exports under --data-dir, submits each complaint and processes them concurrently up to the dispatch ceiling.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dataDir, _ := cmd.Flags().GetString("data-dir")
		sources, _ := cmd.Flags().GetStringSlice("source")
		limit, _ := cmd.Flags().GetInt("limit")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if dataDir == "" {
			dataDir = cfg.Ingest.DataDir
		}
		if concurrency > 0 {
			cfg.Dispatch.MaxConcurrent = concurrency
		}
		kinds, err := parseSources(sources)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "process")
		if err != nil {
			return err
		}
		defer env.Close()

		b, err := ingest.NewLoader(dataDir).Load(ctx, kinds...)
		if err != nil {
			return eris.Wrap(err, "batch: load feeds")
		}
		if limit > 0 && len(b.Records) > limit {
			b.Records = b.Records[:limit]
		}

		reqs, sum := submitBatch(ctx, env.Orchestrator, b)
		zap.L().Info("batch: feeds submitted", sum.fields()...)
		if len(reqs) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to process.")
			return nil
		}

		results := env.Dispatcher.Batch(ctx, reqs)
		failed := formatResults(os.Stdout, results)
		fmt.Fprintf(os.Stderr, "\n%d loaded, %d new, %d duplicates, %d rejected, %d processed, %d with errors\n",
			sum.Loaded, sum.Submitted, sum.Duplicates, sum.Rejected, len(results), failed)
		return nil
	},
}

// parseSources resolves source flag values, accepting comma separated
// lists and aliases.
func parseSources(values []string) ([]model.SourceKind, error) {
	var kinds []model.SourceKind
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			kind, ok := model.ParseSourceKind(part)
			if !ok {
				return nil, eris.Errorf("unknown source %q", part)
			}
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

func init() {
	batchCmd.Flags().String("data-dir", "", "directory holding feed exports (default from config)")
	batchCmd.Flags().StringSlice("source", nil, "only load these sources")
	batchCmd.Flags().Int("limit", 100, "max number of complaints to submit")
	batchCmd.Flags().Int("concurrency", 0, "max concurrent complaints (default from config)")
	rootCmd.AddCommand(batchCmd)
}
