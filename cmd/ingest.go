package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/ingest"
	"github.com/sells-group/complaint-cli/internal/pipeline"
)

// ingestSummary counts the outcome of submitting one feed batch.
type ingestSummary struct {
	Loaded     int
	Submitted  int
	Duplicates int
	Rejected   int
	Errors     int
}

func (s ingestSummary) fields() []zap.Field {
	return []zap.Field{
		zap.Int("loaded", s.Loaded),
		zap.Int("submitted", s.Submitted),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("rejected", s.Rejected),
		zap.Int("errors", s.Errors),
	}
}

// submitBatch submits every loaded record and returns a process request
// for each complaint that still has work to do. Known complaints that are
// halted are skipped, so polling the same feed twice is a no-op.
func submitBatch(ctx context.Context, orch *pipeline.Orchestrator, b *ingest.Batch) ([]dispatch.Request, ingestSummary) {
	sum := ingestSummary{Loaded: len(b.Records), Rejected: len(b.Rejected)}
	for _, rej := range b.Rejected {
		zap.L().Warn("ingest: entry rejected",
			zap.String("source", string(rej.Source)),
			zap.String("external_id", rej.ExternalID),
			zap.Error(rej.Err),
		)
	}

	var reqs []dispatch.Request
	for i := range b.Records {
		sub, err := orch.Submit(ctx, &b.Records[i])
		if err != nil {
			sum.Errors++
			zap.L().Error("ingest: submit failed",
				zap.String("source", string(b.Records[i].Source)),
				zap.String("external_id", b.Records[i].ExternalID),
				zap.Error(err),
			)
			continue
		}
		if sub.Duplicate {
			sum.Duplicates++
		} else {
			sum.Submitted++
		}
		if !sub.State.Status.Halted() {
			reqs = append(reqs, dispatch.Request{ID: sub.State.ComplaintID, Op: dispatch.OpProcess})
		}
	}
	return reqs, sum
}

// pollFeeds loads every feed under dir, submits the records and starts
// processing in the background.
func pollFeeds(ctx context.Context, env *appEnv, dir string) {
	b, err := ingest.NewLoader(dir).Load(ctx)
	if err != nil {
		zap.L().Error("ingest: poll failed", zap.String("dir", dir), zap.Error(err))
		return
	}
	reqs, sum := submitBatch(ctx, env.Orchestrator, b)
	for _, req := range reqs {
		env.Dispatcher.Go(ctx, req)
	}
	zap.L().Info("ingest: poll complete", append(sum.fields(), zap.Int("dispatched", len(reqs)))...)
}
