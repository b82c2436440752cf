package runs

import (
	"context"

	"creatorsync/internal/enrichment"
	"creatorsync/internal/ingest"
)

// SyncJob adapts an order sync to a Job.
func SyncJob(ing *ingest.Ingestor, params ingest.Params) Job {
	return func(ctx context.Context, progress func(map[string]int)) Outcome {
		params.Progress = func(_ context.Context, counters map[string]int) { progress(counters) }
		report := ing.Run(ctx, params)
		return Outcome{Counters: report.Counters, StopReason: string(report.StopReason), Err: report.Err}
	}
}

// EnrichmentJob adapts an enrichment batch to a Job.
func EnrichmentJob(runner *enrichment.Runner, params enrichment.RunParams) Job {
	return func(ctx context.Context, progress func(map[string]int)) Outcome {
		params.Progress = func(_ context.Context, counters map[string]int) { progress(counters) }
		report := runner.Run(ctx, params)
		return Outcome{Counters: report.Counters, StopReason: string(report.StopReason), Err: report.Err}
	}
}
