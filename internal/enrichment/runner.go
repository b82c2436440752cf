package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"creatorsync/internal/creator"
	"creatorsync/internal/logging"
	"creatorsync/internal/marketplace"
	"creatorsync/internal/services"
	"creatorsync/internal/stats"
)

// StopReason explains why an enrichment run ended.
type StopReason string

const (
	StopBatchComplete      StopReason = "batch_complete"
	StopEmpty              StopReason = "empty"
	StopQuotaExceeded      StopReason = "quota_exceeded"
	StopCancelled          StopReason = "cancelled"
	StopConfigurationError StopReason = "configuration_error"
	StopSelectionError     StopReason = "selection_error"
)

// NotFoundSuffix is appended to the enrichment source when a search returned
// no exact match.
const NotFoundSuffix = ":not_found"

// Searcher performs one marketplace creator search.
type Searcher interface {
	SearchCreators(ctx context.Context, keyword string) ([]marketplace.Candidate, error)
}

// Pacer enforces the minimum interval between searches.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SnapshotRecorder writes the dated history row for a refresh.
type SnapshotRecorder interface {
	Record(ctx context.Context, creatorID int64, m creator.Metrics) error
}

// Meter is the quota meter the runner consults and charges.
type Meter interface {
	QuotaMeter
	Record(ctx context.Context) (int, error)
}

// RunParams are the batch entrypoint parameters.
type RunParams struct {
	// Brand labels the run in logs and reports. It does not change selection.
	Brand       string
	BatchSize   int
	StaleBefore time.Time
	SkipAssets  bool
	// Progress, when set, is called after every creator with the running counters.
	Progress func(ctx context.Context, counters map[string]int)
}

// Report summarizes an enrichment run.
type Report struct {
	Counters   map[string]int
	StopReason StopReason
	Selected   int
	Err        error
}

// Runner walks a scheduled batch and refreshes each creator.
type Runner struct {
	scheduler *Scheduler
	searcher  Searcher
	store     creator.Store
	snapshots SnapshotRecorder
	quota     Meter
	pacer     Pacer
	source    string
	logger    *slog.Logger
	now       func() time.Time
}

// RunnerDeps collects the collaborators of a Runner.
type RunnerDeps struct {
	Scheduler *Scheduler
	Searcher  Searcher
	Store     creator.Store
	Snapshots SnapshotRecorder
	Quota     Meter
	Pacer     Pacer
	Source    string
	Logger    *slog.Logger
}

// NewRunner constructs a Runner.
func NewRunner(deps RunnerDeps) *Runner {
	source := strings.TrimSpace(deps.Source)
	if source == "" {
		source = "marketplace_api"
	}
	pacer := deps.Pacer
	if pacer == nil {
		pacer = marketplace.NewPacer(0)
	}
	return &Runner{
		scheduler: deps.Scheduler,
		searcher:  deps.Searcher,
		store:     deps.Store,
		snapshots: deps.Snapshots,
		quota:     deps.Quota,
		pacer:     pacer,
		source:    source,
		logger:    logging.NewComponentLogger(deps.Logger, "enrichment"),
		now:       time.Now,
	}
}

// SetClock overrides the time source used for enrichment stamps.
func (r *Runner) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Run selects a batch and refreshes it sequentially. Each search is issued
// with cancellation detached so an in-flight call always completes; the
// context is honoured between creators.
func (r *Runner) Run(ctx context.Context, params RunParams) Report {
	counters := stats.EnrichmentCounters()
	logger := logging.WithContext(ctx, r.logger)
	if brand := strings.TrimSpace(params.Brand); brand != "" {
		logger = logger.With(logging.String("brand", brand))
	}

	batch, err := r.scheduler.Select(ctx, SelectParams{BatchSize: params.BatchSize, StaleBefore: params.StaleBefore})
	if err != nil {
		logging.ErrorWithContext(logger, "enrichment selection failed", "selection_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no creators refreshed this run"),
		)
		return Report{Counters: counters.Snapshot(), StopReason: StopSelectionError, Err: err}
	}
	report := Report{Selected: len(batch.Creators)}
	if batch.QuotaExhausted {
		logger.Info("daily quota already spent; no creators selected",
			logging.String(logging.FieldEventType, "quota_exhausted"),
		)
		report.Counters = counters.Snapshot()
		report.StopReason = StopQuotaExceeded
		return report
	}
	if len(batch.Creators) == 0 {
		report.Counters = counters.Snapshot()
		report.StopReason = StopEmpty
		return report
	}

	logger.Info("enrichment batch selected",
		logging.Int("selected", len(batch.Creators)),
		logging.Int("limit", batch.Limit),
		logging.Time("stale_before", batch.StaleBefore),
	)

	report.StopReason = StopBatchComplete
	itemCtx := context.WithoutCancel(ctx)
	for _, c := range batch.Creators {
		if ctx.Err() != nil {
			report.StopReason = StopCancelled
			break
		}
		if stop, err := r.refresh(ctx, itemCtx, c, params.SkipAssets, counters, logger); stop != "" {
			report.StopReason = stop
			report.Err = err
			break
		}
		if params.Progress != nil {
			params.Progress(ctx, counters.Snapshot())
		}
	}

	report.Counters = counters.Snapshot()
	return report
}

// refresh handles one creator. A non-empty StopReason ends the run.
func (r *Runner) refresh(ctx, itemCtx context.Context, c *creator.Creator, skipAssets bool, counters *stats.Counters, logger *slog.Logger) (StopReason, error) {
	logger = logger.With(
		logging.Int64(logging.FieldCreatorID, c.ID),
		logging.String(logging.FieldHandle, c.Handle),
	)

	if r.quota != nil {
		remaining, err := r.quota.Remaining(itemCtx)
		if err != nil {
			counters.Inc(stats.Errors)
			logging.WarnWithContext(logger, "quota read failed", "quota_read_failed", logging.Error(err))
			return "", nil
		}
		if remaining <= 0 {
			logger.Info("daily quota spent; stopping run", logging.String(logging.FieldEventType, "quota_exhausted"))
			return StopQuotaExceeded, nil
		}
	}

	if err := r.pacer.Wait(ctx); err != nil {
		return StopCancelled, nil
	}

	candidates, err := r.searcher.SearchCreators(itemCtx, c.Handle)
	counters.Inc(stats.APICalls)
	if r.quota != nil {
		if _, qerr := r.quota.Record(itemCtx); qerr != nil {
			logging.WarnWithContext(logger, "quota usage not recorded", "quota_record_failed",
				logging.Error(qerr),
				logging.String(logging.FieldImpact, "the daily quota may be undercounted"),
			)
		}
	}
	if err != nil {
		counters.Inc(stats.Errors)
		logging.WarnWithContext(logger, "creator search failed", "search_failed",
			logging.String("error_kind", string(services.Classify(err))),
			logging.Error(err),
		)
		switch {
		case errors.Is(err, services.ErrQuotaExceeded):
			return StopQuotaExceeded, err
		case errors.Is(err, services.ErrConfiguration):
			return StopConfigurationError, err
		}
		return "", nil
	}

	now := r.now().UTC()
	match, ok := marketplace.ExactMatch(candidates, c.Handle)
	if !ok {
		counters.Inc(stats.NotFound)
		stamp := creator.Patch{Stamp: &creator.Stamp{At: now, Source: r.source + NotFoundSuffix}}
		if err := r.store.Update(itemCtx, c.ID, stamp); err != nil {
			counters.Inc(stats.Errors)
			logging.WarnWithContext(logger, "not-found stamp failed", "stamp_failed", logging.Error(err))
		}
		logger.Debug("no exact marketplace match", logging.Int("candidates", len(candidates)))
		return "", nil
	}

	metrics := creator.Metrics{
		FollowerCount: match.FollowerCount,
		GMVCents:      match.GMV.MinorUnits,
		VideoGMVCents: match.VideoGMV.MinorUnits,
		AvgVideoViews: match.AvgVideoViews,
		EnrichedAt:    now,
		Source:        r.source,
	}
	in := creator.Incoming{Metrics: &metrics}.
		With(creator.FieldNickname, match.Nickname).
		With(creator.FieldAvatarURL, match.AvatarURL)
	patch := creator.Merge(c, in)
	if skipAssets {
		patch = patch.WithoutAssets()
	}

	profileErr := r.store.Update(itemCtx, c.ID, patch)
	if profileErr != nil {
		counters.Inc(stats.Errors)
		logging.WarnWithContext(logger, "profile update failed", "profile_update_failed",
			logging.Error(profileErr),
			logging.String(logging.FieldImpact, "creator metrics stay stale until the next run"),
		)
	} else {
		counters.Inc(stats.Enriched)
	}

	if r.snapshots != nil {
		if err := r.snapshots.Record(itemCtx, c.ID, metrics); err != nil {
			counters.Inc(stats.SnapshotErrors)
			logging.WarnWithContext(logger, "snapshot write failed", "snapshot_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "today's history row is missing"),
			)
		}
	}
	return "", nil
}
