package enrichment

import (
	"context"
	"fmt"
	"slices"
	"time"

	"creatorsync/internal/creator"
	"creatorsync/internal/identity"
	"creatorsync/internal/store"
)

// CandidateSource reads enrichment candidates.
type CandidateSource interface {
	EnrichmentCandidates(ctx context.Context, q store.CandidateQuery) ([]*creator.Creator, error)
}

// QuotaMeter reports how many external calls remain today.
type QuotaMeter interface {
	Remaining(ctx context.Context) (int, error)
}

// SchedulerConfig holds the scheduler tunables.
type SchedulerConfig struct {
	BatchSize      int
	StaleAfter     time.Duration
	RecentActivity time.Duration
}

// SelectParams override the configured batch size and staleness cutoff for
// one run. Zero values fall back to the configuration.
type SelectParams struct {
	BatchSize   int
	StaleBefore time.Time
}

// Batch is the scheduler's selection for one run.
type Batch struct {
	Creators       []*creator.Creator
	Limit          int
	StaleBefore    time.Time
	QuotaExhausted bool
}

// Scheduler selects which creators to refresh. Selection is a pure read.
type Scheduler struct {
	cfg    SchedulerConfig
	source CandidateSource
	quota  QuotaMeter
	now    func() time.Time
}

// NewScheduler constructs a scheduler.
func NewScheduler(cfg SchedulerConfig, source CandidateSource, quota QuotaMeter) *Scheduler {
	return &Scheduler{cfg: cfg, source: source, quota: quota, now: time.Now}
}

// SetClock overrides the time source. Intended for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Select returns up to min(batch size, remaining quota) eligible creators in
// priority order.
func (s *Scheduler) Select(ctx context.Context, params SelectParams) (Batch, error) {
	now := s.now().UTC()
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}
	staleBefore := params.StaleBefore
	if staleBefore.IsZero() {
		staleBefore = now.Add(-s.cfg.StaleAfter)
	}
	batch := Batch{StaleBefore: staleBefore}

	limit := batchSize
	if s.quota != nil {
		remaining, err := s.quota.Remaining(ctx)
		if err != nil {
			return Batch{}, fmt.Errorf("read remaining quota: %w", err)
		}
		if remaining <= 0 {
			batch.QuotaExhausted = true
			return batch, nil
		}
		limit = min(limit, remaining)
	}
	batch.Limit = limit
	if limit <= 0 {
		return batch, nil
	}

	recentSince := now.Add(-s.cfg.RecentActivity)
	candidates, err := s.source.EnrichmentCandidates(ctx, store.CandidateQuery{
		StaleBefore: staleBefore,
		RecentSince: recentSince,
		Limit:       limit,
	})
	if err != nil {
		return Batch{}, fmt.Errorf("read enrichment candidates: %w", err)
	}

	selected := make([]*creator.Creator, 0, len(candidates))
	for _, c := range candidates {
		if Eligible(c, staleBefore) {
			selected = append(selected, c)
		}
	}
	slices.SortStableFunc(selected, func(a, b *creator.Creator) int {
		return Compare(a, b, recentSince)
	})
	if len(selected) > limit {
		selected = selected[:limit]
	}
	batch.Creators = selected
	return batch, nil
}

// Eligible reports whether c may be refreshed: it needs a usable handle and
// must never have been enriched or have been enriched before staleBefore.
func Eligible(c *creator.Creator, staleBefore time.Time) bool {
	if c == nil || !identity.Usable(c.Handle) {
		return false
	}
	return c.LastEnrichedAt == nil || c.LastEnrichedAt.Before(staleBefore)
}

// Compare orders creators by refresh priority: recent sample activity first,
// never-enriched before stale, higher GMV, then lower id.
func Compare(a, b *creator.Creator, recentSince time.Time) int {
	if ra, rb := recent(a, recentSince), recent(b, recentSince); ra != rb {
		if ra {
			return -1
		}
		return 1
	}
	if na, nb := a.LastEnrichedAt == nil, b.LastEnrichedAt == nil; na != nb {
		if na {
			return -1
		}
		return 1
	}
	if a.GMVCents != b.GMVCents {
		if a.GMVCents > b.GMVCents {
			return -1
		}
		return 1
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func recent(c *creator.Creator, since time.Time) bool {
	return c.LastSampleAt != nil && !c.LastSampleAt.Before(since)
}
