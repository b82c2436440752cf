package enrichment_test

import (
	"context"
	"testing"
	"time"

	"creatorsync/internal/creator"
	"creatorsync/internal/enrichment"
	"creatorsync/internal/store"
	"creatorsync/internal/testsupport"
)

func newScheduler(t *testing.T, quota int) (*enrichment.Scheduler, *enrichment.Quota, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithDailyQuota(quota))
	st := testsupport.MustOpenStore(t, cfg)
	meter := enrichment.NewQuota(st, enrichment.MarketplaceAPI, cfg.Marketplace.DailyQuota)
	sched := enrichment.NewScheduler(enrichment.SchedulerConfig{
		BatchSize:      cfg.Enrichment.BatchSize,
		StaleAfter:     cfg.StaleAfter(),
		RecentActivity: cfg.RecentActivity(),
	}, st, meter)
	return sched, meter, st
}

func handles(cs []*creator.Creator) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Handle)
	}
	return out
}

func TestSelectStalenessGate(t *testing.T) {
	sched, _, st := newScheduler(t, 100)
	now := time.Now().UTC()

	fresh := testsupport.SeedCreator(t, st, creator.Creator{Handle: "fresh"})
	stale := testsupport.SeedCreator(t, st, creator.Creator{Handle: "stale"})
	testsupport.SeedCreator(t, st, creator.Creator{Handle: "never"})
	testsupport.SetEnriched(t, st, fresh.ID, creator.Metrics{EnrichedAt: now.AddDate(0, 0, -2), Source: "marketplace_api"})
	testsupport.SetEnriched(t, st, stale.ID, creator.Metrics{EnrichedAt: now.AddDate(0, 0, -10), Source: "marketplace_api"})

	batch, err := sched.Select(context.Background(), enrichment.SelectParams{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	got := handles(batch.Creators)
	if len(got) != 2 || got[0] != "never" || got[1] != "stale" {
		t.Fatalf("expected [never stale], got %v", got)
	}
}

func TestSelectExplicitStaleBefore(t *testing.T) {
	sched, _, st := newScheduler(t, 100)
	now := time.Now().UTC()
	c := testsupport.SeedCreator(t, st, creator.Creator{Handle: "recent"})
	testsupport.SetEnriched(t, st, c.ID, creator.Metrics{EnrichedAt: now.Add(-time.Hour), Source: "marketplace_api"})

	batch, err := sched.Select(context.Background(), enrichment.SelectParams{StaleBefore: now})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(batch.Creators) != 1 {
		t.Fatalf("expected the creator to be stale relative to now, got %v", handles(batch.Creators))
	}
}

func TestSelectBoundedByQuota(t *testing.T) {
	sched, meter, st := newScheduler(t, 3)
	for _, h := range []string{"a", "b", "c", "d"} {
		testsupport.SeedCreator(t, st, creator.Creator{Handle: h})
	}
	if _, err := meter.Record(context.Background()); err != nil {
		t.Fatalf("Record: %v", err)
	}

	batch, err := sched.Select(context.Background(), enrichment.SelectParams{BatchSize: 10})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if batch.Limit != 2 || len(batch.Creators) != 2 || batch.QuotaExhausted {
		t.Fatalf("expected a batch of 2 bounded by remaining quota, got limit=%d len=%d", batch.Limit, len(batch.Creators))
	}

	for range 2 {
		if _, err := meter.Record(context.Background()); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	batch, err = sched.Select(context.Background(), enrichment.SelectParams{BatchSize: 10})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !batch.QuotaExhausted || len(batch.Creators) != 0 {
		t.Fatalf("expected exhausted quota, got %+v", batch)
	}
}

func TestSelectSkipsUnusableHandles(t *testing.T) {
	sched, _, st := newScheduler(t, 100)
	testsupport.SeedCreator(t, st, creator.Creator{Handle: "j***e"})
	testsupport.SeedCreator(t, st, creator.Creator{FirstName: "No", LastName: "Handle"})
	testsupport.SeedCreator(t, st, creator.Creator{Handle: "real"})

	batch, err := sched.Select(context.Background(), enrichment.SelectParams{})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := handles(batch.Creators); len(got) != 1 || got[0] != "real" {
		t.Fatalf("expected only the usable handle, got %v", got)
	}
}

func TestCompareOrdering(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	recentSince := now.AddDate(0, 0, -30)
	recentSample := now.AddDate(0, 0, -1)
	oldSample := now.AddDate(0, 0, -90)
	enriched := now.AddDate(0, 0, -20)

	tests := []struct {
		name string
		a, b creator.Creator
		want int
	}{
		{
			name: "recent activity first",
			a:    creator.Creator{ID: 2, LastSampleAt: &recentSample, LastEnrichedAt: &enriched},
			b:    creator.Creator{ID: 1, LastSampleAt: &oldSample},
			want: -1,
		},
		{
			name: "never enriched before stale",
			a:    creator.Creator{ID: 2, LastEnrichedAt: &enriched, GMVCents: 900},
			b:    creator.Creator{ID: 1},
			want: 1,
		},
		{
			name: "higher gmv first",
			a:    creator.Creator{ID: 2, GMVCents: 500},
			b:    creator.Creator{ID: 1, GMVCents: 100},
			want: -1,
		},
		{
			name: "lower id breaks ties",
			a:    creator.Creator{ID: 1},
			b:    creator.Creator{ID: 2},
			want: -1,
		},
		{
			name: "equal",
			a:    creator.Creator{ID: 3},
			b:    creator.Creator{ID: 3},
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := enrichment.Compare(&tt.a, &tt.b, recentSince); got != tt.want {
				t.Fatalf("Compare = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEligible(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	before := cutoff.Add(-time.Second)
	tests := []struct {
		name string
		c    *creator.Creator
		want bool
	}{
		{"nil", nil, false},
		{"no handle", &creator.Creator{}, false},
		{"masked handle", &creator.Creator{Handle: "ab**"}, false},
		{"never enriched", &creator.Creator{Handle: "ok"}, true},
		{"enriched before cutoff", &creator.Creator{Handle: "ok", LastEnrichedAt: &before}, true},
		{"enriched at cutoff", &creator.Creator{Handle: "ok", LastEnrichedAt: &cutoff}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := enrichment.Eligible(tt.c, cutoff); got != tt.want {
				t.Fatalf("Eligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuotaUsesUTCDay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	meter := enrichment.NewQuota(st, enrichment.MarketplaceAPI, 2)

	day := time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("PST", -8*3600))
	meter.SetClock(func() time.Time { return day })
	if _, err := meter.Record(context.Background()); err != nil {
		t.Fatalf("Record: %v", err)
	}
	calls, err := st.UsageFor(context.Background(), "2026-03-02", enrichment.MarketplaceAPI)
	if err != nil || calls != 1 {
		t.Fatalf("expected one call on the UTC day, got %d (%v)", calls, err)
	}
	remaining, err := meter.Remaining(context.Background())
	if err != nil || remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d (%v)", remaining, err)
	}

	unlimited := enrichment.NewQuota(st, enrichment.MarketplaceAPI, 0)
	if remaining, _ := unlimited.Remaining(context.Background()); remaining <= 0 {
		t.Fatalf("expected unlimited quota to report remaining calls, got %d", remaining)
	}
}
