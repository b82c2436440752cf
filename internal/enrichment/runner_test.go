package enrichment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"creatorsync/internal/creator"
	"creatorsync/internal/enrichment"
	"creatorsync/internal/marketplace"
	"creatorsync/internal/services"
	"creatorsync/internal/snapshot"
	"creatorsync/internal/stats"
	"creatorsync/internal/store"
	"creatorsync/internal/testsupport"
)

// fakeSearcher answers searches from a keyword map and can fail on a given call.
type fakeSearcher struct {
	results map[string][]marketplace.Candidate
	failOn  int
	failErr error
	calls   []string
}

func (f *fakeSearcher) SearchCreators(_ context.Context, keyword string) ([]marketplace.Candidate, error) {
	f.calls = append(f.calls, keyword)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return nil, f.failErr
	}
	return f.results[keyword], nil
}

type failingSnapshots struct{}

func (failingSnapshots) Record(context.Context, int64, creator.Metrics) error {
	return services.Wrap(services.ErrTransient, "snapshot", "record", "disk full", nil)
}

// failingUpdates rejects every profile update but serves reads from the real store.
type failingUpdates struct {
	*store.Store
}

func (failingUpdates) Update(context.Context, int64, creator.Patch) error {
	return errors.New("database is locked")
}

type failingCandidates struct{}

func (failingCandidates) EnrichmentCandidates(context.Context, store.CandidateQuery) ([]*creator.Creator, error) {
	return nil, errors.New("database is locked")
}

type fixture struct {
	st       *store.Store
	searcher *fakeSearcher
	quota    *enrichment.Quota
	runner   *enrichment.Runner
}

type fixtureOption func(*enrichment.RunnerDeps)

func newFixture(t *testing.T, quota int, searcher *fakeSearcher, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithDailyQuota(quota))
	st := testsupport.MustOpenStore(t, cfg)
	meter := enrichment.NewQuota(st, enrichment.MarketplaceAPI, quota)
	sched := enrichment.NewScheduler(enrichment.SchedulerConfig{
		BatchSize:      cfg.Enrichment.BatchSize,
		StaleAfter:     cfg.StaleAfter(),
		RecentActivity: cfg.RecentActivity(),
	}, st, meter)
	deps := enrichment.RunnerDeps{
		Scheduler: sched,
		Searcher:  searcher,
		Store:     st,
		Snapshots: snapshot.NewRecorder(st, nil),
		Quota:     meter,
		Source:    cfg.Enrichment.Source,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &fixture{st: st, searcher: searcher, quota: meter, runner: enrichment.NewRunner(deps)}
}

func candidate(handle string, followers int64, gmvCents int64) marketplace.Candidate {
	return marketplace.Candidate{
		Username:      handle,
		Nickname:      "Nick " + handle,
		AvatarURL:     "https://cdn.example.com/" + handle + ".png",
		FollowerCount: followers,
		GMV:           marketplace.Money{MinorUnits: gmvCents, Currency: "USD"},
		AvgVideoViews: 1200,
	}
}

func TestRunEnrichesAndStampsNotFound(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{
		"alice": {candidate("alice_fan", 1, 1), candidate("Alice", 5000, 123456)},
		"bob":   {candidate("bobby", 10, 10)},
	}}
	f := newFixture(t, 100, searcher)
	alice := testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "alice", GMVCents: 10})
	bob := testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "bob"})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.StopReason != enrichment.StopBatchComplete || report.Selected != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	want := map[string]int{stats.APICalls: 2, stats.Enriched: 1, stats.NotFound: 1, stats.Errors: 0, stats.SnapshotErrors: 0}
	for name, n := range want {
		if report.Counters[name] != n {
			t.Fatalf("counter %s = %d, want %d (%v)", name, report.Counters[name], n, report.Counters)
		}
	}

	got, err := f.st.GetByID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FollowerCount != 5000 || got.GMVCents != 123456 || got.Nickname != "Nick Alice" || got.LastEnrichedAt == nil {
		t.Fatalf("alice not enriched: %+v", got)
	}
	snaps, err := f.st.ListSnapshots(context.Background(), alice.ID, 10)
	if err != nil || len(snaps) != 1 || snaps[0].GMVCents != 123456 {
		t.Fatalf("expected one snapshot for alice, got %+v (%v)", snaps, err)
	}

	missing, err := f.st.GetByID(context.Background(), bob.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if missing.LastEnrichedAt == nil || missing.EnrichmentSource != "marketplace_api"+enrichment.NotFoundSuffix {
		t.Fatalf("expected a not-found stamp on bob, got %+v", missing)
	}
	if missing.FollowerCount != 0 {
		t.Fatalf("not-found stamp must not touch metrics, got %+v", missing)
	}

	used, err := f.quota.Used(context.Background())
	if err != nil || used != 2 {
		t.Fatalf("expected 2 recorded calls, got %d (%v)", used, err)
	}

	again := f.runner.Run(context.Background(), enrichment.RunParams{})
	if again.StopReason != enrichment.StopEmpty || again.Counters[stats.APICalls] != 0 {
		t.Fatalf("expected nothing stale on an immediate re-run, got %+v", again)
	}
}

func TestRunStopsOnQuotaExceeded(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]marketplace.Candidate{"a": {candidate("a", 1, 100)}},
		failOn:  2,
		failErr: services.Wrap(services.ErrQuotaExceeded, "marketplace", "search creators", "daily limit", nil),
	}
	f := newFixture(t, 100, searcher)
	first := testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a", GMVCents: 300})
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "b", GMVCents: 200})
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "c", GMVCents: 100})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.StopReason != enrichment.StopQuotaExceeded || !errors.Is(report.Err, services.ErrQuotaExceeded) {
		t.Fatalf("expected quota stop, got %+v", report)
	}
	if len(searcher.calls) != 2 || report.Counters[stats.APICalls] != 2 || report.Counters[stats.Errors] != 1 {
		t.Fatalf("expected no calls after the quota error, got calls=%v counters=%v", searcher.calls, report.Counters)
	}
	got, _ := f.st.GetByID(context.Background(), first.ID)
	if got.LastEnrichedAt == nil {
		t.Fatalf("committed result before the quota error must be kept")
	}
}

func TestRunStopsWhenLocalQuotaSpent(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{}}
	f := newFixture(t, 1, searcher)
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a"})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.Counters[stats.APICalls] != 1 {
		t.Fatalf("expected one call, got %v", report.Counters)
	}
	report = f.runner.Run(context.Background(), enrichment.RunParams{StaleBefore: time.Now().Add(time.Hour)})
	if report.StopReason != enrichment.StopQuotaExceeded || len(searcher.calls) != 1 {
		t.Fatalf("expected an exhausted quota to stop before calling, got %+v calls=%v", report, searcher.calls)
	}
}

func TestRunSelectionFailureIsReported(t *testing.T) {
	searcher := &fakeSearcher{}
	f := newFixture(t, 100, searcher, func(d *enrichment.RunnerDeps) {
		d.Scheduler = enrichment.NewScheduler(enrichment.SchedulerConfig{BatchSize: 10, StaleAfter: time.Hour}, failingCandidates{}, d.Quota)
	})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.StopReason != enrichment.StopSelectionError || report.Err == nil {
		t.Fatalf("expected selection error report, got %+v", report)
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("expected no searches, got %v", searcher.calls)
	}
}

func TestRunStopsOnConfigurationError(t *testing.T) {
	searcher := &fakeSearcher{
		failOn:  1,
		failErr: services.Wrap(services.ErrConfiguration, "marketplace", "search creators", "unauthorized", nil),
	}
	f := newFixture(t, 100, searcher)
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a"})
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "b"})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.StopReason != enrichment.StopConfigurationError || len(searcher.calls) != 1 {
		t.Fatalf("expected configuration stop after one call, got %+v", report)
	}
}

func TestRunTransientErrorContinues(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]marketplace.Candidate{"b": {candidate("b", 1, 1)}},
		failOn:  1,
		failErr: services.Wrap(services.ErrTransient, "marketplace", "search creators", "http 429", nil),
	}
	f := newFixture(t, 100, searcher)
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a", GMVCents: 2})
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "b", GMVCents: 1})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.StopReason != enrichment.StopBatchComplete || report.Counters[stats.Errors] != 1 || report.Counters[stats.Enriched] != 1 {
		t.Fatalf("expected the batch to continue past a transient error, got %+v", report)
	}
}

func TestRunSnapshotFailureKeepsProfile(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{"a": {candidate("a", 77, 100)}}}
	f := newFixture(t, 100, searcher, func(d *enrichment.RunnerDeps) {
		d.Snapshots = failingSnapshots{}
	})
	c := testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a"})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.Counters[stats.Enriched] != 1 || report.Counters[stats.SnapshotErrors] != 1 || report.Counters[stats.Errors] != 0 {
		t.Fatalf("unexpected counters %v", report.Counters)
	}
	got, _ := f.st.GetByID(context.Background(), c.ID)
	if got.FollowerCount != 77 {
		t.Fatalf("profile update must survive a snapshot failure, got %+v", got)
	}
}

func TestRunProfileFailureKeepsSnapshot(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{"a": {candidate("a", 77, 100)}}}
	var st *store.Store
	f := newFixture(t, 100, searcher, func(d *enrichment.RunnerDeps) {
		st = d.Store.(*store.Store)
		d.Store = failingUpdates{Store: st}
	})
	c := testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a"})

	report := f.runner.Run(context.Background(), enrichment.RunParams{})
	if report.Counters[stats.Enriched] != 0 || report.Counters[stats.Errors] != 1 || report.Counters[stats.SnapshotErrors] != 0 {
		t.Fatalf("unexpected counters %v", report.Counters)
	}
	snaps, err := st.ListSnapshots(context.Background(), c.ID, 10)
	if err != nil || len(snaps) != 1 || snaps[0].FollowerCount != 77 {
		t.Fatalf("snapshot must be written despite the profile failure, got %+v (%v)", snaps, err)
	}
}

func TestRunSkipAssets(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{"a": {candidate("a", 1, 1)}}}
	f := newFixture(t, 100, searcher)
	c := testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a"})

	f.runner.Run(context.Background(), enrichment.RunParams{SkipAssets: true, Brand: "acme"})
	got, _ := f.st.GetByID(context.Background(), c.ID)
	if got.AvatarURL != "" || got.Nickname != "Nick a" {
		t.Fatalf("expected nickname without avatar, got %+v", got)
	}
}

func TestRunKeepsExistingProfileFields(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{"a": {candidate("a", 1, 1)}}}
	f := newFixture(t, 100, searcher)
	c := testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a", Nickname: "Manual Nick"})

	f.runner.Run(context.Background(), enrichment.RunParams{})
	got, _ := f.st.GetByID(context.Background(), c.ID)
	if got.Nickname != "Manual Nick" || got.FollowerCount != 1 {
		t.Fatalf("expected fill-missing nickname and refreshed metrics, got %+v", got)
	}
}

func TestRunCancelledBetweenCreators(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{}}
	f := newFixture(t, 100, searcher)
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "a"})
	testsupport.SeedCreator(t, f.st, creator.Creator{Handle: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	report := f.runner.Run(ctx, enrichment.RunParams{
		Progress: func(context.Context, map[string]int) { cancel() },
	})
	if report.StopReason != enrichment.StopCancelled || len(searcher.calls) != 1 {
		t.Fatalf("expected cancellation after the first creator, got %+v calls=%v", report, searcher.calls)
	}
}

type recordingPacer struct{ waits int }

func (p *recordingPacer) Wait(context.Context) error {
	p.waits++
	return nil
}

func TestRunPacesEverySearch(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]marketplace.Candidate{}}
	pacer := &recordingPacer{}
	f := newFixture(t, 100, searcher, func(d *enrichment.RunnerDeps) { d.Pacer = pacer })
	for _, h := range []string{"a", "b", "c"} {
		testsupport.SeedCreator(t, f.st, creator.Creator{Handle: h})
	}

	f.runner.Run(context.Background(), enrichment.RunParams{})
	if pacer.waits != 3 {
		t.Fatalf("expected a pacing wait before each search, got %d", pacer.waits)
	}
}
