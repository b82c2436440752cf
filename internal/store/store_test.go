package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"creatorsync/internal/creator"
	"creatorsync/internal/identity"
	"creatorsync/internal/services"
	"creatorsync/internal/store"
	"creatorsync/internal/testsupport"
)

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	created := testsupport.SeedCreator(t, st, creator.Creator{Handle: "JaneDoe", FirstName: "Jane"})
	if created.ID == 0 {
		t.Fatal("expected creator ID to be assigned")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.GetByHandle(context.Background(), "@janedoe")
	if err != nil {
		t.Fatalf("GetByHandle failed: %v", err)
	}
	if fetched == nil || fetched.ID != created.ID || fetched.Handle != "JaneDoe" {
		t.Fatalf("unexpected fetched creator: %#v", fetched)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatal("expected created_at to round-trip")
	}
}

func TestCreateRejectsDuplicateHandleCaseInsensitively(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedCreator(t, st, creator.Creator{Handle: "JaneDoe"})

	_, err := st.Create(context.Background(), &creator.Creator{Handle: "janedoe"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsDuplicateExternalUserID(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	testsupport.SeedCreator(t, st, creator.Creator{ExternalUserID: "u1"})
	// Two creators without an external id must not collide.
	testsupport.SeedCreator(t, st, creator.Creator{FirstName: "A"})
	testsupport.SeedCreator(t, st, creator.Creator{FirstName: "B"})

	_, err := st.Create(context.Background(), &creator.Creator{ExternalUserID: "u1"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFindByPhonePatternIsDeterministic(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	testsupport.SeedCreator(t, st, creator.Creator{Phone: "(+1)808*****50"})
	second := testsupport.SeedCreator(t, st, creator.Creator{Phone: "(+1)808*****99"})

	pattern, ok := identity.ParseMaskedPhone("(+1)808*****99")
	if !ok {
		t.Fatal("expected masked phone to parse")
	}
	found, err := st.FindByPhonePattern(ctx, pattern.LikePattern())
	if err != nil {
		t.Fatalf("FindByPhonePattern failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != second.ID {
		t.Fatalf("expected only creator %d, got %d results", second.ID, len(found))
	}

	wide, _ := identity.ParseMaskedPhone("(+1)808*******")
	found, err = st.FindByPhonePattern(ctx, wide.LikePattern())
	if err != nil {
		t.Fatalf("FindByPhonePattern failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected both creators for a wide fragment, got %d", len(found))
	}
}

func TestFindByNameUsesNormalizedKey(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	seeded := testsupport.SeedCreator(t, st, creator.Creator{FirstName: "Jane", LastName: "Doe"})
	testsupport.SeedCreator(t, st, creator.Creator{FirstName: "J***", LastName: "Doe"})

	found, err := st.FindByName(context.Background(), identity.NameKey(" JANE ", "doe"))
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != seeded.ID {
		t.Fatalf("expected only the unmasked name, got %d results", len(found))
	}
}

func TestUpdateRechecksFillMissingRule(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	seeded := testsupport.SeedCreator(t, st, creator.Creator{Phone: "(+1)808*****34"})

	// A stale patch computed before another run filled the phone.
	stale := creator.Merge(seeded, creator.Incoming{Values: map[creator.Field]string{creator.FieldPhone: "+18080000034"}})
	if err := st.Update(ctx, seeded.ID, creator.Patch{Fields: map[creator.Field]string{creator.FieldPhone: "+18085551234"}, PhoneVerified: true}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := st.Update(ctx, seeded.ID, stale); err != nil {
		t.Fatalf("stale Update failed: %v", err)
	}

	fetched, err := st.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Phone != "+18085551234" || !fetched.PhoneVerified {
		t.Fatalf("stored unmasked phone must not change, got %q verified=%v", fetched.Phone, fetched.PhoneVerified)
	}

	found, err := st.FindByPhone(ctx, "+18085551234")
	if err != nil || len(found) != 1 {
		t.Fatalf("expected phone lookup after update, got %d (%v)", len(found), err)
	}
}

func TestUpdateDropsVerificationWithGuardedPhone(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	seeded := testsupport.SeedCreator(t, st, creator.Creator{Handle: "verify", Phone: "(+1)808*****34"})

	stale := creator.Patch{Fields: map[creator.Field]string{creator.FieldPhone: "+18080000034"}, PhoneVerified: true}
	if err := st.Update(ctx, seeded.ID, creator.Patch{Fields: map[creator.Field]string{creator.FieldPhone: "+18085551234"}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := st.Update(ctx, seeded.ID, stale); err != nil {
		t.Fatalf("stale Update failed: %v", err)
	}
	fetched, err := st.GetByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Phone != "+18085551234" || fetched.PhoneVerified {
		t.Fatalf("verification must not transfer to another number, got %q verified=%v", fetched.Phone, fetched.PhoneVerified)
	}

	// The same number arriving verified still confirms the stored phone.
	confirm := creator.Patch{Fields: map[creator.Field]string{creator.FieldPhone: "+18085551234"}, PhoneVerified: true}
	if err := st.Update(ctx, seeded.ID, confirm); err != nil {
		t.Fatalf("confirm Update failed: %v", err)
	}
	if fetched, _ = st.GetByID(ctx, seeded.ID); !fetched.PhoneVerified {
		t.Fatal("expected matching verified phone to confirm the stored number")
	}
}

func TestUpdateExternalUserIDConflict(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	seeded := testsupport.SeedCreator(t, st, creator.Creator{ExternalUserID: "u1"})

	err := st.Update(ctx, seeded.ID, creator.Patch{ExternalUserID: "u2"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = st.Update(ctx, 9999, creator.Patch{ExternalUserID: "u3"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSnapshotUpsertIsIdempotent(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	snap := store.Snapshot{CreatorID: 42, Date: "2026-02-20", Source: "marketplace_api", FollowerCount: 100, GMVCents: 12345}
	if err := st.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("first UpsertSnapshot failed: %v", err)
	}
	snap.FollowerCount = 120
	if err := st.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("second UpsertSnapshot failed: %v", err)
	}

	count, err := st.CountSnapshots(ctx, 42, "2026-02-20", "marketplace_api")
	if err != nil {
		t.Fatalf("CountSnapshots failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row, got %d", count)
	}
	list, err := st.ListSnapshots(ctx, 42, 10)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(list) != 1 || list[0].FollowerCount != 120 || list[0].GMVCents != 12345 {
		t.Fatalf("unexpected snapshots: %+v", list)
	}
}

func TestEnrichmentCandidatesStalenessAndOrder(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := testsupport.SeedCreator(t, st, creator.Creator{Handle: "fresh", GMVCents: 9_000})
	testsupport.SetEnriched(t, st, fresh.ID, creator.Metrics{GMVCents: 9_000, EnrichedAt: now.Add(-2 * 24 * time.Hour), Source: "marketplace_api"})
	stale := testsupport.SeedCreator(t, st, creator.Creator{Handle: "stale"})
	testsupport.SetEnriched(t, st, stale.ID, creator.Metrics{GMVCents: 5_000, EnrichedAt: now.Add(-10 * 24 * time.Hour), Source: "marketplace_api"})
	neverLow := testsupport.SeedCreator(t, st, creator.Creator{Handle: "never-low", GMVCents: 100})
	neverHigh := testsupport.SeedCreator(t, st, creator.Creator{Handle: "never-high", GMVCents: 800})
	recentSample := now.Add(-3 * 24 * time.Hour)
	recentStale := testsupport.SeedCreator(t, st, creator.Creator{Handle: "recent", LastSampleAt: &recentSample})
	testsupport.SetEnriched(t, st, recentStale.ID, creator.Metrics{EnrichedAt: now.Add(-20 * 24 * time.Hour)})
	testsupport.SeedCreator(t, st, creator.Creator{FirstName: "No", LastName: "Handle"})

	got, err := st.EnrichmentCandidates(ctx, store.CandidateQuery{
		StaleBefore: now.Add(-7 * 24 * time.Hour),
		RecentSince: now.Add(-30 * 24 * time.Hour),
		Limit:       10,
	})
	if err != nil {
		t.Fatalf("EnrichmentCandidates failed: %v", err)
	}
	want := []int64{recentStale.ID, neverHigh.ID, neverLow.ID, stale.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got creator %d (%s), want %d", i, got[i].ID, got[i].Handle, id)
		}
	}
}

func TestUsageIncrements(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		calls, err := st.IncrementUsage(ctx, "2026-02-20", "marketplace")
		if err != nil {
			t.Fatalf("IncrementUsage failed: %v", err)
		}
		if calls != i {
			t.Fatalf("expected %d calls, got %d", i, calls)
		}
	}
	calls, err := st.UsageFor(ctx, "2026-02-21", "marketplace")
	if err != nil || calls != 0 {
		t.Fatalf("expected zero usage for a new day, got %d (%v)", calls, err)
	}
}

func TestRunLedgerOneInFlightPerType(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := st.BeginRun(ctx, store.Run{ID: "a", Type: "enrichment", Params: map[string]any{"batch_size": 10}}); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := st.BeginRun(ctx, store.Run{ID: "b", Type: "enrichment"}); !errors.Is(err, services.ErrRunInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	if err := st.BeginRun(ctx, store.Run{ID: "c", Type: "order_sync"}); err != nil {
		t.Fatalf("different run type should start: %v", err)
	}

	if err := st.FinishRun(ctx, "a", store.RunCompleted, "batch_complete", map[string]int{"enriched": 3}, ""); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	if err := st.BeginRun(ctx, store.Run{ID: "d", Type: "enrichment"}); err != nil {
		t.Fatalf("run should start after the previous one finished: %v", err)
	}

	run, err := st.GetRun(ctx, "a")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != store.RunCompleted || run.Counters["enriched"] != 3 || run.FinishedAt == nil {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestReclaimStaleRuns(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return start })

	if err := st.BeginRun(ctx, store.Run{ID: "old", Type: "order_sync"}); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	reclaimed, err := st.ReclaimStaleRuns(ctx, "order_sync", start.Add(-time.Minute))
	if err != nil || reclaimed != 0 {
		t.Fatalf("fresh run must not be reclaimed: %d (%v)", reclaimed, err)
	}
	reclaimed, err = st.ReclaimStaleRuns(ctx, "order_sync", start.Add(time.Hour))
	if err != nil || reclaimed != 1 {
		t.Fatalf("expected one reclaimed run, got %d (%v)", reclaimed, err)
	}

	runs, err := st.ListRuns(ctx, "order_sync", 5)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != store.RunFailed || runs[0].StopReason != "stale" {
		t.Fatalf("unexpected runs: %+v", runs)
	}
}
