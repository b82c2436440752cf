package testsupport

import (
	"context"
	"testing"

	"creatorsync/internal/config"
	"creatorsync/internal/creator"
	"creatorsync/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedCreator inserts a creator for tests using the provided store.
func SeedCreator(t testing.TB, st *store.Store, c creator.Creator) *creator.Creator {
	t.Helper()

	created, err := st.Create(context.Background(), &c)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return created
}

// SetEnriched stamps a creator as enriched at the given time.
func SetEnriched(t testing.TB, st *store.Store, id int64, metrics creator.Metrics) {
	t.Helper()

	if err := st.Update(context.Background(), id, creator.Patch{Metrics: &metrics}); err != nil {
		t.Fatalf("store.Update: %v", err)
	}
}
