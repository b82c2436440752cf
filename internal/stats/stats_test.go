package stats_test

import (
	"sync"
	"testing"

	"creatorsync/internal/stats"
)

func TestCountersConcurrentIncrements(t *testing.T) {
	c := stats.New(stats.Matched)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc(stats.Matched)
		}()
	}
	wg.Wait()
	if got := c.Get(stats.Matched); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestCountersSnapshotIsCopy(t *testing.T) {
	c := stats.IngestCounters()
	snap := c.Snapshot()
	snap[stats.Created] = 99
	if c.Get(stats.Created) != 0 {
		t.Fatal("snapshot must not alias internal state")
	}
	if _, ok := snap[stats.AlreadyLinked]; !ok {
		t.Fatal("pre-registered counters should be present")
	}
	names := c.Names()
	if len(names) == 0 || names[0] != stats.AlreadyLinked {
		t.Fatalf("expected sorted names, got %v", names)
	}
}
