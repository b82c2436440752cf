package marketplace_test

import (
	"context"
	"testing"
	"time"

	"creatorsync/internal/marketplace"
)

func TestPacerSkipsFirstCallAndEnforcesInterval(t *testing.T) {
	now := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	var slept []time.Duration
	pacer := marketplace.NewPacer(1500 * time.Millisecond)
	pacer.SetClock(
		func() time.Time { return now },
		func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			now = now.Add(d)
			return nil
		},
	)
	ctx := context.Background()

	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if len(slept) != 0 {
		t.Fatalf("first call must not wait, slept %v", slept)
	}

	now = now.Add(500 * time.Millisecond)
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected a 1s wait, got %v", slept)
	}

	now = now.Add(2 * time.Second)
	if err := pacer.Wait(ctx); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("no wait expected after the interval elapsed, got %v", slept)
	}
}

func TestSleepWithContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := marketplace.SleepWithContext(ctx, time.Hour); err == nil {
		t.Fatal("expected cancellation error")
	}
}
