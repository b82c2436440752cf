package marketplace

import (
	"context"
	"sync"
	"time"
)

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pacer enforces a minimum interval between successive calls. The first call
// never waits.
type Pacer struct {
	MinInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewPacer constructs a pacer with the given minimum interval.
func NewPacer(minInterval time.Duration) *Pacer {
	return &Pacer{MinInterval: minInterval, now: time.Now, sleep: SleepWithContext}
}

// Wait blocks until the next call is allowed, then marks the call.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lastCall.IsZero() && p.MinInterval > 0 {
		if remaining := p.MinInterval - p.now().Sub(p.lastCall); remaining > 0 {
			if err := p.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	p.lastCall = p.now()
	return nil
}

// SetClock replaces the time and sleep functions. Intended for tests.
func (p *Pacer) SetClock(now func() time.Time, sleep func(context.Context, time.Duration) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now != nil {
		p.now = now
	}
	if sleep != nil {
		p.sleep = sleep
	}
}
