package enrichment

import (
	"context"
	"time"

	"creatorsync/internal/store"
)

// MarketplaceAPI is the usage ledger key for marketplace search calls.
const MarketplaceAPI = "marketplace_search"

// UsageLedger stores per-day call counts.
type UsageLedger interface {
	IncrementUsage(ctx context.Context, day, api string) (int, error)
	UsageFor(ctx context.Context, day, api string) (int, error)
}

// Quota meters calls against a daily limit keyed by UTC calendar day.
// A limit of zero or less means unlimited.
type Quota struct {
	ledger UsageLedger
	api    string
	limit  int
	now    func() time.Time
}

// NewQuota constructs a quota meter.
func NewQuota(ledger UsageLedger, api string, dailyLimit int) *Quota {
	return &Quota{ledger: ledger, api: api, limit: dailyLimit, now: time.Now}
}

// SetClock overrides the time source. Intended for tests.
func (q *Quota) SetClock(now func() time.Time) {
	if now != nil {
		q.now = now
	}
}

func (q *Quota) day() string {
	return q.now().UTC().Format(store.DateLayout)
}

// Limit returns the configured daily limit.
func (q *Quota) Limit() int {
	return q.limit
}

// Used returns today's recorded calls.
func (q *Quota) Used(ctx context.Context) (int, error) {
	return q.ledger.UsageFor(ctx, q.day(), q.api)
}

// Remaining returns how many calls are left today. Unlimited quotas report
// a large positive number.
func (q *Quota) Remaining(ctx context.Context) (int, error) {
	if q.limit <= 0 {
		return int(^uint32(0) >> 1), nil
	}
	used, err := q.Used(ctx)
	if err != nil {
		return 0, err
	}
	if remaining := q.limit - used; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}

// Record counts one call made today.
func (q *Quota) Record(ctx context.Context) (int, error) {
	return q.ledger.IncrementUsage(ctx, q.day(), q.api)
}
