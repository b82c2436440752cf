package stats

import (
	"maps"
	"slices"
	"sync"
)

// Counter names reported by runs.
const (
	Matched        = "matched"
	Created        = "created"
	AlreadyLinked  = "already_linked"
	Unchanged      = "unchanged"
	Skipped        = "skipped"
	Ambiguous      = "ambiguous"
	Errors         = "errors"
	NotFound       = "not_found"
	Enriched       = "enriched"
	SnapshotErrors = "snapshot_errors"
	APICalls       = "api_calls"
	Pages          = "pages"
	Orders         = "orders"
)

// Counters is a concurrency-safe set of named counters.
type Counters struct {
	mu     sync.Mutex
	values map[string]int
}

// New returns counters with the given names pre-registered at zero so reports
// always show them.
func New(names ...string) *Counters {
	c := &Counters{values: make(map[string]int, len(names))}
	for _, name := range names {
		c.values[name] = 0
	}
	return c
}

// Inc adds one to name.
func (c *Counters) Inc(name string) {
	c.Add(name, 1)
}

// Add adds delta to name.
func (c *Counters) Add(name string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]int)
	}
	c.values[name] += delta
}

// Get returns the current value of name.
func (c *Counters) Get(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[name]
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.values)
}

// Names returns counter names in sorted order.
func (c *Counters) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.values))
}

// IngestCounters returns the counter set reported by order sync runs.
func IngestCounters() *Counters {
	return New(Pages, Orders, Matched, Created, AlreadyLinked, Unchanged, Ambiguous, Skipped, Errors)
}

// EnrichmentCounters returns the counter set reported by enrichment runs.
func EnrichmentCounters() *Counters {
	return New(APICalls, Enriched, NotFound, Skipped, Errors, SnapshotErrors)
}
