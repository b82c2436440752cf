// Package daemon runs sync and enrichment on fixed intervals inside one
// long-lived process.
//
// A flock file in the lock directory keeps a second daemon from starting on
// the same host. Each schedule gets its own goroutine, so a slow enrichment
// batch never delays order sync; the per-run-type guards in package runs
// still apply to every tick.
package daemon
