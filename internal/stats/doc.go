// Package stats accumulates per-run counters for reporting.
//
// Ingestion and enrichment each pre-register their counter names so a run
// report lists every counter, including those that stayed at zero. Snapshots
// are copies and safe to hand to the run ledger or notifications while the
// run keeps counting.
package stats
