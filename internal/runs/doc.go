// Package runs executes sync and enrichment runs under the single-flight
// guard and records them in the run ledger.
//
// Execute layers three guards per run type: a local flock file, an optional
// Redis SET NX lock for multi-host deployments, and the ledger's unique
// running-entry index. A run rejected by any guard is a duplicate and
// completes as a no-op. Accepted runs get a time budget, heartbeats written
// through the job's progress callback, and lifecycle notifications.
package runs
