// Package snapshot records dated metric measurements for creators. Writes are
// upserts keyed by creator, UTC calendar day, and source, so recording the same
// measurement twice leaves a single row.
package snapshot
