// Package store persists creators, performance snapshots, the run ledger, and
// daily API usage.
//
// The same SQL serves two backends: an embedded SQLite database (modernc.org/sqlite,
// the default) and PostgreSQL through the pgx database/sql driver. Queries are
// written with '?' placeholders and rebound for PostgreSQL at execution time.
// Timestamps are stored as fixed-width UTC text so ordering and comparisons are
// identical on both engines.
//
// Uniqueness is enforced by the schema: case-insensitive handles, set-once
// external user ids, one snapshot per (creator, date, source), and at most one
// running ledger entry per run type. Violations surface as services.ErrValidation
// (or services.ErrRunInFlight for the ledger).
package store
