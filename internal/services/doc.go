// Package services defines shared utilities consumed by the sync runs and their
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, run types, creator IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so item-level failures can
//     be classified into the aggregate run counters (transient, validation,
//     quota, not found).
//
// Use these helpers when wiring new run logic so operational behaviour (error
// classification, observability) stays uniform across the pipeline.
package services
