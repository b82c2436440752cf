// Package creator defines the Creator identity record, the persistence
// contract consumed by matching and enrichment, and the fill-missing merge
// policy.
//
// Merge never lets a masked or empty incoming value replace a stored value,
// sets ExternalUserID at most once, and returns a minimal Patch that stores
// apply atomically to a single record. Metric fields are the exception: they
// are overwritten wholesale whenever enrichment supplies them.
package creator
