// Package ingest links sample orders from the order feed to creators.
//
// For every sample order the Ingestor derives identity signals from the
// recipient address, resolves them with the match package, and then either
// backfills the matched creator through the fill-missing merge or creates a
// new creator from the unmasked fields. Per-record failures are counted and
// never abort the page; the run stops only when the pager does.
package ingest
