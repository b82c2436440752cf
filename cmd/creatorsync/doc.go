// Package main hosts the creatorsync CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, the store, and the run
// coordinator, then exposes one-shot runs (sync-orders, enrich), the
// scheduling daemon, and read-only views over creators, runs, and quota
// usage. Output is an aggregate table by default or JSON with --json.
package main
