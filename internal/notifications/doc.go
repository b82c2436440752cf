// Package notifications reports run lifecycle events to an observability sink.
//
// The ntfy implementation publishes to the topic configured in config.toml;
// when no topic is set the service degrades to the log sink so run reports
// still reach the structured log. Callers depend only on the Service
// interface.
package notifications
