// Package logging assembles structured slog loggers and formatting helpers used
// across creatorsync runs.
//
// It owns the console and JSON handlers, mirrors console output into a JSON
// log file, and exposes context-aware helpers so run code can automatically
// tag log lines with run IDs, run types, and creator IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
