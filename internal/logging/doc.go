// Package logging assembles the structured slog loggers used across cvcutter.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and promotes the component attribute into the console line prefix
// so pipeline stages read cleanly. It also provides a no-op logger for tests
// and wiring code that cannot fail.
package logging
