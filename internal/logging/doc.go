// Package logging assembles structured slog loggers and formatting helpers used
// across reportwatch.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// standard field keys. Attempt identity travels in the context so processing
// routines can tag their own lines with the attempt that invoked them. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
