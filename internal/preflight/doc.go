// Package preflight provides readiness checks for the directories, binaries
// and endpoints a reportwatch configuration points at.
//
// The daemon runner calls RunAll after startup and logs failures as warnings;
// a failed check never blocks the scheduler because search paths such as
// date folders often appear later in the day. The CLI status command renders
// the same results.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
