// Package logs reads the daemon's JSON log file for the CLI: the last N
// lines, lines appended after an offset, and a follow loop driven by
// filesystem notifications. Lines can be narrowed by level or attempt id.
package logs
