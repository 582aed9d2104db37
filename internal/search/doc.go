// Package search defines the immutable search configuration consumed by the
// discovery engine.
//
// A Configuration describes where to look (literal, date-token, or date-folder
// base paths), what to match (exact names, glob patterns, exclusions), when to
// run (times of day plus a retry interval), and how repeated runs within a
// day are deduplicated. Build values through Builder so validation runs once
// at construction; downstream packages treat the result as read-only.
package search
