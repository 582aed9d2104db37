// Package discovery walks resolved directories for files matching the
// configured names and glob patterns, then applies exclusion, size, and
// freshness filters.
//
// Matching is case-insensitive. Unreadable directories are skipped rather
// than reported so one broken share cannot hide files found elsewhere.
package discovery
