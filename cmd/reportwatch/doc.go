// Package main hosts the reportwatch CLI entrypoint and command graph.
//
// The Cobra command tree either hosts the daemon in the foreground (`run`),
// talks to a running daemon over its Unix socket (status, trigger, execute,
// process, stats), or works locally against the configuration (search,
// history, config). Keep behavior in the internal packages and use this
// package for flags and rendering.
package main
