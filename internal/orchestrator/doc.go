// Package orchestrator runs discovery attempts and decides which discovered
// files are new work.
//
// The Orchestrator owns the schedule engine, the run guard that serializes
// scheduled, retry, and manual attempts, and the in-memory History of what
// has already been processed today. Each attempt resolves paths, discovers
// files, filters them against History and the configured skip policy, hands
// the remaining work set to the caller's ProcessFunc, and records the
// outcome. Progress is published synchronously on a Bus so notifications,
// journaling, and change watching can observe attempts without coupling to
// the orchestration logic.
//
// History lives only in memory; a restarted process starts each day fresh.
package orchestrator
