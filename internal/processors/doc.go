// Package processors provides ready-made orchestrator.ProcessFunc
// implementations: logging, validation, external commands, copying, JSON
// reports, batching, and composition. Build selects one from a Spec so the
// daemon can be configured without code.
package processors
