// Package notifications delivers attempt milestones via ntfy.
//
// NewService publishes to the topic configured in config.toml and degrades to
// a no-op when no topic is set. Sink subscribes a Service to the orchestrator's
// event bus, applying the per-event toggles and keeping HTTP delivery off the
// attempt goroutine.
package notifications
