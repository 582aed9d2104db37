// Package daemon owns the long-running reportwatch process.
//
// It wires the configuration into an orchestrator, the selected processor,
// the notification sink, the outcome journal, and the optional change
// watcher, and guards the whole lifecycle with a flock so only one daemon
// runs per state directory. The IPC server talks to the daemon exclusively
// through the methods exported here.
package daemon
