// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Request and response types are plain JSON DTOs so the CLI never imports
// orchestrator internals to render a reply. Add new endpoints as a method on
// service plus a Client wrapper; keep existing field names stable.
package ipc
