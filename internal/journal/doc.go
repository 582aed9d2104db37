// Package journal keeps an audit trail of attempt outcomes in SQLite.
//
// The journal is write-mostly: the orchestrator never consults it when
// deciding which files to process, so deleting the database loses history
// but never changes processing behaviour. Recorder subscribes a Store to the
// event bus; the CLI's history command reads it back through List.
package journal
