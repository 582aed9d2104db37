package journal

import (
	"context"
	"log/slog"

	"reportwatch/internal/logging"
	"reportwatch/internal/orchestrator"
)

// EntryFromOutcome converts an attempt outcome into a journal entry.
func EntryFromOutcome(o orchestrator.Outcome) Entry {
	files := make([]string, 0, len(o.ProcessedFiles))
	for _, f := range o.ProcessedFiles {
		files = append(files, f.Path)
	}
	return Entry{
		AttemptID:      o.AttemptID,
		Trigger:        o.Trigger.String(),
		Success:        o.Success,
		Skipped:        o.Skipped,
		Message:        o.Message,
		Error:          o.ErrorMessage(),
		FilesFound:     o.FilesFound,
		FilesProcessed: o.FilesProcessed,
		FilesSkipped:   o.FilesSkipped,
		TotalSizeBytes: o.TotalSizeBytes,
		StartedAt:      o.StartedAt,
		ProcessedAt:    o.ProcessedAt,
		Duration:       o.Duration,
		Files:          files,
	}
}

// Attach records completed, failed and empty attempts published on bus. The
// returned function unsubscribes.
func Attach(bus *orchestrator.Bus, store *Store, logger *slog.Logger) func() {
	logger = logging.NewComponentLogger(logger, "journal")
	return bus.Subscribe(func(ev orchestrator.Event) {
		var entry Entry
		switch {
		case ev.Outcome != nil && (ev.Kind == orchestrator.EventCompleted || ev.Kind == orchestrator.EventError):
			entry = EntryFromOutcome(*ev.Outcome)
		case ev.Kind == orchestrator.EventFilesNotFound:
			entry = Entry{
				AttemptID:   ev.AttemptID,
				Trigger:     ev.Trigger.String(),
				Message:     ev.Message,
				Error:       ev.Message,
				StartedAt:   ev.Timestamp,
				ProcessedAt: ev.Timestamp,
			}
		default:
			return
		}
		if err := store.Record(context.Background(), entry); err != nil {
			logging.WarnWithContext(logger, "journal write failed", "journal_write_failed",
				logging.String(logging.FieldAttemptID, entry.AttemptID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state directory is writable"),
				logging.String(logging.FieldImpact, "attempt missing from history"),
			)
		}
	})
}
