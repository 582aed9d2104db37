package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Entry is one journaled attempt.
type Entry struct {
	AttemptID      string        `json:"attempt_id"`
	Trigger        string        `json:"trigger"`
	Success        bool          `json:"success"`
	Skipped        bool          `json:"skipped"`
	Message        string        `json:"message,omitempty"`
	Error          string        `json:"error,omitempty"`
	FilesFound     int           `json:"files_found"`
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	TotalSizeBytes int64         `json:"total_size_bytes"`
	StartedAt      time.Time     `json:"started_at"`
	ProcessedAt    time.Time     `json:"processed_at"`
	Duration       time.Duration `json:"duration"`
	// Files lists processed paths. List leaves it empty; use Files.
	Files []string `json:"files,omitempty"`
}

// Store persists entries in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure journal directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores e and its processed files. Recording the same attempt twice
// replaces the earlier row.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.AttemptID) == "" {
		return errors.New("journal entry requires an attempt id")
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin record tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM attempts WHERE attempt_id = ?`, e.AttemptID); err != nil {
			return fmt.Errorf("replace attempt: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attempts (
                attempt_id, trigger, success, skipped, message, error,
                files_found, files_processed, files_skipped, total_size_bytes,
                started_at, processed_at, duration_ms
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.AttemptID,
			e.Trigger,
			boolToInt(e.Success),
			boolToInt(e.Skipped),
			nullableString(e.Message),
			nullableString(e.Error),
			e.FilesFound,
			e.FilesProcessed,
			e.FilesSkipped,
			e.TotalSizeBytes,
			formatTime(e.StartedAt),
			formatTime(e.ProcessedAt),
			e.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		for _, path := range e.Files {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO attempt_files (attempt_id, path) VALUES (?, ?)`,
				e.AttemptID, path,
			); err != nil {
				return fmt.Errorf("insert attempt file: %w", err)
			}
		}
		return tx.Commit()
	})
}

// List returns the newest entries first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT attempt_id, trigger, success, skipped, message, error,
        files_found, files_processed, files_skipped, total_size_bytes,
        started_at, processed_at, duration_ms
        FROM attempts ORDER BY processed_at DESC, attempt_id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                      Entry
			success, skipped       int
			message, errText       sql.NullString
			startedAt, processedAt string
			durationMS             int64
		)
		if err := rows.Scan(&e.AttemptID, &e.Trigger, &success, &skipped, &message, &errText,
			&e.FilesFound, &e.FilesProcessed, &e.FilesSkipped, &e.TotalSizeBytes,
			&startedAt, &processedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		e.Success = success != 0
		e.Skipped = skipped != 0
		e.Message = message.String
		e.Error = errText.String
		e.StartedAt = parseTime(startedAt)
		e.ProcessedAt = parseTime(processedAt)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Files returns the processed paths journaled for attemptID.
func (s *Store) Files(ctx context.Context, attemptID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM attempt_files WHERE attempt_id = ? ORDER BY path`, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list attempt files: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Prune deletes entries processed before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM attempts WHERE processed_at < ?`, formatTime(cutoff))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return removed, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

// Timestamps are stored as fixed-width UTC text so string order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t.Local()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
