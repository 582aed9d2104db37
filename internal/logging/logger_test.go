package logging_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reportwatch/internal/logging"
)

func newFileLogger(t *testing.T, opts logging.Options) (func(), string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.log")
	opts.OutputPaths = []string{path}
	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithAttempt(context.Background(), "0123456789abcdef", "scheduled")
	return func() {
		logging.WithContext(ctx, logging.NewComponentLogger(logger, "orchestrator")).Info("files processed",
			logging.Int("files_processed", 2),
			logging.Int64("total_size_bytes", 2048),
			logging.Duration("duration", 1500*time.Millisecond),
			logging.String(logging.FieldEventType, "attempt_completed"),
		)
	}, path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerFormatsAttemptLines(t *testing.T) {
	emit, path := newFileLogger(t, logging.Options{Format: "console", Level: "info"})
	emit()
	out := readLog(t, path)

	for _, want := range []string{"INFO [orchestrator] Scheduled · 01234567 – files processed", "- Event: attempt_completed", "- Size: 2.0 KiB", "- Duration: 1.5s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, ".go:") || strings.Contains(out, "\x1b[") {
		t.Fatalf("info console output should carry neither source nor color: %q", out)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	emit, path := newFileLogger(t, logging.Options{Format: "console", Level: "debug"})
	emit()
	if out := readLog(t, path); !strings.Contains(out, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", out)
	}
}

func TestJSONLogger(t *testing.T) {
	emit, path := newFileLogger(t, logging.Options{Format: "json", Level: "info"})
	emit()
	out := readLog(t, path)
	for _, want := range []string{`"attempt_id":"0123456789abcdef"`, `"trigger":"scheduled"`, `"level":"info"`, `"duration":"1.5s"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := logging.ParseLevel("bogus"); got.String() != "INFO" {
		t.Fatalf("ParseLevel(bogus) = %v", got)
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatal(err)
	}
	logging.WarnWithContext(logger, "processing failed", "processing_failed", logging.Error(errors.New("boom")))
	out := readLog(t, path)
	for _, want := range []string{`"event_type":"processing_failed"`, `"error_hint":`, `"impact":`, `"error":"boom"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
}

func TestAttemptFromContext(t *testing.T) {
	if _, ok := logging.AttemptFromContext(context.Background()); ok {
		t.Fatal("expected no attempt on a bare context")
	}
	ctx := logging.WithAttempt(context.Background(), "abc", "manual")
	if id, ok := logging.AttemptFromContext(ctx); !ok || id != "abc" {
		t.Fatalf("AttemptFromContext = %q, %v", id, ok)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "reportwatch-old.log")
	active := filepath.Join(dir, "reportwatch-active.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, active, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		stale := time.Now().AddDate(0, 0, -40)
		if err := os.Chtimes(p, stale, stale); err != nil {
			t.Fatal(err)
		}
	}

	removed := logging.CleanupOldLogs(nil, 30, logging.RetentionTarget{Dir: dir, Pattern: "reportwatch-*.log", Keep: []string{active}})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed", old)
	}
	for _, p := range []string{active, other} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
}
