package logs_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reportwatch/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportwatch.log")
	writeLog(t, path, "a\nb\nc\n")

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("offset = %d, want 6", offset)
	}
}

func TestReadFromKeepsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportwatch.log")
	writeLog(t, path, "one\ntw")

	lines, offset, err := logs.ReadFrom(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "one" || offset != 4 {
		t.Fatalf("lines=%#v offset=%d", lines, offset)
	}

	appendLog(t, path, "o\n")
	lines, _, err = logs.ReadFrom(path, offset)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "two" {
		t.Fatalf("expected completed line, got %#v", lines)
	}
}

func TestReadFromRestartsAfterTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportwatch.log")
	writeLog(t, path, "new\n")
	lines, _, err := logs.ReadFrom(path, 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 1 || lines[0] != "new" {
		t.Fatalf("expected restart from beginning, got %#v", lines)
	}
}

func TestMissingFileIsEmpty(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("lines=%#v offset=%d err=%v", lines, offset, err)
	}
}

func TestFilter(t *testing.T) {
	lines := []string{
		`{"level":"info","msg":"started"}`,
		`{"level":"warn","msg":"retry","attempt_id":"1a2b3c4d-9999"}`,
		`{"level":"error","msg":"failed","attempt_id":"ffff0000"}`,
		`plain text`,
	}

	warn := logs.Filter{MinLevel: slog.LevelWarn}.Apply(lines)
	if len(warn) != 2 {
		t.Fatalf("warn filter kept %#v", warn)
	}
	attempt := logs.Filter{AttemptID: "1a2b3c4d"}.Apply(lines)
	if len(attempt) != 1 || attempt[0] != lines[1] {
		t.Fatalf("attempt filter kept %#v", attempt)
	}
	if all := (logs.Filter{}).Apply(lines); len(all) != len(lines) {
		t.Fatalf("zero filter dropped lines: %#v", all)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reportwatch.log")
	writeLog(t, path, "start\n")
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 50*time.Millisecond, logs.Filter{}, func(line string) {
			got <- line
		})
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "next\n")

	select {
	case line := <-got:
		if line != "next" {
			t.Fatalf("followed %q", line)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("follow did not emit appended line")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Follow returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
}
