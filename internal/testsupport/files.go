package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteReport creates a report fixture of size bytes (at least one) and, when
// modified is non-zero, stamps it with that modification time. Parent
// directories are created as needed.
func WriteReport(t testing.TB, path string, size int64, modified time.Time) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'r'}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if modified.IsZero() {
		return
	}
	if err := os.Chtimes(path, modified, modified); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}
