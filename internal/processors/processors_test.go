package processors_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reportwatch/internal/discovery"
	"reportwatch/internal/processors"
)

func makeFiles(t *testing.T, contents map[string]string) []discovery.File {
	t.Helper()
	dir := t.TempDir()
	var files []discovery.File
	for name, body := range contents {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		files = append(files, discovery.File{
			Path:       path,
			Name:       name,
			Dir:        dir,
			Extension:  filepath.Ext(name),
			Size:       int64(len(body)),
			ModifiedAt: time.Now(),
		})
	}
	return files
}

func TestLog(t *testing.T) {
	files := makeFiles(t, map[string]string{"a.xlsx": "abc"})
	out, err := processors.Log(nil)(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	entries := out.([]processors.LogEntry)
	if len(entries) != 1 || entries[0].Name != "a.xlsx" || entries[0].Size != 3 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestValidate(t *testing.T) {
	files := makeFiles(t, map[string]string{"ok.csv": "1", "empty.csv": ""})
	files = append(files, discovery.File{Path: "/nonexistent/gone.csv", Name: "gone.csv"})
	out, err := processors.Validate()(context.Background(), files)
	if err != nil {
		t.Fatalf("one valid file should pass: %v", err)
	}
	res := out.(processors.ValidationResult)
	if res.Valid != 1 || res.Invalid != 2 || len(res.Errors) != 2 {
		t.Fatalf("result = %+v", res)
	}

	if _, err := processors.Validate()(context.Background(), files[1:]); err == nil {
		t.Fatalf("expected failure when nothing is valid")
	}
}

func TestCopy(t *testing.T) {
	files := makeFiles(t, map[string]string{"r.xlsx": "report"})
	dest := t.TempDir()

	if _, err := processors.Copy(dest, processors.CopyOptions{})(context.Background(), files); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dest, "r.xlsx")); err != nil {
		t.Fatalf("flat copy missing: %v", err)
	}

	out, err := processors.Copy(dest, processors.CopyOptions{PreserveStructure: true, Verify: true})(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	res := out.([]processors.CopyResult)
	want := filepath.Join(dest, strings.TrimPrefix(files[0].Path, "/"))
	if res[0].Destination != want {
		t.Fatalf("destination = %q, want %q", res[0].Destination, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("structured copy missing: %v", err)
	}
}

func TestCopyReportsFailures(t *testing.T) {
	files := []discovery.File{{Path: "/nonexistent/x.xlsx", Name: "x.xlsx"}}
	out, err := processors.Copy(t.TempDir(), processors.CopyOptions{})(context.Background(), files)
	if err == nil {
		t.Fatalf("expected error")
	}
	if res := out.([]processors.CopyResult); res[0].Error == "" {
		t.Fatalf("result should carry the error: %+v", res)
	}
}

func TestWriteReport(t *testing.T) {
	files := makeFiles(t, map[string]string{"a.xlsx": "12", "b.csv": "345"})
	dir := t.TempDir()
	out, err := processors.WriteReport(dir)(context.Background(), files)
	if err != nil {
		t.Fatal(err)
	}
	path := out.(string)
	if !strings.HasPrefix(filepath.Base(path), "FileReport_") || filepath.Dir(path) != dir {
		t.Fatalf("unexpected report path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var report processors.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.FileCount != 2 || report.TotalBytes != 5 || report.Extensions[".csv"] != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestCommand(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	files := makeFiles(t, map[string]string{"a.txt": "x"})
	out, err := processors.Command(sh, "-c", "test -f \"$0\"", processors.FilePlaceholder)(context.Background(), files)
	if err != nil {
		t.Fatalf("command failed: %v", err)
	}
	if res := out.([]processors.CommandResult); res[0].ExitCode != 0 {
		t.Fatalf("exit code = %d", res[0].ExitCode)
	}

	_, err = processors.Command(sh, "-c", "exit 3")(context.Background(), files)
	if err == nil {
		t.Fatalf("expected non-zero exit to fail")
	}
}

func TestBatchAndComposite(t *testing.T) {
	files := make([]discovery.File, 5)
	var sizes []int
	counter := func(_ context.Context, batch []discovery.File) (any, error) {
		sizes = append(sizes, len(batch))
		return len(batch), nil
	}
	if _, err := processors.Batch(2, counter)(context.Background(), files); err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[2] != 1 {
		t.Fatalf("batch sizes = %v", sizes)
	}

	boom := errors.New("boom")
	ran := 0
	step := func(context.Context, []discovery.File) (any, error) { ran++; return nil, nil }
	fail := func(context.Context, []discovery.File) (any, error) { return nil, boom }
	out, err := processors.Composite(step, fail, step)(context.Background(), files)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if ran != 1 || len(out.([]any)) != 1 {
		t.Fatalf("composite should stop at the failing step: ran=%d out=%v", ran, out)
	}
}

func TestBuild(t *testing.T) {
	if _, err := processors.Build(processors.Spec{Kind: "command"}, nil); err == nil {
		t.Fatalf("command without executable should fail")
	}
	if _, err := processors.Build(processors.Spec{Kind: "unknown"}, nil); err == nil {
		t.Fatalf("unknown kind should fail")
	}
	if _, err := processors.Build(processors.Spec{Kind: "composite", Steps: []string{"composite"}}, nil); err == nil {
		t.Fatalf("nested composite should fail")
	}
	fn, err := processors.Build(processors.Spec{
		Kind:      "composite",
		Steps:     []string{"validate", "report"},
		ReportDir: t.TempDir(),
		BatchSize: 10,
	}, nil)
	if err != nil || fn == nil {
		t.Fatalf("Build composite: %v", err)
	}
}
