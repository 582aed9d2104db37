package processors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"reportwatch/internal/discovery"
	"reportwatch/internal/fileutil"
	"reportwatch/internal/logging"
	"reportwatch/internal/orchestrator"
)

// FilePlaceholder is replaced by the file path in command arguments.
const FilePlaceholder = "{file}"

// LogEntry is one file reported by Log.
type LogEntry struct {
	Name       string    `json:"name"`
	Dir        string    `json:"dir"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	LoggedAt   time.Time `json:"logged_at"`
}

// Log records each file at INFO and returns the entries.
func Log(logger *slog.Logger) orchestrator.ProcessFunc {
	logger = logging.NewComponentLogger(logger, "processor.log")
	return func(ctx context.Context, files []discovery.File) (any, error) {
		logger := logging.WithContext(ctx, logger)
		now := time.Now()
		entries := make([]LogEntry, 0, len(files))
		for _, f := range files {
			logger.Info("file discovered",
				logging.String("file", f.Name),
				logging.Int64("size_bytes", f.Size),
				logging.String("modified", f.ModifiedAt.Format("2006-01-02 15:04")),
				logging.String("dir", f.Dir),
			)
			entries = append(entries, LogEntry{Name: f.Name, Dir: f.Dir, Size: f.Size, ModifiedAt: f.ModifiedAt, LoggedAt: now})
		}
		return entries, nil
	}
}

// ValidationResult summarizes Validate.
type ValidationResult struct {
	Valid   int      `json:"valid"`
	Invalid int      `json:"invalid"`
	Rate    float64  `json:"rate"`
	Errors  []string `json:"errors,omitempty"`
}

// Validate checks every file still exists and is non-empty. It fails only
// when no file is valid.
func Validate() orchestrator.ProcessFunc {
	return func(_ context.Context, files []discovery.File) (any, error) {
		var res ValidationResult
		for _, f := range files {
			info, err := os.Stat(f.Path)
			switch {
			case err != nil:
				res.Invalid++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", f.Name, err))
			case info.Size() == 0:
				res.Invalid++
				res.Errors = append(res.Errors, f.Name+": file is empty")
			default:
				res.Valid++
			}
		}
		if len(files) > 0 {
			res.Rate = float64(res.Valid) * 100 / float64(len(files))
		}
		if res.Valid == 0 && len(files) > 0 {
			return res, fmt.Errorf("validation failed: %s", strings.Join(res.Errors, "; "))
		}
		return res, nil
	}
}

// CommandResult is one external command run.
type CommandResult struct {
	File     string `json:"file"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Command runs name once per file. Arguments containing {file} receive the
// path; when none do, the path is appended. Any non-zero exit fails the batch
// after every file has been attempted.
func Command(name string, args ...string) orchestrator.ProcessFunc {
	return func(ctx context.Context, files []discovery.File) (any, error) {
		results := make([]CommandResult, 0, len(files))
		var errs []error
		for _, f := range files {
			cmd := exec.CommandContext(ctx, name, expandArgs(args, f.Path)...)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			err := cmd.Run()
			res := CommandResult{
				File:   f.Path,
				Stdout: strings.TrimSpace(stdout.String()),
				Stderr: strings.TrimSpace(stderr.String()),
			}
			if cmd.ProcessState != nil {
				res.ExitCode = cmd.ProcessState.ExitCode()
			}
			if err != nil {
				res.Error = err.Error()
				errs = append(errs, fmt.Errorf("%s %s: %w", name, f.Name, err))
			}
			results = append(results, res)
		}
		return results, errors.Join(errs...)
	}
}

func expandArgs(args []string, path string) []string {
	out := make([]string, 0, len(args)+1)
	substituted := false
	for _, a := range args {
		if strings.Contains(a, FilePlaceholder) {
			substituted = true
			a = strings.ReplaceAll(a, FilePlaceholder, path)
		}
		out = append(out, a)
	}
	if !substituted {
		out = append(out, path)
	}
	return out
}

// CopyResult is one file copy.
type CopyResult struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	CopiedAt    time.Time `json:"copied_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// CopyOptions configures Copy.
type CopyOptions struct {
	// PreserveStructure mirrors each file's absolute directory under the
	// destination instead of flattening.
	PreserveStructure bool
	Verify            bool
}

// Copy copies every file into dest. Failures are collected and returned after
// all files were attempted.
func Copy(dest string, opts CopyOptions) orchestrator.ProcessFunc {
	return func(_ context.Context, files []discovery.File) (any, error) {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return nil, fmt.Errorf("create destination: %w", err)
		}
		results := make([]CopyResult, 0, len(files))
		var errs []error
		for _, f := range files {
			target := filepath.Join(dest, f.Name)
			if opts.PreserveStructure {
				target = filepath.Join(dest, stripRoot(f.Path))
			}
			copyFn := fileutil.CopyFile
			if opts.Verify {
				copyFn = fileutil.CopyFileVerified
			}
			res := CopyResult{Source: f.Path}
			if err := copyFn(f.Path, target); err != nil {
				res.Error = err.Error()
				errs = append(errs, fmt.Errorf("copy %s: %w", f.Name, err))
			} else {
				res.Destination = target
				res.CopiedAt = time.Now()
			}
			results = append(results, res)
		}
		return results, errors.Join(errs...)
	}
}

func stripRoot(path string) string {
	clean := filepath.Clean(path)
	clean = strings.TrimPrefix(clean, filepath.VolumeName(clean))
	return strings.TrimLeft(clean, `/\`)
}

// Report is the JSON document written by WriteReport.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	FileCount   int              `json:"file_count"`
	TotalBytes  int64            `json:"total_bytes"`
	Extensions  map[string]int   `json:"extensions"`
	Files       []discovery.File `json:"files"`
}

// ReportFileName returns the report name for t.
func ReportFileName(t time.Time) string {
	return "FileReport_" + t.Format("20060102_150405") + ".json"
}

// WriteReport writes a JSON summary of the work set into dir and returns the
// report path.
func WriteReport(dir string) orchestrator.ProcessFunc {
	return func(_ context.Context, files []discovery.File) (any, error) {
		now := time.Now()
		report := Report{
			GeneratedAt: now,
			FileCount:   len(files),
			TotalBytes:  discovery.TotalSize(files),
			Extensions:  make(map[string]int),
			Files:       files,
		}
		for _, f := range files {
			report.Extensions[f.Extension]++
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		path := filepath.Join(dir, ReportFileName(now))
		if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		return path, nil
	}
}

// BatchResult is the outcome of one batch.
type BatchResult struct {
	Number int    `json:"number"`
	Files  int    `json:"files"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Batch splits the work set into chunks of size and runs fn on each. Every
// batch runs; failures are joined into the returned error.
func Batch(size int, fn orchestrator.ProcessFunc) orchestrator.ProcessFunc {
	if size <= 0 {
		size = 1
	}
	return func(ctx context.Context, files []discovery.File) (any, error) {
		var results []BatchResult
		var errs []error
		for start := 0; start < len(files); start += size {
			end := min(start+size, len(files))
			res := BatchResult{Number: start/size + 1, Files: end - start}
			out, err := fn(ctx, files[start:end])
			res.Result = out
			if err != nil {
				res.Error = err.Error()
				errs = append(errs, fmt.Errorf("batch %d: %w", res.Number, err))
			}
			results = append(results, res)
		}
		return results, errors.Join(errs...)
	}
}

// Composite runs steps in order and stops at the first failure. The result
// holds each completed step's output.
func Composite(steps ...orchestrator.ProcessFunc) orchestrator.ProcessFunc {
	return func(ctx context.Context, files []discovery.File) (any, error) {
		results := make([]any, 0, len(steps))
		for i, step := range steps {
			out, err := step(ctx, files)
			if err != nil {
				return results, fmt.Errorf("step %d: %w", i+1, err)
			}
			results = append(results, out)
		}
		return results, nil
	}
}
