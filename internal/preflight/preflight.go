package preflight

import (
	"context"
	"slices"

	"reportwatch/internal/config"
	"reportwatch/internal/processors"
	"reportwatch/internal/search"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	for _, path := range cfg.Search.Paths {
		results = append(results, CheckSearchPath(path, cfg.DateSearch.Enabled))
	}

	proc := cfg.Processor
	if usesStep(proc, processors.KindCommand) {
		results = append(results, CheckCommand("Processor command", proc.Command))
	}
	if usesStep(proc, processors.KindCopy) {
		results = append(results, CheckDirectoryAccess("Copy destination", proc.Destination))
	}
	if usesStep(proc, processors.KindReport) {
		results = append(results, CheckDirectoryAccess("Report directory", proc.ReportDir))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// usesStep reports whether the processor runs kind directly or as a
// composite step.
func usesStep(p config.Processor, kind string) bool {
	if p.Kind == kind {
		return true
	}
	return p.Kind == processors.KindComposite && slices.Contains(p.Steps, kind)
}

// searchBase returns the directory that must exist ahead of time for path:
// the path itself when literal, or the portion before any date token.
func searchBase(path string, dateMode bool) (string, bool) {
	if search.HasDateToken(path) {
		return search.DateTokenBase(path), true
	}
	return path, dateMode
}
