package logs

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Filter narrows JSON log lines. The zero value matches everything.
type Filter struct {
	// MinLevel drops lines below this level; nil keeps every level.
	MinLevel  slog.Leveler
	AttemptID string
}

type lineFields struct {
	Level     string `json:"level"`
	AttemptID string `json:"attempt_id"`
}

// Active reports whether the filter can reject anything.
func (f Filter) Active() bool {
	return f.MinLevel != nil || f.AttemptID != ""
}

// Match reports whether line passes the filter. Lines that are not JSON only
// pass an inactive filter. Attempt ids match by prefix so the short form
// shown on the console works.
func (f Filter) Match(line string) bool {
	if !f.Active() {
		return true
	}
	var fields lineFields
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return false
	}
	if f.MinLevel != nil {
		var level slog.Level
		if err := level.UnmarshalText([]byte(fields.Level)); err != nil || level < f.MinLevel.Level() {
			return false
		}
	}
	if f.AttemptID != "" && !strings.HasPrefix(fields.AttemptID, f.AttemptID) {
		return false
	}
	return true
}

// Apply returns the lines that pass the filter, preserving order.
func (f Filter) Apply(lines []string) []string {
	if !f.Active() {
		return lines
	}
	out := lines[:0:0]
	for _, line := range lines {
		if f.Match(line) {
			out = append(out, line)
		}
	}
	return out
}
