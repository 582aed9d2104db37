package orchestrator

import (
	"maps"
	"sort"
	"sync"
	"time"

	"reportwatch/internal/discovery"
	"reportwatch/internal/search"
)

// History tracks what ran today. Mutators are called only by the attempt
// holding the run guard; the mutex exists so statistics can be read from
// other goroutines.
type History struct {
	mu             sync.RWMutex
	day            time.Time
	processed      map[string]time.Time
	lastBySchedule map[search.TimeOfDay]time.Time
}

// NewHistory returns an empty History valid for the day of now.
func NewHistory(now time.Time) *History {
	return &History{
		day:            midnight(now),
		processed:      make(map[string]time.Time),
		lastBySchedule: make(map[search.TimeOfDay]time.Time),
	}
}

// Rollover clears both maps when now falls on a different day than the one
// History is valid for. It reports whether a reset happened.
func (h *History) Rollover(now time.Time) bool {
	today := midnight(now)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.day.Equal(today) {
		return false
	}
	clear(h.processed)
	clear(h.lastBySchedule)
	h.day = today
	return true
}

// IsProcessed reports whether this revision of f was processed today.
func (h *History) IsProcessed(f discovery.File) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.processed[f.ProcessingKey()]
	return ok
}

// Unprocessed returns the files whose current revision is not yet recorded.
func (h *History) Unprocessed(files []discovery.File) []discovery.File {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]discovery.File, 0, len(files))
	for _, f := range files {
		if _, ok := h.processed[f.ProcessingKey()]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// MarkProcessed records files as processed at.
func (h *History) MarkProcessed(files []discovery.File, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range files {
		h.processed[f.ProcessingKey()] = at
	}
}

// RecordSchedule stores the last run of schedule t.
func (h *History) RecordSchedule(t search.TimeOfDay, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastBySchedule[t] = at
}

// ScheduleRanOn reports whether schedule t ran on the day of now.
func (h *History) ScheduleRanOn(t search.TimeOfDay, now time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	last, ok := h.lastBySchedule[t]
	return ok && search.SameDay(last, now)
}

// AnyScheduleRanOn reports whether any schedule ran on the day of now.
func (h *History) AnyScheduleRanOn(now time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, last := range h.lastBySchedule {
		if search.SameDay(last, now) {
			return true
		}
	}
	return false
}

// Counts returns the processed-file and schedule-run totals.
func (h *History) Counts() (processed, schedules int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.processed), len(h.lastBySchedule)
}

// HistorySnapshot is a read-only copy of History for reporting.
type HistorySnapshot struct {
	Day            time.Time
	ProcessedFiles int
	Schedules      []ScheduleRun
}

// ScheduleRun is the last run of one schedule.
type ScheduleRun struct {
	Time    search.TimeOfDay
	LastRun time.Time
}

// Snapshot copies the state as seen on the day of now. When the stored day is
// stale the snapshot reports an empty day without mutating History.
func (h *History) Snapshot(now time.Time) HistorySnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	today := midnight(now)
	snap := HistorySnapshot{Day: today}
	if !h.day.Equal(today) {
		return snap
	}
	snap.ProcessedFiles = len(h.processed)
	for _, t := range sortedKeys(h.lastBySchedule) {
		snap.Schedules = append(snap.Schedules, ScheduleRun{Time: t, LastRun: h.lastBySchedule[t]})
	}
	return snap
}

func sortedKeys(m map[search.TimeOfDay]time.Time) []search.TimeOfDay {
	keys := make([]search.TimeOfDay, 0, len(m))
	for k := range maps.Keys(m) {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
