package ipc

import (
	"time"

	"reportwatch/internal/discovery"
	"reportwatch/internal/journal"
	"reportwatch/internal/orchestrator"
)

// StartRequest arms the daemon's triggers.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest disarms the daemon's triggers.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running        bool       `json:"running"`
	PID            int        `json:"pid"`
	State          string     `json:"state"`
	NextExecution  *time.Time `json:"next_execution,omitempty"`
	NextRetry      *time.Time `json:"next_retry,omitempty"`
	ProcessedToday int        `json:"processed_today"`
	SchedulesToday int        `json:"schedules_today"`
	Watching       []string   `json:"watching,omitempty"`
	LockPath       string     `json:"lock_path"`
	JournalPath    string     `json:"journal_path,omitempty"`
	LogPath        string     `json:"log_path,omitempty"`
}

// TriggerRequest raises the manual signal.
type TriggerRequest struct{}

// TriggerResponse reports whether the signal was accepted.
type TriggerResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// ExecuteRequest runs a manual attempt and waits for it.
type ExecuteRequest struct{}

// ProcessNowRequest runs an immediate attempt and waits for it.
type ProcessNowRequest struct{}

// Outcome is the wire form of an attempt outcome.
type Outcome struct {
	AttemptID           string           `json:"attempt_id"`
	Trigger             string           `json:"trigger"`
	Success             bool             `json:"success"`
	Skipped             bool             `json:"skipped"`
	Message             string           `json:"message"`
	Error               string           `json:"error,omitempty"`
	FilesFound          int              `json:"files_found"`
	FilesProcessed      int              `json:"files_processed"`
	FilesSkipped        int              `json:"files_skipped"`
	TotalProcessedToday int              `json:"total_processed_today"`
	SchedulesToday      int              `json:"schedules_today"`
	TotalSizeBytes      int64            `json:"total_size_bytes"`
	ProcessedFiles      []discovery.File `json:"processed_files,omitempty"`
	StartedAt           time.Time        `json:"started_at"`
	ProcessedAt         time.Time        `json:"processed_at"`
	DurationMillis      int64            `json:"duration_ms"`
}

// OutcomeResponse wraps the outcome of Execute and ProcessNow.
type OutcomeResponse struct {
	Outcome Outcome `json:"outcome"`
}

// SearchRequest discovers files. Paths, when set, replace the configured
// search paths for this call only.
type SearchRequest struct {
	Paths []string `json:"paths,omitempty"`
}

// SearchResponse lists discovered files.
type SearchResponse struct {
	Files []discovery.File `json:"files"`
}

// StatsRequest fetches today's statistics.
type StatsRequest struct{}

// ScheduleRun is a schedule that ran today and when.
type ScheduleRun struct {
	Schedule string    `json:"schedule"`
	LastRun  time.Time `json:"last_run"`
}

// StatsResponse mirrors orchestrator.DailyStats.
type StatsResponse struct {
	CurrentDay               time.Time     `json:"current_day"`
	ProcessedFilesToday      int           `json:"processed_files_today"`
	ScheduledExecutionsToday int           `json:"scheduled_executions_today"`
	ExecutionTimes           []ScheduleRun `json:"execution_times"`
	ScheduledTimes           []string      `json:"scheduled_times"`
	NextExecution            *time.Time    `json:"next_execution,omitempty"`
	NextRetry                *time.Time    `json:"next_retry,omitempty"`
	Running                  bool          `json:"running"`
	State                    string        `json:"state"`
	ProcessOncePerDay        bool          `json:"process_once_per_day"`
	ProcessOnAllSchedules    bool          `json:"process_on_all_schedules"`
	ManualEnabled            bool          `json:"manual_enabled"`
	AllowMultipleManual      bool          `json:"allow_multiple_manual"`
}

// HistoryRequest fetches journal entries, newest first.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse lists journal entries.
type HistoryResponse struct {
	Entries []journal.Entry `json:"entries"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the notification result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// FromOutcome converts an orchestrator outcome to its wire form.
func FromOutcome(o orchestrator.Outcome) Outcome {
	return Outcome{
		AttemptID:           o.AttemptID,
		Trigger:             o.Trigger.String(),
		Success:             o.Success,
		Skipped:             o.Skipped,
		Message:             o.Message,
		Error:               o.ErrorMessage(),
		FilesFound:          o.FilesFound,
		FilesProcessed:      o.FilesProcessed,
		FilesSkipped:        o.FilesSkipped,
		TotalProcessedToday: o.TotalProcessedToday,
		SchedulesToday:      o.ScheduledExecutionsToday,
		TotalSizeBytes:      o.TotalSizeBytes,
		ProcessedFiles:      o.ProcessedFiles,
		StartedAt:           o.StartedAt,
		ProcessedAt:         o.ProcessedAt,
		DurationMillis:      o.Duration.Milliseconds(),
	}
}

// FromStats converts daily statistics to their wire form.
func FromStats(s orchestrator.DailyStats) StatsResponse {
	resp := StatsResponse{
		CurrentDay:               s.CurrentDay,
		ProcessedFilesToday:      s.ProcessedFilesToday,
		ScheduledExecutionsToday: s.ScheduledExecutionsToday,
		Running:                  s.Running,
		State:                    s.State.String(),
		ProcessOncePerDay:        s.ProcessOncePerDay,
		ProcessOnAllSchedules:    s.ProcessOnAllSchedules,
		ManualEnabled:            s.ManualEnabled,
		AllowMultipleManual:      s.AllowMultipleManual,
	}
	for _, run := range s.ExecutionTimes {
		resp.ExecutionTimes = append(resp.ExecutionTimes, ScheduleRun{Schedule: run.Time.Clock(), LastRun: run.LastRun})
	}
	for _, t := range s.ScheduledTimes {
		resp.ScheduledTimes = append(resp.ScheduledTimes, t.Clock())
	}
	if next, ok := s.NextExecution.Get(); ok {
		resp.NextExecution = &next
	}
	if retry, ok := s.NextRetry.Get(); ok {
		resp.NextRetry = &retry
	}
	return resp
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
