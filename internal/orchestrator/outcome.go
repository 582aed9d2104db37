package orchestrator

import (
	"context"
	"time"

	"reportwatch/internal/discovery"
	"reportwatch/internal/search"
)

// ProcessFunc handles one work set. The returned value is stored verbatim in
// the Outcome.
type ProcessFunc func(ctx context.Context, files []discovery.File) (any, error)

// TriggerKind identifies what started an attempt.
type TriggerKind int

const (
	TriggerScheduled TriggerKind = iota
	TriggerRetry
	TriggerManual
	TriggerImmediate
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerScheduled:
		return "scheduled"
	case TriggerRetry:
		return "retry"
	case TriggerManual:
		return "manual"
	case TriggerImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

// Trigger describes the origin of an attempt. Schedule is meaningful for
// scheduled triggers only.
type Trigger struct {
	Kind     TriggerKind
	Schedule search.TimeOfDay
}

func (t Trigger) String() string {
	if t.Kind == TriggerScheduled {
		return t.Kind.String() + "@" + t.Schedule.String()
	}
	return t.Kind.String()
}

// State is the phase of the current attempt.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateNoFilesFound
	StateFiltering
	StateAllSkipped
	StateProcessing
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateNoFilesFound:
		return "no_files_found"
	case StateFiltering:
		return "filtering"
	case StateAllSkipped:
		return "all_skipped"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one attempt. Every attempt produces one, including
// skips and failures.
type Outcome struct {
	AttemptID string
	Trigger   Trigger
	Success   bool
	// Skipped marks a successful attempt that processed nothing.
	Skipped bool
	Message string
	Err     error

	FoundFiles     []discovery.File
	ProcessedFiles []discovery.File

	FilesFound               int
	FilesProcessed           int
	FilesSkipped             int
	TotalProcessedToday      int
	ScheduledExecutionsToday int
	TotalSizeBytes           int64

	Data        any
	StartedAt   time.Time
	ProcessedAt time.Time
	Duration    time.Duration
}

// ErrorMessage returns Err's text or the empty string.
func (o Outcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// DailyStats is a snapshot of today's activity and the schedule policy.
type DailyStats struct {
	CurrentDay               time.Time
	ProcessedFilesToday      int
	ScheduledExecutionsToday int
	// ExecutionTimes maps each schedule that ran today to its last run.
	ExecutionTimes        []ScheduleRun
	ScheduledTimes        []search.TimeOfDay
	NextExecution         search.Optional[time.Time]
	NextRetry             search.Optional[time.Time]
	Running               bool
	State                 State
	ProcessOncePerDay     bool
	ProcessOnAllSchedules bool
	ManualEnabled         bool
	AllowMultipleManual   bool
}
