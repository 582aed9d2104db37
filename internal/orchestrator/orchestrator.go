package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"

	"reportwatch/internal/clock"
	"reportwatch/internal/discovery"
	"reportwatch/internal/logging"
	"reportwatch/internal/pathresolve"
	"reportwatch/internal/schedule"
	"reportwatch/internal/search"
)

var (
	// ErrManualDisabled is returned when manual execution is turned off.
	ErrManualDisabled = errors.New("manual execution is disabled")
	// ErrNotRunning is returned by operations that need started triggers.
	ErrNotRunning = errors.New("orchestrator is not running")
	// ErrAlreadyRunning is returned by Start on a started orchestrator.
	ErrAlreadyRunning = errors.New("orchestrator is already running")
	// ErrNoFilesFound marks attempts whose discovery returned nothing.
	ErrNoFilesFound = errors.New("no files matched the search criteria")
)

// PathResolver expands configured search paths for a target date.
type PathResolver interface {
	Resolve(cfg search.Configuration, date time.Time) []string
}

// FileFinder discovers candidate files inside resolved directories.
type FileFinder interface {
	Discover(ctx context.Context, cfg search.Configuration, dirs []string) []discovery.File
}

// Options configures an Orchestrator. Config and Process are required.
type Options struct {
	Config  search.Configuration
	Process ProcessFunc

	// Fs backs the default Resolver and Finder.
	Fs       afero.Fs
	Resolver PathResolver
	Finder   FileFinder

	Clock  clock.Clock
	Bus    *Bus
	Logger *slog.Logger
	NewID  func() string
}

// Orchestrator coordinates scheduled, retry, and manual attempts.
type Orchestrator struct {
	cfg      search.Configuration
	process  ProcessFunc
	resolver PathResolver
	finder   FileFinder
	clock    clock.Clock
	bus      *Bus
	logger   *slog.Logger
	newID    func() string

	engine  *schedule.Engine
	guard   *semaphore.Weighted
	history *History
	state   atomic.Int32
	manual  chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an Orchestrator. The configuration is assumed to have been
// validated by search.Builder.
func New(opts Options) (*Orchestrator, error) {
	if opts.Process == nil {
		return nil, errors.New("orchestrator: process function is required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "orchestrator")
	c := opts.Clock
	if c == nil {
		c = clock.Real()
	}
	if opts.Resolver == nil {
		opts.Resolver = pathresolve.New(opts.Fs, opts.Logger)
	}
	if opts.Finder == nil {
		opts.Finder = discovery.New(opts.Fs, opts.Logger, discovery.WithNow(c.Now))
	}
	if opts.Bus == nil {
		opts.Bus = NewBus(opts.Logger)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Orchestrator{
		cfg:      opts.Config.Clone(),
		process:  opts.Process,
		resolver: opts.Resolver,
		finder:   opts.Finder,
		clock:    c,
		bus:      opts.Bus,
		logger:   logger,
		newID:    opts.NewID,
		engine:   schedule.NewEngine(c, opts.Logger),
		guard:    semaphore.NewWeighted(1),
		history:  NewHistory(c.Now()),
		manual:   make(chan struct{}, 1),
	}, nil
}

// Bus returns the event bus attempts publish to.
func (o *Orchestrator) Bus() *Bus { return o.bus }

// Config returns a copy of the active configuration.
func (o *Orchestrator) Config() search.Configuration { return o.cfg.Clone() }

// State returns the phase of the current attempt.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// Start arms the daily triggers and, when enabled, the manual listener.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return ErrAlreadyRunning
	}
	o.running = true
	o.engine.ScheduleMultiple(o.cfg.ScheduledTimes, o.onFiring)
	if o.cfg.ManualExecutionEnabled {
		ctx, cancel := context.WithCancel(context.Background())
		o.cancel = cancel
		o.wg.Add(1)
		go o.listen(ctx)
	}
	next, _ := o.engine.NextExecution()
	o.logger.Info("orchestrator started",
		logging.Int("schedules", len(o.cfg.ScheduledTimes)),
		logging.String("next_execution", next.Format(time.DateTime)),
		logging.String(logging.FieldEventType, "orchestrator_started"),
	)
	return nil
}

// Stop disarms every trigger and the manual listener. An attempt already
// holding the run guard finishes, but arms no retry.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	o.engine.Stop()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.logger.Info("orchestrator stopped", logging.String(logging.FieldEventType, "orchestrator_stopped"))
}

// Wait blocks until trigger goroutines and the manual listener have exited.
func (o *Orchestrator) Wait() {
	o.engine.Wait()
	o.wg.Wait()
}

// IsRunning reports whether triggers are armed.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// NextExecution returns the next daily firing, if any.
func (o *Orchestrator) NextExecution() (time.Time, bool) {
	return o.engine.NextExecution()
}

// ProcessNow runs one attempt immediately, bypassing the schedule skip policy.
func (o *Orchestrator) ProcessNow(ctx context.Context) Outcome {
	return o.run(ctx, Trigger{Kind: TriggerImmediate})
}

// RunScheduled runs the attempt schedule t would run when its trigger fires.
func (o *Orchestrator) RunScheduled(ctx context.Context, t search.TimeOfDay) Outcome {
	return o.run(ctx, Trigger{Kind: TriggerScheduled, Schedule: t})
}

// SearchNow resolves and discovers without processing. When paths are given
// they replace the configured search paths for this call only.
func (o *Orchestrator) SearchNow(ctx context.Context, paths ...string) []discovery.File {
	cfg := o.cfg
	if len(paths) > 0 {
		cfg = o.cfg.WithSearchPaths(paths)
	}
	return o.discover(ctx, cfg, o.clock.Now())
}

// ResolvedDirectories returns the directories an attempt started now would scan.
func (o *Orchestrator) ResolvedDirectories() []string {
	return o.resolver.Resolve(o.cfg, o.cfg.EffectiveDate(o.clock.Now()))
}

// TriggerManualExecution signals the manual listener and returns without
// waiting. Signals raised while one is pending coalesce.
func (o *Orchestrator) TriggerManualExecution() error {
	if !o.cfg.ManualExecutionEnabled {
		logging.WarnWithContext(o.logger, "manual execution requested but disabled", "manual_disabled",
			logging.String(logging.FieldErrorHint, "set manual.enabled = true"),
			logging.String(logging.FieldImpact, "request ignored"),
		)
		return ErrManualDisabled
	}
	if !o.IsRunning() {
		return ErrNotRunning
	}
	select {
	case o.manual <- struct{}{}:
	default:
	}
	o.logger.Info("manual execution signal received", logging.String(logging.FieldEventType, "manual_triggered"))
	o.bus.Publish(Event{
		Kind:      EventManualTriggered,
		Trigger:   Trigger{Kind: TriggerManual},
		Message:   "manual execution triggered",
		Timestamp: o.clock.Now(),
	})
	return nil
}

// ExecuteManually runs a manual attempt and waits for its outcome.
func (o *Orchestrator) ExecuteManually(ctx context.Context) Outcome {
	if !o.cfg.ManualExecutionEnabled {
		now := o.clock.Now()
		return Outcome{
			Trigger:     Trigger{Kind: TriggerManual},
			Message:     ErrManualDisabled.Error(),
			Err:         ErrManualDisabled,
			StartedAt:   now,
			ProcessedAt: now,
		}
	}
	return o.run(ctx, Trigger{Kind: TriggerManual})
}

// DailyStats reports today's activity.
func (o *Orchestrator) DailyStats() DailyStats {
	now := o.clock.Now()
	snap := o.history.Snapshot(now)
	stats := DailyStats{
		CurrentDay:               snap.Day,
		ProcessedFilesToday:      snap.ProcessedFiles,
		ScheduledExecutionsToday: len(snap.Schedules),
		ExecutionTimes:           snap.Schedules,
		ScheduledTimes:           o.cfg.Clone().ScheduledTimes,
		Running:                  o.IsRunning(),
		State:                    o.State(),
		ProcessOncePerDay:        o.cfg.ProcessOncePerDay,
		ProcessOnAllSchedules:    o.cfg.ProcessOnAllSchedules,
		ManualEnabled:            o.cfg.ManualExecutionEnabled,
		AllowMultipleManual:      o.cfg.AllowMultipleManualExecutions,
	}
	if next, ok := o.engine.NextExecution(); ok {
		stats.NextExecution = search.Some(next)
	}
	if retry, ok := o.engine.NextRetry(); ok {
		stats.NextRetry = search.Some(retry)
	}
	return stats
}

func (o *Orchestrator) onFiring(ctx context.Context, f schedule.Firing) {
	trig := Trigger{Kind: TriggerRetry}
	if f.Kind == schedule.KindDaily {
		trig = Trigger{Kind: TriggerScheduled, Schedule: f.Time}
	}
	o.run(ctx, trig)
}

func (o *Orchestrator) listen(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.manual:
		}
		o.logger.Info("processing manual execution signal")
		o.run(ctx, Trigger{Kind: TriggerManual})
	}
}

// run acquires the run guard and executes one attempt. ctx only bounds the
// wait for the guard; once acquired the attempt runs to completion.
func (o *Orchestrator) run(ctx context.Context, trig Trigger) Outcome {
	id := o.newID()
	if err := o.guard.Acquire(ctx, 1); err != nil {
		now := o.clock.Now()
		o.logger.Info("attempt abandoned before start",
			logging.String(logging.FieldAttemptID, id),
			logging.String(logging.FieldTrigger, trig.String()),
			logging.Error(err),
		)
		return Outcome{AttemptID: id, Trigger: trig, Message: "attempt canceled before start", Err: err, StartedAt: now, ProcessedAt: now}
	}
	defer o.guard.Release(1)
	if err := ctx.Err(); err != nil {
		now := o.clock.Now()
		return Outcome{AttemptID: id, Trigger: trig, Message: "attempt canceled before start", Err: err, StartedAt: now, ProcessedAt: now}
	}
	defer o.setState(StateIdle)
	return o.attempt(context.WithoutCancel(ctx), id, trig)
}

func (o *Orchestrator) attempt(ctx context.Context, id string, trig Trigger) Outcome {
	start := o.clock.Now()
	cfg := o.cfg
	ctx = logging.WithAttempt(ctx, id, trig.String())
	logger := logging.WithContext(ctx, o.logger)
	base := Outcome{AttemptID: id, Trigger: trig, StartedAt: start}

	if o.history.Rollover(start) {
		logger.Info("new day detected; processing history reset", logging.String(logging.FieldEventType, "history_rollover"))
	}
	o.publish(base, EventStarted, fmt.Sprintf("%s attempt started", trig), nil, nil, nil)

	if trig.Kind == TriggerScheduled {
		if reason, skip := o.skipReason(trig.Schedule, start); skip {
			logger.Info("scheduled attempt skipped",
				logging.String("reason", reason),
				logging.String(logging.FieldEventType, "attempt_skipped"),
			)
			out := base
			out.Success = true
			out.Skipped = true
			out.Message = reason
			return o.finish(out)
		}
	}

	o.setState(StateSearching)
	logger.Info("searching for files")
	found := o.discover(ctx, cfg, start)

	if len(found) == 0 {
		o.setState(StateNoFilesFound)
		logger.Info("no files found", logging.String(logging.FieldEventType, "files_not_found"))
		o.publish(base, EventFilesNotFound, ErrNoFilesFound.Error(), nil, nil, nil)
		if cfg.SearchUntilFound && trig.Kind != TriggerManual {
			o.scheduleRetry(logger, base)
		}
		out := base
		out.Message = ErrNoFilesFound.Error()
		out.Err = ErrNoFilesFound
		return o.finish(out)
	}

	o.setState(StateFiltering)
	work := o.workSet(found, trig)
	out := base
	out.FoundFiles = found
	if len(work) == 0 {
		o.setState(StateAllSkipped)
		out.Success = true
		out.Skipped = true
		out.Message = o.allSkippedMessage(len(found), start)
		o.recordSchedule(trig, o.clock.Now())
		logger.Info("all discovered files already processed",
			logging.Int("files_found", len(found)),
			logging.String("reason", out.Message),
			logging.String(logging.FieldEventType, "attempt_skipped"),
		)
		return o.finish(out)
	}

	logger.Info("files found",
		logging.Int("files_found", len(found)),
		logging.Int("files_pending", len(work)),
		logging.String(logging.FieldEventType, "files_found"),
	)
	o.publish(base, EventFilesFound, fmt.Sprintf("found %d files, %d pending", len(found), len(work)), found, nil, nil)

	o.setState(StateProcessing)
	data, err := o.invoke(ctx, work)
	if err != nil {
		out.Err = err
		out.Message = err.Error()
		out = o.finish(out)
		// The pending work set failed, it was not skipped.
		out.FilesSkipped = out.FilesFound - len(work)
		logging.WarnWithContext(logger, "processing failed", "processing_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the processor output"),
			logging.String(logging.FieldImpact, "files remain eligible for the next attempt"),
		)
		o.publish(base, EventError, "processing failed: "+err.Error(), work, &out, err)
		if cfg.SearchUntilFound {
			o.scheduleRetry(logger, base)
		}
		return out
	}

	done := o.clock.Now()
	o.history.MarkProcessed(work, done)
	o.recordSchedule(trig, done)
	out.Success = true
	out.Data = data
	out.ProcessedFiles = work
	out.Message = fmt.Sprintf("%s processing completed: %d files", trig.Kind, len(work))
	out = o.finish(out)
	logger.Info("processing completed",
		logging.Int("files_processed", out.FilesProcessed),
		logging.Int("files_skipped", out.FilesSkipped),
		logging.Int64("total_size_bytes", out.TotalSizeBytes),
		logging.Duration("duration", out.Duration),
		logging.String(logging.FieldEventType, "processing_completed"),
	)
	o.publish(base, EventCompleted, out.Message, work, &out, nil)
	return out
}

func (o *Orchestrator) discover(ctx context.Context, cfg search.Configuration, now time.Time) []discovery.File {
	dirs := o.resolver.Resolve(cfg, cfg.EffectiveDate(now))
	if len(dirs) == 0 {
		return nil
	}
	return o.finder.Discover(ctx, cfg, dirs)
}

func (o *Orchestrator) skipReason(t search.TimeOfDay, now time.Time) (string, bool) {
	switch {
	case o.cfg.ProcessOnAllSchedules:
		return "", false
	case o.cfg.ProcessOncePerDay:
		if o.history.AnyScheduleRanOn(now) {
			return "already processed today (once per day)", true
		}
		return "", false
	default:
		if o.history.ScheduleRanOn(t, now) {
			return fmt.Sprintf("schedule %s already ran today", t), true
		}
		return "", false
	}
}

func (o *Orchestrator) workSet(found []discovery.File, trig Trigger) []discovery.File {
	if trig.Kind == TriggerManual && o.cfg.AllowMultipleManualExecutions {
		return found
	}
	if o.cfg.ProcessOnAllSchedules {
		return found
	}
	return o.history.Unprocessed(found)
}

func (o *Orchestrator) allSkippedMessage(found int, now time.Time) string {
	if o.cfg.ProcessOncePerDay && o.history.AnyScheduleRanOn(now) {
		return "already processed today (once per day)"
	}
	return fmt.Sprintf("all %d files were already processed today", found)
}

// recordSchedule stores the last run for scheduled attempts and attributes
// retries to the nearest configured schedule.
func (o *Orchestrator) recordSchedule(trig Trigger, at time.Time) {
	switch trig.Kind {
	case TriggerScheduled:
		o.history.RecordSchedule(trig.Schedule, at)
	case TriggerRetry:
		if t, ok := search.Nearest(o.cfg.ScheduledTimes, at); ok {
			o.history.RecordSchedule(t, at)
		}
	}
}

func (o *Orchestrator) scheduleRetry(logger *slog.Logger, base Outcome) {
	now := o.clock.Now()
	if !o.cfg.RetryAllowedAt(now) {
		cutoff, _ := o.cfg.StopSearchingAfter.Get()
		logger.Info("retry not armed; daily cutoff reached",
			logging.String("stop_searching_after", cutoff.String()),
			logging.String(logging.FieldEventType, "retry_cutoff"),
		)
		return
	}
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		logger.Info("retry not armed; orchestrator not running", logging.String(logging.FieldEventType, "retry_skipped"))
		return
	}
	at := o.engine.ScheduleRetry(o.cfg.RetryInterval, o.onFiring)
	o.mu.Unlock()

	msg := fmt.Sprintf("retry scheduled in %s", o.cfg.RetryInterval)
	logger.Info(msg,
		logging.String("retry_at", at.Format(time.DateTime)),
		logging.String(logging.FieldEventType, "retry_scheduled"),
	)
	o.publish(base, EventRetryScheduled, msg, nil, nil, nil)
}

func (o *Orchestrator) invoke(ctx context.Context, files []discovery.File) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			o.logger.Debug("processor panic stack", logging.String("stack", string(debug.Stack())))
		}
	}()
	return o.process(ctx, files)
}

func (o *Orchestrator) finish(out Outcome) Outcome {
	now := o.clock.Now()
	processed, schedules := o.history.Counts()
	out.FilesFound = len(out.FoundFiles)
	out.FilesProcessed = len(out.ProcessedFiles)
	out.FilesSkipped = out.FilesFound - out.FilesProcessed
	out.TotalSizeBytes = discovery.TotalSize(out.ProcessedFiles)
	out.TotalProcessedToday = processed
	out.ScheduledExecutionsToday = schedules
	out.ProcessedAt = now
	out.Duration = now.Sub(out.StartedAt)
	o.setState(StateCompleted)
	return out
}

func (o *Orchestrator) publish(base Outcome, kind EventKind, msg string, files []discovery.File, out *Outcome, err error) {
	o.bus.Publish(Event{
		Kind:      kind,
		AttemptID: base.AttemptID,
		Trigger:   base.Trigger,
		Message:   msg,
		Files:     files,
		Outcome:   out,
		Err:       err,
		Timestamp: o.clock.Now(),
	})
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
}
