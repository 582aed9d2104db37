package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"reportwatch/internal/clock"
	"reportwatch/internal/logging"
	"reportwatch/internal/search"
)

// Kind distinguishes daily firings from retries.
type Kind int

const (
	KindDaily Kind = iota
	KindRetry
)

func (k Kind) String() string {
	if k == KindRetry {
		return "retry"
	}
	return "daily"
}

// Firing describes one trigger activation.
type Firing struct {
	Kind Kind
	// Time is the configured time of day for daily firings.
	Time    search.TimeOfDay
	FiredAt time.Time
}

// Action runs when a trigger fires. ctx is canceled when the trigger is
// stopped or replaced.
type Action func(ctx context.Context, firing Firing)

type trigger struct {
	time   search.TimeOfDay
	next   time.Time
	cancel context.CancelFunc
}

type retryTrigger struct {
	at     time.Time
	cancel context.CancelFunc
	timer  clock.Timer
}

// Engine owns the daily triggers and the retry trigger.
type Engine struct {
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	daily  []*trigger
	retry  *retryTrigger
	// fired holds retries whose timer has elapsed but whose action has not
	// returned; Stop cancels them too.
	fired  map[*retryTrigger]struct{}
	active bool
	wg     sync.WaitGroup
}

// NewEngine constructs an Engine. A nil clock uses wall time.
func NewEngine(c clock.Clock, logger *slog.Logger) *Engine {
	if c == nil {
		c = clock.Real()
	}
	return &Engine{
		clock:  c,
		logger: logging.NewComponentLogger(logger, "schedule"),
		fired:  make(map[*retryTrigger]struct{}),
	}
}

// NextOccurrence returns today at t when that instant is strictly after now,
// otherwise tomorrow at t.
func NextOccurrence(t search.TimeOfDay, now time.Time) time.Time {
	candidate := t.On(now)
	if candidate.After(now) {
		return candidate
	}
	return t.On(now.AddDate(0, 0, 1))
}

// ScheduleMultiple replaces every daily trigger with one per entry in times.
func (e *Engine) ScheduleMultiple(times []search.TimeOfDay, action Action) {
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopDailyLocked()
	now := e.clock.Now()
	for _, t := range sorted {
		ctx, cancel := context.WithCancel(context.Background())
		tr := &trigger{time: t, next: NextOccurrence(t, now), cancel: cancel}
		e.daily = append(e.daily, tr)
		timer := e.clock.NewTimer(tr.next.Sub(now))
		e.wg.Add(1)
		go e.runDaily(ctx, tr, timer, action)
	}
	e.active = true
	e.logger.Info("daily triggers armed",
		logging.Int("count", len(sorted)),
		logging.String("next_execution", formatInstant(e.nextLocked())),
	)
}

// ScheduleRetry arms a single-shot trigger at now+interval, replacing any
// pending retry.
func (e *Engine) ScheduleRetry(interval time.Duration, action Action) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelRetryLocked()
	ctx, cancel := context.WithCancel(context.Background())
	rt := &retryTrigger{
		at:     e.clock.Now().Add(interval),
		cancel: cancel,
		timer:  e.clock.NewTimer(interval),
	}
	e.retry = rt
	e.active = true
	e.wg.Add(1)
	go e.runRetry(ctx, rt, action)
	return rt.at
}

// CancelRetry disarms the pending retry, if any.
func (e *Engine) CancelRetry() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelRetryLocked()
}

// Stop cancels every trigger, including the context of a retry that has
// fired but whose action is still running or waiting. Actions are not
// interrupted beyond that cancellation.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopDailyLocked()
	e.cancelRetryLocked()
	for rt := range e.fired {
		rt.cancel()
	}
	e.active = false
}

// Wait blocks until every trigger goroutine has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// IsRunning reports whether triggers are armed.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// NextExecution returns the earliest next daily firing. ok is false when no
// daily trigger is armed.
func (e *Engine) NextExecution() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.nextLocked()
	return next, !next.IsZero()
}

// NextRetry returns the pending retry instant, if any.
func (e *Engine) NextRetry() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.retry == nil {
		return time.Time{}, false
	}
	return e.retry.at, true
}

// Times returns the armed daily times in ascending order.
func (e *Engine) Times() []search.TimeOfDay {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]search.TimeOfDay, 0, len(e.daily))
	for _, tr := range e.daily {
		out = append(out, tr.time)
	}
	return out
}

func (e *Engine) runDaily(ctx context.Context, tr *trigger, timer clock.Timer, action Action) {
	defer e.wg.Done()
	for {
		var firedAt time.Time
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case firedAt = <-timer.C():
		}
		if ctx.Err() != nil {
			return
		}

		e.mu.Lock()
		tr.next = NextOccurrence(tr.time, firedAt)
		e.mu.Unlock()

		e.invoke(ctx, action, Firing{Kind: KindDaily, Time: tr.time, FiredAt: firedAt})

		now := e.clock.Now()
		e.mu.Lock()
		if !tr.next.After(now) {
			tr.next = NextOccurrence(tr.time, now)
		}
		next := tr.next
		e.mu.Unlock()
		timer = e.clock.NewTimer(next.Sub(now))
	}
}

func (e *Engine) runRetry(ctx context.Context, rt *retryTrigger, action Action) {
	defer e.wg.Done()
	var firedAt time.Time
	select {
	case <-ctx.Done():
		return
	case firedAt = <-rt.timer.C():
	}
	e.mu.Lock()
	if e.retry != rt {
		e.mu.Unlock()
		return
	}
	e.retry = nil
	e.fired[rt] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.fired, rt)
		e.mu.Unlock()
		rt.cancel()
	}()
	e.invoke(ctx, action, Firing{Kind: KindRetry, FiredAt: firedAt})
}

func (e *Engine) invoke(ctx context.Context, action Action, firing Firing) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(e.logger, "scheduled action panicked", "schedule_action_panic",
				logging.String("trigger", firing.Kind.String()),
				logging.String("time", firing.Time.String()),
				logging.Error(fmt.Errorf("panic: %v", r)),
				logging.String("stack", string(debug.Stack())),
			)
		}
	}()
	action(ctx, firing)
}

func (e *Engine) cancelRetryLocked() {
	if e.retry == nil {
		return
	}
	e.retry.timer.Stop()
	e.retry.cancel()
	e.retry = nil
}

func (e *Engine) stopDailyLocked() {
	for _, tr := range e.daily {
		tr.cancel()
	}
	e.daily = nil
}

func (e *Engine) nextLocked() time.Time {
	var next time.Time
	for _, tr := range e.daily {
		if next.IsZero() || tr.next.Before(next) {
			next = tr.next
		}
	}
	return next
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateTime)
}
