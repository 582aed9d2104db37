package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"reportwatch/internal/clock"
	"reportwatch/internal/discovery"
	"reportwatch/internal/orchestrator"
	"reportwatch/internal/search"
)

var (
	eight    = search.MustParseTimeOfDay("08:00")
	fourteen = search.MustParseTimeOfDay("14:00")
)

func morning() time.Time {
	return time.Date(2024, 5, 1, 7, 30, 0, 0, time.Local)
}

type fixture struct {
	fs    afero.Fs
	clock *clock.Fake
	orch  *orchestrator.Orchestrator
	calls atomic.Int32

	mu     sync.Mutex
	events []orchestrator.Event
	seen   [][]discovery.File
}

func newFixture(t *testing.T, configure func(*search.Builder), process orchestrator.ProcessFunc) *fixture {
	t.Helper()
	f := &fixture{fs: afero.NewMemMapFs(), clock: clock.NewFake(morning())}
	if err := f.fs.MkdirAll("/in", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	b := search.NewBuilder().
		Filesystem(f.fs).
		AddSearchPaths("/in").
		AddFileNames("report.xlsx").
		ScheduleAt(eight, fourteen)
	if configure != nil {
		configure(b)
	}
	cfg, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if process == nil {
		process = func(_ context.Context, files []discovery.File) (any, error) {
			f.calls.Add(1)
			f.mu.Lock()
			f.seen = append(f.seen, files)
			f.mu.Unlock()
			return len(files), nil
		}
	}
	orch, err := orchestrator.New(orchestrator.Options{
		Config:  cfg,
		Process: process,
		Fs:      f.fs,
		Clock:   f.clock,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	orch.Bus().Subscribe(func(evt orchestrator.Event) {
		f.mu.Lock()
		f.events = append(f.events, evt)
		f.mu.Unlock()
	})
	f.orch = orch
	t.Cleanup(func() {
		orch.Stop()
		orch.Wait()
	})
	return f
}

func (f *fixture) writeReport(t *testing.T, mod time.Time) {
	t.Helper()
	if err := afero.WriteFile(f.fs, "/in/report.xlsx", []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.fs.Chtimes("/in/report.xlsx", mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func (f *fixture) count(kind orchestrator.EventKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestOncePerDaySkipsSecondSchedule(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.writeReport(t, morning().Add(-time.Hour))
	ctx := context.Background()

	first := f.orch.RunScheduled(ctx, eight)
	if !first.Success || first.Skipped || first.FilesProcessed != 1 {
		t.Fatalf("first attempt: %+v", first)
	}
	if first.Data != 1 {
		t.Fatalf("processor result not stored: %v", first.Data)
	}
	if first.AttemptID == "" {
		t.Fatalf("expected attempt id")
	}

	second := f.orch.RunScheduled(ctx, fourteen)
	if !second.Success || !second.Skipped {
		t.Fatalf("second attempt should be a successful skip: %+v", second)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("processor calls = %d, want 1", f.calls.Load())
	}
}

func TestImmediateAttemptsDeduplicateFiles(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.writeReport(t, morning().Add(-time.Hour))
	ctx := context.Background()

	if out := f.orch.ProcessNow(ctx); out.FilesProcessed != 1 {
		t.Fatalf("first ProcessNow: %+v", out)
	}
	out := f.orch.ProcessNow(ctx)
	if !out.Success || !out.Skipped || out.FilesFound != 1 || out.FilesSkipped != 1 {
		t.Fatalf("second ProcessNow should skip: %+v", out)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("processor calls = %d", f.calls.Load())
	}

	f.clock.Advance(time.Minute)
	f.writeReport(t, f.clock.Now())
	if out := f.orch.ProcessNow(ctx); out.FilesProcessed != 1 {
		t.Fatalf("modified file should be new work: %+v", out)
	}
	if out := f.orch.ProcessNow(ctx); out.TotalProcessedToday != 2 {
		t.Fatalf("total processed today = %d, want 2", out.TotalProcessedToday)
	}
}

func TestDayRolloverResetsHistory(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.writeReport(t, morning().Add(-time.Hour))
	ctx := context.Background()

	f.orch.RunScheduled(ctx, eight)
	if stats := f.orch.DailyStats(); stats.ProcessedFilesToday != 1 || stats.ScheduledExecutionsToday != 1 {
		t.Fatalf("stats before rollover: %+v", stats)
	}

	f.clock.Set(morning().AddDate(0, 0, 1))
	if stats := f.orch.DailyStats(); stats.ProcessedFilesToday != 0 || stats.ScheduledExecutionsToday != 0 {
		t.Fatalf("stats after midnight should be empty: %+v", stats)
	}
	out := f.orch.RunScheduled(ctx, eight)
	if out.Skipped || out.FilesProcessed != 1 {
		t.Fatalf("file should be eligible after rollover: %+v", out)
	}
	if f.calls.Load() != 2 {
		t.Fatalf("processor calls = %d", f.calls.Load())
	}
}

func TestNotFoundArmsSingleRetry(t *testing.T) {
	f := newFixture(t, nil, nil)
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out := f.orch.RunScheduled(context.Background(), eight)
	if out.Success || !errors.Is(out.Err, orchestrator.ErrNoFilesFound) {
		t.Fatalf("expected not-found failure: %+v", out)
	}
	stats := f.orch.DailyStats()
	retryAt, ok := stats.NextRetry.Get()
	if !ok || !retryAt.Equal(morning().Add(30*time.Minute)) {
		t.Fatalf("retry = %v %v", retryAt, ok)
	}
	if f.clock.Pending() != 3 {
		t.Fatalf("pending timers = %d, want two daily plus one retry", f.clock.Pending())
	}
	if f.count(orchestrator.EventFilesNotFound) != 1 || f.count(orchestrator.EventRetryScheduled) != 1 {
		t.Fatalf("unexpected events: %+v", f.events)
	}
}

func TestCutoffPreventsRetry(t *testing.T) {
	f := newFixture(t, func(b *search.Builder) {
		b.StopSearchingAfter(search.MustParseTimeOfDay("07:00"))
	}, nil)
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.orch.RunScheduled(context.Background(), eight)
	if _, ok := f.orch.DailyStats().NextRetry.Get(); ok {
		t.Fatalf("retry armed after cutoff")
	}
	if f.clock.Pending() != 2 {
		t.Fatalf("pending timers = %d", f.clock.Pending())
	}
	if f.count(orchestrator.EventRetryScheduled) != 0 {
		t.Fatalf("unexpected retry event")
	}
}

func TestManualNotFoundDoesNotRetry(t *testing.T) {
	f := newFixture(t, nil, nil)
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.orch.ExecuteManually(context.Background())
	if _, ok := f.orch.DailyStats().NextRetry.Get(); ok {
		t.Fatalf("manual attempt should not arm retries")
	}
}

func TestStoppedOrchestratorArmsNoRetry(t *testing.T) {
	f := newFixture(t, nil, nil)
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.orch.Stop()
	f.orch.ProcessNow(context.Background())
	if _, ok := f.orch.DailyStats().NextRetry.Get(); ok {
		t.Fatalf("retry armed after Stop")
	}
	if _, ok := f.orch.NextExecution(); ok {
		t.Fatalf("next execution should be undefined after Stop")
	}
}

func TestStopCancelsRetryWaitingForGuard(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	f := newFixture(t, func(b *search.Builder) { b.RetryEvery(10 * time.Minute) }, func(context.Context, []discovery.File) (any, error) {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		return nil, nil
	})
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if out := f.orch.ProcessNow(context.Background()); !errors.Is(out.Err, orchestrator.ErrNoFilesFound) {
		t.Fatalf("expected not-found: %+v", out)
	}
	f.writeReport(t, morning())

	busy := make(chan orchestrator.Outcome, 1)
	go func() { busy <- f.orch.ProcessNow(context.Background()) }()
	<-entered

	f.clock.Advance(10 * time.Minute)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := f.orch.DailyStats().NextRetry.Get(); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("retry did not fire")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)

	f.orch.Stop()
	close(release)
	if out := <-busy; !out.Success {
		t.Fatalf("in-flight attempt should finish: %+v", out)
	}
	f.orch.Wait()

	if calls.Load() != 1 {
		t.Fatalf("processor calls = %d, want 1", calls.Load())
	}
	if n := f.count(orchestrator.EventStarted); n != 2 {
		t.Fatalf("started events = %d, want 2", n)
	}
}

func TestRetryFiresAndAttributesNearestSchedule(t *testing.T) {
	f := newFixture(t, func(b *search.Builder) { b.RetryEvery(10 * time.Minute) }, nil)
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.orch.RunScheduled(context.Background(), eight)
	f.writeReport(t, morning())

	done := make(chan orchestrator.Event, 1)
	f.orch.Bus().Subscribe(func(evt orchestrator.Event) {
		if evt.Kind == orchestrator.EventCompleted {
			done <- evt
		}
	})
	f.clock.Set(morning().Add(10 * time.Minute))
	select {
	case evt := <-done:
		if evt.Trigger.Kind != orchestrator.TriggerRetry {
			t.Fatalf("completed by %s", evt.Trigger)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("retry did not complete")
	}
	stats := f.orch.DailyStats()
	if len(stats.ExecutionTimes) != 1 || stats.ExecutionTimes[0].Time != eight {
		t.Fatalf("retry should be attributed to 08:00: %+v", stats.ExecutionTimes)
	}
}

func TestProcessingErrorIsReportedAndRetried(t *testing.T) {
	boom := errors.New("boom")
	f := newFixture(t, nil, func(context.Context, []discovery.File) (any, error) {
		return nil, boom
	})
	f.writeReport(t, morning())
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out := f.orch.RunScheduled(context.Background(), eight)
	if out.Success || !errors.Is(out.Err, boom) || out.Message != "boom" {
		t.Fatalf("expected failed outcome: %+v", out)
	}
	if out.FilesFound != 1 || out.FilesProcessed != 0 || out.FilesSkipped != 0 {
		t.Fatalf("failed work set should not count as skipped: %+v", out)
	}
	if f.count(orchestrator.EventError) != 1 || f.count(orchestrator.EventRetryScheduled) != 1 {
		t.Fatalf("expected error and retry events")
	}
	if stats := f.orch.DailyStats(); stats.ProcessedFilesToday != 0 || stats.ScheduledExecutionsToday != 0 {
		t.Fatalf("failed attempt must not record history: %+v", stats)
	}
}

func TestProcessorPanicBecomesFailure(t *testing.T) {
	f := newFixture(t, nil, func(context.Context, []discovery.File) (any, error) {
		panic("kaboom")
	})
	f.writeReport(t, morning())
	out := f.orch.ProcessNow(context.Background())
	if out.Success || out.Err == nil {
		t.Fatalf("expected failure: %+v", out)
	}
	if f.orch.State() != orchestrator.StateIdle {
		t.Fatalf("state = %s", f.orch.State())
	}
}

func TestAllSchedulesProcessesEveryFiring(t *testing.T) {
	f := newFixture(t, func(b *search.Builder) { b.ProcessOnAllSchedules(true) }, nil)
	f.writeReport(t, morning().Add(-time.Hour))
	ctx := context.Background()

	a := f.orch.RunScheduled(ctx, eight)
	f.clock.Set(time.Date(2024, 5, 1, 14, 0, 1, 0, time.Local))
	b := f.orch.RunScheduled(ctx, fourteen)
	if a.FilesProcessed != 1 || b.FilesProcessed != 1 {
		t.Fatalf("both schedules should process: %+v / %+v", a, b)
	}
	if b.ScheduledExecutionsToday != 2 {
		t.Fatalf("scheduled executions = %d", b.ScheduledExecutionsToday)
	}
}

func TestPerScheduleMode(t *testing.T) {
	f := newFixture(t, func(b *search.Builder) { b.ProcessOncePerDay(false) }, nil)
	f.writeReport(t, morning().Add(-time.Hour))
	ctx := context.Background()

	f.orch.RunScheduled(ctx, eight)
	again := f.orch.RunScheduled(ctx, eight)
	if !again.Skipped || again.FilesFound != 0 {
		t.Fatalf("same schedule should skip before discovery: %+v", again)
	}
	other := f.orch.RunScheduled(ctx, fourteen)
	if !other.Skipped || other.FilesFound != 1 {
		t.Fatalf("other schedule should run discovery and skip processed files: %+v", other)
	}
	if f.orch.DailyStats().ScheduledExecutionsToday != 2 {
		t.Fatalf("both schedules should be recorded")
	}
}

func TestManualPolicies(t *testing.T) {
	ctx := context.Background()

	disabled := newFixture(t, func(b *search.Builder) { b.ManualExecution(false, false) }, nil)
	if out := disabled.orch.ExecuteManually(ctx); !errors.Is(out.Err, orchestrator.ErrManualDisabled) {
		t.Fatalf("expected ErrManualDisabled: %+v", out)
	}
	if err := disabled.orch.TriggerManualExecution(); !errors.Is(err, orchestrator.ErrManualDisabled) {
		t.Fatalf("TriggerManualExecution = %v", err)
	}

	multi := newFixture(t, func(b *search.Builder) { b.ManualExecution(true, true) }, nil)
	multi.writeReport(t, morning())
	multi.orch.ExecuteManually(ctx)
	if out := multi.orch.ExecuteManually(ctx); out.FilesProcessed != 1 {
		t.Fatalf("repeated manual execution should reprocess: %+v", out)
	}

	single := newFixture(t, nil, nil)
	single.writeReport(t, morning())
	single.orch.ExecuteManually(ctx)
	if out := single.orch.ExecuteManually(ctx); !out.Skipped {
		t.Fatalf("manual execution should dedupe by default: %+v", out)
	}
}

func TestManualSignalRunsListener(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.writeReport(t, morning())
	if err := f.orch.TriggerManualExecution(); !errors.Is(err, orchestrator.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning before Start, got %v", err)
	}

	done := make(chan orchestrator.Event, 1)
	f.orch.Bus().Subscribe(func(evt orchestrator.Event) {
		if evt.Kind == orchestrator.EventCompleted {
			done <- evt
		}
	})
	if err := f.orch.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.orch.TriggerManualExecution(); err != nil {
		t.Fatalf("TriggerManualExecution: %v", err)
	}
	select {
	case evt := <-done:
		if evt.Trigger.Kind != orchestrator.TriggerManual {
			t.Fatalf("unexpected trigger %s", evt.Trigger)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("manual signal was not processed")
	}
	if f.count(orchestrator.EventManualTriggered) != 1 {
		t.Fatalf("expected manual trigger event")
	}
}

func TestAttemptsNeverOverlap(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	f := newFixture(t, func(b *search.Builder) { b.ProcessOnAllSchedules(true) }, func(context.Context, []discovery.File) (any, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		entered <- struct{}{}
		<-release
		inFlight.Add(-1)
		return nil, nil
	})
	f.writeReport(t, morning())

	var wg sync.WaitGroup
	results := make([]orchestrator.Outcome, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.orch.RunScheduled(context.Background(), eight)
		}()
	}
	<-entered
	select {
	case <-entered:
		t.Fatalf("second attempt entered processing while the first held the guard")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	wg.Wait()
	if maxInFlight.Load() != 1 {
		t.Fatalf("max concurrent attempts = %d", maxInFlight.Load())
	}
	for _, r := range results {
		if !r.Success || r.FilesProcessed != 1 {
			t.Fatalf("unexpected outcome %+v", r)
		}
	}
}

func TestSearchNowUsesScopedPaths(t *testing.T) {
	f := newFixture(t, nil, nil)
	if err := afero.WriteFile(f.fs, "/other/report.xlsx", []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := f.orch.SearchNow(context.Background()); len(got) != 0 {
		t.Fatalf("configured paths should find nothing: %v", got)
	}
	got := f.orch.SearchNow(context.Background(), "/other")
	if len(got) != 1 || got[0].Path != "/other/report.xlsx" {
		t.Fatalf("SearchNow = %v", got)
	}
	if paths := f.orch.Config().SearchPaths; len(paths) != 1 || paths[0] != "/in" {
		t.Fatalf("configuration mutated: %v", paths)
	}
	if f.calls.Load() != 0 {
		t.Fatalf("SearchNow must not process")
	}
}
