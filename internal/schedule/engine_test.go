package schedule_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"reportwatch/internal/clock"
	"reportwatch/internal/schedule"
	"reportwatch/internal/search"
)

func at(h, m int) time.Time {
	return time.Date(2024, 5, 1, h, m, 0, 0, time.Local)
}

func waitFiring(t *testing.T, ch <-chan schedule.Firing) schedule.Firing {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for firing")
	}
	return schedule.Firing{}
}

func TestNextOccurrence(t *testing.T) {
	eight := search.MustParseTimeOfDay("08:00")
	if got := schedule.NextOccurrence(eight, at(7, 0)); !got.Equal(at(8, 0)) {
		t.Fatalf("before: %v", got)
	}
	if got := schedule.NextOccurrence(eight, at(8, 0)); !got.Equal(at(8, 0).AddDate(0, 0, 1)) {
		t.Fatalf("equal instant should roll to tomorrow: %v", got)
	}
	if got := schedule.NextOccurrence(eight, at(9, 0)); !got.Equal(at(8, 0).AddDate(0, 0, 1)) {
		t.Fatalf("after: %v", got)
	}
}

func TestDailyTriggersFireAndRearm(t *testing.T) {
	fake := clock.NewFake(at(7, 0))
	engine := schedule.NewEngine(fake, nil)
	fired := make(chan schedule.Firing, 4)
	engine.ScheduleMultiple([]search.TimeOfDay{
		search.MustParseTimeOfDay("14:00"),
		search.MustParseTimeOfDay("08:00"),
	}, func(_ context.Context, f schedule.Firing) { fired <- f })
	defer func() {
		engine.Stop()
		engine.Wait()
	}()

	next, ok := engine.NextExecution()
	if !ok || !next.Equal(at(8, 0)) {
		t.Fatalf("NextExecution = %v %v", next, ok)
	}

	fake.BlockUntil(2)
	fake.Set(at(8, 0))
	f := waitFiring(t, fired)
	if f.Kind != schedule.KindDaily || f.Time.String() != "08:00" {
		t.Fatalf("unexpected firing %+v", f)
	}
	fake.BlockUntil(2)
	next, _ = engine.NextExecution()
	if !next.Equal(at(14, 0)) {
		t.Fatalf("NextExecution after 08:00 = %v", next)
	}

	fake.Set(at(14, 0))
	waitFiring(t, fired)
	fake.BlockUntil(2)
	next, _ = engine.NextExecution()
	if !next.Equal(at(8, 0).AddDate(0, 0, 1)) {
		t.Fatalf("NextExecution after last schedule = %v", next)
	}
}

func TestPanickingActionStillRearms(t *testing.T) {
	fake := clock.NewFake(at(7, 0))
	engine := schedule.NewEngine(fake, nil)
	var calls atomic.Int32
	engine.ScheduleMultiple([]search.TimeOfDay{search.MustParseTimeOfDay("08:00")}, func(context.Context, schedule.Firing) {
		calls.Add(1)
		panic("boom")
	})
	defer func() {
		engine.Stop()
		engine.Wait()
	}()

	fake.BlockUntil(1)
	fake.Set(at(8, 0))
	fake.BlockUntil(1)
	fake.Set(at(8, 0).AddDate(0, 0, 1))
	fake.BlockUntil(1)
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestRetryReplacesPending(t *testing.T) {
	fake := clock.NewFake(at(9, 0))
	engine := schedule.NewEngine(fake, nil)
	fired := make(chan schedule.Firing, 4)
	action := func(_ context.Context, f schedule.Firing) { fired <- f }

	engine.ScheduleRetry(30*time.Minute, action)
	fake.BlockUntil(1)
	second := engine.ScheduleRetry(10*time.Minute, action)
	if !second.Equal(at(9, 10)) {
		t.Fatalf("retry at %v", second)
	}
	fake.BlockUntil(1)
	if fake.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", fake.Pending())
	}
	if got, ok := engine.NextRetry(); !ok || !got.Equal(at(9, 10)) {
		t.Fatalf("NextRetry = %v %v", got, ok)
	}

	fake.Advance(time.Hour)
	f := waitFiring(t, fired)
	if f.Kind != schedule.KindRetry {
		t.Fatalf("unexpected firing %+v", f)
	}
	select {
	case extra := <-fired:
		t.Fatalf("replaced retry fired: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	engine.Stop()
	engine.Wait()
}

func TestStopClearsState(t *testing.T) {
	fake := clock.NewFake(at(7, 0))
	engine := schedule.NewEngine(fake, nil)
	engine.ScheduleMultiple([]search.TimeOfDay{search.MustParseTimeOfDay("08:00")}, func(context.Context, schedule.Firing) {})
	engine.ScheduleRetry(time.Minute, func(context.Context, schedule.Firing) {})
	if !engine.IsRunning() {
		t.Fatalf("expected running")
	}
	engine.Stop()
	engine.Wait()
	if engine.IsRunning() {
		t.Fatalf("expected stopped")
	}
	if _, ok := engine.NextExecution(); ok {
		t.Fatalf("NextExecution should be undefined after Stop")
	}
	if _, ok := engine.NextRetry(); ok {
		t.Fatalf("NextRetry should be undefined after Stop")
	}
	if fake.Pending() != 0 {
		t.Fatalf("pending timers = %d", fake.Pending())
	}
}
