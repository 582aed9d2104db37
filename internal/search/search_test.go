package search_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"reportwatch/internal/search"
)

func memFs(t *testing.T, dirs ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, dir := range dirs {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return fs
}

func TestBuilderDefaults(t *testing.T) {
	cfg, err := search.NewBuilder().
		Filesystem(memFs(t, "/data")).
		AddSearchPaths("/data").
		AddFilePatterns("*.xlsx").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cfg.RetryInterval != 30*time.Minute {
		t.Fatalf("retry interval = %v", cfg.RetryInterval)
	}
	if !cfg.SearchUntilFound || !cfg.ProcessOncePerDay || cfg.ProcessOnAllSchedules {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
	if len(cfg.ScheduledTimes) != 1 || cfg.ScheduledTimes[0].String() != "08:00" {
		t.Fatalf("scheduled times = %v", cfg.ScheduledTimes)
	}
	if strings.Join(cfg.ExcludePatterns, ",") != "~$*,temp_*" {
		t.Fatalf("exclude patterns = %v", cfg.ExcludePatterns)
	}
	if cfg.StopSearchingAfter.IsSet() || cfg.MaxFileSizeBytes.IsSet() || cfg.FileAge.IsSet() {
		t.Fatalf("optional bounds should be unset")
	}
}

func TestBuilderRejectsDuplicateTimes(t *testing.T) {
	_, err := search.NewBuilder().
		Filesystem(memFs(t, "/data")).
		AddSearchPaths("/data").
		AddFileNames("report.xlsx").
		ScheduleAt(search.MustParseTimeOfDay("14:00"), search.MustParseTimeOfDay("08:00"), search.MustParseTimeOfDay("14:00")).
		Build()
	if !errors.Is(err, search.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate message, got %v", err)
	}
}

func TestBuilderSortsTimes(t *testing.T) {
	cfg, err := search.NewBuilder().
		Filesystem(memFs(t, "/data")).
		AddSearchPaths("/data").
		AddFileNames("report.xlsx").
		ScheduleAt(search.MustParseTimeOfDay("17:30"), search.MustParseTimeOfDay("08:00"), search.MustParseTimeOfDay("12:15")).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := []string{}
	for _, ts := range cfg.ScheduledTimes {
		got = append(got, ts.String())
	}
	if strings.Join(got, " ") != "08:00 12:15 17:30" {
		t.Fatalf("times = %v", got)
	}
}

func TestBuilderModeFlagsAreExclusive(t *testing.T) {
	b := search.NewBuilder().Filesystem(memFs(t, "/data")).AddSearchPaths("/data").AddFileNames("a.txt")

	cfg, err := b.ProcessOnAllSchedules(true).ProcessOncePerDay(true).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !cfg.ProcessOncePerDay || cfg.ProcessOnAllSchedules {
		t.Fatalf("once-per-day should clear all-schedules: %+v", cfg)
	}

	cfg, err = b.ProcessOncePerDay(true).ProcessOnAllSchedules(true).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cfg.ProcessOncePerDay || !cfg.ProcessOnAllSchedules {
		t.Fatalf("all-schedules should clear once-per-day: %+v", cfg)
	}

	cfg, err = b.ProcessOnAllSchedules(false).ProcessOncePerDay(false).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cfg.ProcessOncePerDay || cfg.ProcessOnAllSchedules {
		t.Fatalf("expected per-schedule mode: %+v", cfg)
	}
}

func TestValidateFailures(t *testing.T) {
	fs := memFs(t, "/data")
	tests := []struct {
		name  string
		build func(*search.Builder) *search.Builder
		want  string
	}{
		{"no paths", func(b *search.Builder) *search.Builder { return b.AddFileNames("a") }, "search.paths"},
		{"missing path", func(b *search.Builder) *search.Builder { return b.AddSearchPaths("/missing").AddFileNames("a") }, "does not exist"},
		{"relative path", func(b *search.Builder) *search.Builder { return b.AddSearchPaths("data").AddFileNames("a") }, "absolute"},
		{"no criteria", func(b *search.Builder) *search.Builder { return b.AddSearchPaths("/data") }, "file_names"},
		{"zero retry", func(b *search.Builder) *search.Builder {
			return b.AddSearchPaths("/data").AddFileNames("a").RetryEvery(0)
		}, "retry_interval"},
		{"bad time", func(b *search.Builder) *search.Builder {
			return b.AddSearchPaths("/data").AddFileNames("a").ScheduleAt(search.TimeOfDay(25 * time.Hour))
		}, "schedule.times"},
		{"zero size", func(b *search.Builder) *search.Builder {
			return b.AddSearchPaths("/data").AddFileNames("a").MaxFileSize(0)
		}, "max_file_size"},
		{"negative age", func(b *search.Builder) *search.Builder {
			return b.AddSearchPaths("/data").AddFileNames("a").OnlyFilesNewerThan(-time.Hour)
		}, "file_age"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build(search.NewBuilder().Filesystem(fs)).Build()
			if !errors.Is(err, search.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidatePermitsDateTemplatedPaths(t *testing.T) {
	fs := memFs(t)
	if _, err := search.NewBuilder().
		Filesystem(fs).
		AddSearchPaths("/share/{date:yyyy-MM-dd}/out").
		AddFileNames("report.xlsx").
		Build(); err != nil {
		t.Fatalf("date-token path should not require existence: %v", err)
	}
	if _, err := search.NewBuilder().
		Filesystem(fs).
		AddSearchPaths("/share/daily").
		AddFileNames("report.xlsx").
		DateBasedSearch(search.YearMonthDay).
		Build(); err != nil {
		t.Fatalf("date-search base should not require existence: %v", err)
	}
	if _, err := search.NewBuilder().
		Filesystem(fs).
		AddSearchPaths("relative/{date:yyyy}").
		AddFileNames("report.xlsx").
		Build(); err == nil {
		t.Fatalf("expected relative base path to fail")
	}
}

func TestBuilderAcceptsLiteralBracketPatterns(t *testing.T) {
	fs := memFs(t, "/data")
	if _, err := search.NewBuilder().
		Filesystem(fs).
		AddSearchPaths("/data").
		AddFilePatterns("report[.xlsx", `q1\*.csv`).
		Build(); err != nil {
		t.Fatalf("bracket and backslash patterns should build: %v", err)
	}
}

func TestMaxFileSizeMB(t *testing.T) {
	cfg, err := search.NewBuilder().Filesystem(memFs(t, "/d")).AddSearchPaths("/d").AddFileNames("a").MaxFileSizeMB(2).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if v, _ := cfg.MaxFileSizeBytes.Get(); v != 2*1024*1024 {
		t.Fatalf("max size = %d", v)
	}
}

func TestRetryAllowedAt(t *testing.T) {
	cfg := search.Configuration{}
	now := time.Date(2024, 5, 1, 18, 0, 0, 0, time.Local)
	if !cfg.RetryAllowedAt(now) {
		t.Fatalf("no cutoff should always allow retries")
	}
	cfg.StopSearchingAfter = search.Some(search.MustParseTimeOfDay("17:00"))
	if cfg.RetryAllowedAt(now) {
		t.Fatalf("cutoff passed; retry should be refused")
	}
	cfg.StopSearchingAfter = search.Some(search.MustParseTimeOfDay("19:00"))
	if !cfg.RetryAllowedAt(now) {
		t.Fatalf("before cutoff; retry should be allowed")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := search.Configuration{SearchPaths: []string{"/a"}}
	scoped := cfg.WithSearchPaths([]string{"/b"})
	scoped.SearchPaths[0] = "/c"
	if cfg.SearchPaths[0] != "/a" {
		t.Fatalf("original mutated: %v", cfg.SearchPaths)
	}
}
