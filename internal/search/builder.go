package search

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Builder assembles a Configuration. Methods mutate the builder and return
// it for chaining; Build validates and returns an independent copy.
type Builder struct {
	cfg        Configuration
	fs         afero.Fs
	duplicates []TimeOfDay
}

// NewBuilder starts from the documented defaults: a single 08:00 schedule,
// 30 minute retries until found, once-per-day processing, manual execution
// enabled, and the default exclusions.
func NewBuilder() *Builder {
	return &Builder{
		cfg: Configuration{
			ExcludePatterns:        slices.Clone(DefaultExcludePatterns),
			ScheduledTimes:         []TimeOfDay{NewTimeOfDay(8, 0, 0)},
			RetryInterval:          DefaultRetryInterval,
			SearchUntilFound:       true,
			ProcessOncePerDay:      true,
			ManualExecutionEnabled: true,
			DateSearch:             DateSearch{FolderFormat: DayMonthYear},
		},
	}
}

// Filesystem sets the filesystem used for path validation.
func (b *Builder) Filesystem(fs afero.Fs) *Builder {
	b.fs = fs
	return b
}

// AddSearchPaths appends non-blank paths.
func (b *Builder) AddSearchPaths(paths ...string) *Builder {
	b.cfg.SearchPaths = appendNonBlank(b.cfg.SearchPaths, paths)
	return b
}

// AddFileNames appends exact file names to match.
func (b *Builder) AddFileNames(names ...string) *Builder {
	b.cfg.FileNames = appendNonBlank(b.cfg.FileNames, names)
	return b
}

// AddFilePatterns appends glob patterns to match.
func (b *Builder) AddFilePatterns(patterns ...string) *Builder {
	b.cfg.FilePatterns = appendNonBlank(b.cfg.FilePatterns, patterns)
	return b
}

// ExcludePatterns appends veto patterns.
func (b *Builder) ExcludePatterns(patterns ...string) *Builder {
	b.cfg.ExcludePatterns = appendNonBlank(b.cfg.ExcludePatterns, patterns)
	return b
}

// ClearExcludePatterns drops all veto patterns, including the defaults.
func (b *Builder) ClearExcludePatterns() *Builder {
	b.cfg.ExcludePatterns = nil
	return b
}

// ScheduleAt replaces the schedule with the given times of day.
func (b *Builder) ScheduleAt(times ...TimeOfDay) *Builder {
	b.cfg.ScheduledTimes = nil
	b.duplicates = nil
	return b.AddScheduleTimes(times...)
}

// AddScheduleTimes appends times of day. Duplicates fail Build.
func (b *Builder) AddScheduleTimes(times ...TimeOfDay) *Builder {
	for _, t := range times {
		if slices.Contains(b.cfg.ScheduledTimes, t) {
			b.duplicates = append(b.duplicates, t)
			continue
		}
		b.cfg.ScheduledTimes = append(b.cfg.ScheduledTimes, t)
	}
	return b
}

// RetryEvery sets the retry interval.
func (b *Builder) RetryEvery(interval time.Duration) *Builder {
	b.cfg.RetryInterval = interval
	return b
}

// SearchUntilFound toggles retries after empty or failed attempts.
func (b *Builder) SearchUntilFound(enabled bool) *Builder {
	b.cfg.SearchUntilFound = enabled
	return b
}

// StopSearchingAfter sets the daily retry cutoff.
func (b *Builder) StopSearchingAfter(t TimeOfDay) *Builder {
	b.cfg.StopSearchingAfter = Some(t)
	return b
}

// IncludeSubdirectories toggles recursive discovery.
func (b *Builder) IncludeSubdirectories(include bool) *Builder {
	b.cfg.IncludeSubdirectories = include
	return b
}

// MaxFileSize sets the inclusive size bound in bytes.
func (b *Builder) MaxFileSize(bytes int64) *Builder {
	b.cfg.MaxFileSizeBytes = Some(bytes)
	return b
}

// MaxFileSizeMB sets the inclusive size bound in mebibytes.
func (b *Builder) MaxFileSizeMB(mb int64) *Builder {
	return b.MaxFileSize(mb * bytesPerMB)
}

// OnlyFilesNewerThan keeps files modified within age.
func (b *Builder) OnlyFilesNewerThan(age time.Duration) *Builder {
	b.cfg.FileAge = Some(age)
	return b
}

// OnlyFilesNewerThanDays is OnlyFilesNewerThan in whole days.
func (b *Builder) OnlyFilesNewerThanDays(days int) *Builder {
	return b.OnlyFilesNewerThan(time.Duration(days) * 24 * time.Hour)
}

// ProcessOncePerDay enables or disables once-per-day processing. Enabling it
// clears ProcessOnAllSchedules; disabling it with all-schedules off selects
// per-schedule processing.
func (b *Builder) ProcessOncePerDay(enabled bool) *Builder {
	b.cfg.ProcessOncePerDay = enabled
	if enabled {
		b.cfg.ProcessOnAllSchedules = false
	}
	return b
}

// ProcessOnAllSchedules makes every scheduled firing process all discovered
// files. It always sets ProcessOncePerDay to the opposite value.
func (b *Builder) ProcessOnAllSchedules(enabled bool) *Builder {
	b.cfg.ProcessOnAllSchedules = enabled
	b.cfg.ProcessOncePerDay = !enabled
	return b
}

// DateBasedSearch enables date-folder discovery under each search path.
func (b *Builder) DateBasedSearch(format DateFolderFormat) *Builder {
	b.cfg.DateSearch.Enabled = true
	b.cfg.DateSearch.FolderFormat = format
	return b
}

// TargetDate pins the date used for token and folder resolution.
func (b *Builder) TargetDate(date time.Time) *Builder {
	b.cfg.DateSearch.TargetDate = Some(date)
	return b
}

// ManualExecution sets the manual trigger policy.
func (b *Builder) ManualExecution(enabled, allowMultiple bool) *Builder {
	b.cfg.ManualExecutionEnabled = enabled
	b.cfg.AllowMultipleManualExecutions = allowMultiple
	return b
}

// Build sorts the schedule, validates, and returns a copy of the configuration.
func (b *Builder) Build() (Configuration, error) {
	if len(b.duplicates) > 0 {
		return Configuration{}, invalid(fmt.Sprintf("schedule.times contains duplicate %s", b.duplicates[0]))
	}
	cfg := b.cfg.Clone()
	slices.Sort(cfg.ScheduledTimes)
	if err := cfg.Validate(b.fs); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

func appendNonBlank(dst, values []string) []string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			dst = append(dst, v)
		}
	}
	return dst
}
