package config

import (
	"fmt"
	"time"

	"github.com/spf13/afero"

	"reportwatch/internal/processors"
	"reportwatch/internal/search"
)

// ScheduleTimes parses schedule.times.
func (c *Config) ScheduleTimes() ([]search.TimeOfDay, error) {
	times := make([]search.TimeOfDay, 0, len(c.Schedule.Times))
	for _, raw := range c.Schedule.Times {
		t, err := search.ParseTimeOfDay(raw)
		if err != nil {
			return nil, invalid(fmt.Sprintf("schedule.times entry %q: %v", raw, err))
		}
		times = append(times, t)
	}
	return times, nil
}

// RetryInterval parses schedule.retry_interval.
func (c *Config) RetryInterval() (time.Duration, error) {
	return parsePositiveDuration("schedule.retry_interval", c.Schedule.RetryInterval)
}

// StopSearchingAfter parses schedule.stop_searching_after. ok is false when unset.
func (c *Config) StopSearchingAfter() (search.TimeOfDay, bool, error) {
	if c.Schedule.StopSearchingAfter == "" {
		return 0, false, nil
	}
	t, err := search.ParseTimeOfDay(c.Schedule.StopSearchingAfter)
	if err != nil {
		return 0, false, invalid(fmt.Sprintf("schedule.stop_searching_after %q: %v", c.Schedule.StopSearchingAfter, err))
	}
	return t, true, nil
}

// FileAge parses search.file_age; zero means no freshness filter.
func (c *Config) FileAge() (time.Duration, error) {
	if c.Search.FileAge == "" {
		return 0, nil
	}
	return parsePositiveDuration("search.file_age", c.Search.FileAge)
}

// TargetDate parses date_search.target_date. ok is false when unset.
func (c *Config) TargetDate() (time.Time, bool, error) {
	if c.DateSearch.TargetDate == "" {
		return time.Time{}, false, nil
	}
	date, err := time.ParseInLocation("2006-01-02", c.DateSearch.TargetDate, time.Local)
	if err != nil {
		return time.Time{}, false, invalid(fmt.Sprintf("date_search.target_date %q must be YYYY-MM-DD", c.DateSearch.TargetDate))
	}
	return date, true, nil
}

// WatchDebounce parses manual.watch_debounce.
func (c *Config) WatchDebounce() (time.Duration, error) {
	return parsePositiveDuration("manual.watch_debounce", c.Manual.WatchDebounce)
}

// Spec maps the [processor] section onto a processor description.
func (p Processor) Spec() processors.Spec {
	return processors.Spec{
		Kind:              p.Kind,
		Command:           p.Command,
		Args:              append([]string(nil), p.Args...),
		Destination:       p.Destination,
		PreserveStructure: p.PreserveStructure,
		VerifyCopies:      p.VerifyCopies,
		ReportDir:         p.ReportDir,
		BatchSize:         p.BatchSize,
		Steps:             append([]string(nil), p.Steps...),
	}
}

// SearchConfig builds the validated search configuration. Literal search
// paths must exist on fs; a nil fs means the OS filesystem.
func (c *Config) SearchConfig(fs afero.Fs) (search.Configuration, error) {
	times, err := c.ScheduleTimes()
	if err != nil {
		return search.Configuration{}, err
	}
	retry, err := c.RetryInterval()
	if err != nil {
		return search.Configuration{}, err
	}

	b := search.NewBuilder().
		Filesystem(fs).
		AddSearchPaths(c.Search.Paths...).
		AddFileNames(c.Search.FileNames...).
		AddFilePatterns(c.Search.FilePatterns...).
		ClearExcludePatterns().
		ExcludePatterns(c.Search.ExcludePatterns...).
		ScheduleAt(times...).
		RetryEvery(retry).
		SearchUntilFound(c.Schedule.SearchUntilFound).
		IncludeSubdirectories(c.Search.IncludeSubdirectories).
		ManualExecution(c.Manual.Enabled, c.Manual.AllowMultiple)

	if cutoff, ok, err := c.StopSearchingAfter(); err != nil {
		return search.Configuration{}, err
	} else if ok {
		b.StopSearchingAfter(cutoff)
	}
	if c.Search.MaxFileSizeMB > 0 {
		b.MaxFileSizeMB(c.Search.MaxFileSizeMB)
	}
	age, err := c.FileAge()
	if err != nil {
		return search.Configuration{}, err
	}
	if age > 0 {
		b.OnlyFilesNewerThan(age)
	}
	if c.Schedule.ProcessOnAllSchedules {
		b.ProcessOnAllSchedules(true)
	} else {
		b.ProcessOncePerDay(c.Schedule.ProcessOncePerDay)
	}
	if c.DateSearch.Enabled {
		format, err := search.ParseDateFolderFormat(c.DateSearch.FolderFormat)
		if err != nil {
			return search.Configuration{}, invalid("date_search.folder_format: " + err.Error())
		}
		b.DateBasedSearch(format)
	}
	if date, ok, err := c.TargetDate(); err != nil {
		return search.Configuration{}, err
	} else if ok {
		b.TargetDate(date)
	}
	return b.Build()
}
