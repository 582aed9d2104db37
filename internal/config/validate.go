package config

import (
	"fmt"
	"time"

	"reportwatch/internal/processors"
	"reportwatch/internal/search"
)

// Validate checks that every value parses. Search paths are not checked here;
// SearchConfig validates them against a filesystem.
func (c *Config) Validate() error {
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateDateSearch(); err != nil {
		return err
	}
	if err := c.validateManual(); err != nil {
		return err
	}
	if _, err := processors.Build(c.Processor.Spec(), nil); err != nil {
		return invalid(err.Error())
	}
	if c.Notifications.RequestTimeout <= 0 {
		return invalid("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if len(c.Schedule.Times) == 0 {
		return invalid("schedule.times must contain at least one time")
	}
	if _, err := c.ScheduleTimes(); err != nil {
		return err
	}
	if _, err := c.RetryInterval(); err != nil {
		return err
	}
	if _, _, err := c.StopSearchingAfter(); err != nil {
		return err
	}
	if c.Schedule.ProcessOncePerDay && c.Schedule.ProcessOnAllSchedules {
		return invalid("schedule.process_once_per_day and schedule.process_on_all_schedules cannot both be true")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.MaxFileSizeMB < 0 {
		return invalid("search.max_file_size_mb must be >= 0")
	}
	if _, err := c.FileAge(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDateSearch() error {
	if _, err := search.ParseDateFolderFormat(c.DateSearch.FolderFormat); err != nil {
		return invalid("date_search.folder_format: " + err.Error())
	}
	if _, _, err := c.TargetDate(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateManual() error {
	if !c.Manual.WatchChanges {
		return nil
	}
	if _, err := c.WatchDebounce(); err != nil {
		return err
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", search.ErrInvalidConfig, msg)
}

func parsePositiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, invalid(fmt.Sprintf("%s %q is not a duration", key, value))
	}
	if d <= 0 {
		return 0, invalid(key + " must be positive")
	}
	return d, nil
}
