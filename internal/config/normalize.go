package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSearch(); err != nil {
		return err
	}
	c.normalizeSchedule()
	if err := c.normalizeProcessor(); err != nil {
		return err
	}
	c.normalizeLogging()
	if c.Journal.RetentionDays < 0 {
		c.Journal.RetentionDays = 0
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.StateDir, "reportwatch.sock")
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

// Search paths may hold {date:...} tokens, so only the home shortcut is
// expanded; the path is otherwise left as written.
func (c *Config) normalizeSearch() error {
	paths := make([]string, 0, len(c.Search.Paths))
	for _, p := range c.Search.Paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "~") {
			expanded, err := expandPath(p)
			if err != nil {
				return fmt.Errorf("search.paths: %w", err)
			}
			p = expanded
		}
		paths = append(paths, p)
	}
	c.Search.Paths = paths
	c.Search.FileNames = trimAll(c.Search.FileNames)
	c.Search.FilePatterns = trimAll(c.Search.FilePatterns)
	c.Search.ExcludePatterns = trimAll(c.Search.ExcludePatterns)
	c.Search.FileAge = strings.TrimSpace(c.Search.FileAge)
	return nil
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Times = trimAll(c.Schedule.Times)
	c.Schedule.RetryInterval = strings.TrimSpace(c.Schedule.RetryInterval)
	if c.Schedule.RetryInterval == "" {
		c.Schedule.RetryInterval = defaultRetryInterval
	}
	c.Schedule.StopSearchingAfter = strings.TrimSpace(c.Schedule.StopSearchingAfter)
	c.DateSearch.FolderFormat = strings.TrimSpace(c.DateSearch.FolderFormat)
	if c.DateSearch.FolderFormat == "" {
		c.DateSearch.FolderFormat = defaultFolderFormat
	}
	c.DateSearch.TargetDate = strings.TrimSpace(c.DateSearch.TargetDate)
	c.Manual.WatchDebounce = strings.TrimSpace(c.Manual.WatchDebounce)
	if c.Manual.WatchDebounce == "" {
		c.Manual.WatchDebounce = defaultWatchDebounce
	}
}

func (c *Config) normalizeProcessor() error {
	var err error
	c.Processor.Kind = strings.ToLower(strings.TrimSpace(c.Processor.Kind))
	if c.Processor.Kind == "" {
		c.Processor.Kind = defaultProcessorKind
	}
	c.Processor.Command = strings.TrimSpace(c.Processor.Command)
	if c.Processor.Destination, err = expandPath(strings.TrimSpace(c.Processor.Destination)); err != nil {
		return fmt.Errorf("processor.destination: %w", err)
	}
	if c.Processor.ReportDir, err = expandPath(strings.TrimSpace(c.Processor.ReportDir)); err != nil {
		return fmt.Errorf("processor.report_dir: %w", err)
	}
	steps := trimAll(c.Processor.Steps)
	for i := range steps {
		steps[i] = strings.ToLower(steps[i])
	}
	c.Processor.Steps = steps
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
