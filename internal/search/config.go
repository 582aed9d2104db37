package search

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// ErrInvalidConfig wraps every construction-time validation failure.
var ErrInvalidConfig = errors.New("invalid search configuration")

// DateTokenPrefix opens an embedded date placeholder such as {date:yyyy-MM-dd}.
const DateTokenPrefix = "{date:"

// DefaultExcludePatterns skips Office lock files and temp exports.
var DefaultExcludePatterns = []string{"~$*", "temp_*"}

const (
	DefaultRetryInterval = 30 * time.Minute
	bytesPerMB           = 1024 * 1024
)

// DateSearch configures date-folder discovery beneath each base path.
type DateSearch struct {
	Enabled      bool
	FolderFormat DateFolderFormat
	// TargetDate overrides "today" when set.
	TargetDate Optional[time.Time]
}

// Configuration is the validated search and scheduling description.
// Values returned by Builder.Build must be treated as read-only; use Clone
// before deriving a variant.
type Configuration struct {
	SearchPaths     []string
	FileNames       []string
	FilePatterns    []string
	ExcludePatterns []string

	ScheduledTimes     []TimeOfDay
	RetryInterval      time.Duration
	SearchUntilFound   bool
	StopSearchingAfter Optional[TimeOfDay]

	IncludeSubdirectories bool
	MaxFileSizeBytes      Optional[int64]
	// FileAge keeps only files modified within this window.
	FileAge Optional[time.Duration]

	ProcessOncePerDay     bool
	ProcessOnAllSchedules bool

	DateSearch DateSearch

	ManualExecutionEnabled        bool
	AllowMultipleManualExecutions bool
}

// Clone returns a deep copy.
func (c Configuration) Clone() Configuration {
	c.SearchPaths = slices.Clone(c.SearchPaths)
	c.FileNames = slices.Clone(c.FileNames)
	c.FilePatterns = slices.Clone(c.FilePatterns)
	c.ExcludePatterns = slices.Clone(c.ExcludePatterns)
	c.ScheduledTimes = slices.Clone(c.ScheduledTimes)
	return c
}

// WithSearchPaths returns a copy scoped to paths.
func (c Configuration) WithSearchPaths(paths []string) Configuration {
	out := c.Clone()
	out.SearchPaths = slices.Clone(paths)
	return out
}

// EffectiveDate returns the date-search target or now.
func (c Configuration) EffectiveDate(now time.Time) time.Time {
	return c.DateSearch.TargetDate.OrElse(now)
}

// RetryAllowedAt reports whether a retry may still be armed at now.
func (c Configuration) RetryAllowedAt(now time.Time) bool {
	cutoff, ok := c.StopSearchingAfter.Get()
	if !ok {
		return true
	}
	return TimeOfDayOf(now) <= cutoff
}

// HasDateToken reports whether path embeds a {date:...} placeholder.
func HasDateToken(path string) bool {
	return strings.Contains(path, DateTokenPrefix)
}

// DateTokenBase returns the portion of path before its first date token,
// trimmed of trailing separators.
func DateTokenBase(path string) string {
	idx := strings.Index(path, DateTokenPrefix)
	if idx < 0 {
		return path
	}
	return strings.TrimRight(path[:idx], `/\`)
}

// Validate checks the configuration against fs. Literal paths must exist;
// date-token paths and date-search bases are checked for syntax only because
// the concrete directory only appears at run time.
func (c Configuration) Validate(fs afero.Fs) error {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(c.SearchPaths) == 0 {
		return invalid("search.paths must contain at least one path")
	}
	for _, path := range c.SearchPaths {
		if err := validatePath(fs, path, c.DateSearch.Enabled); err != nil {
			return err
		}
	}
	if len(c.FileNames) == 0 && len(c.FilePatterns) == 0 {
		return invalid("search.file_names or search.file_patterns must be set")
	}
	if c.RetryInterval <= 0 {
		return invalid("schedule.retry_interval must be positive")
	}
	if len(c.ScheduledTimes) == 0 {
		return invalid("schedule.times must contain at least one time")
	}
	for i, t := range c.ScheduledTimes {
		if !t.Valid() {
			return invalid(fmt.Sprintf("schedule.times entry %s must be between 00:00:00 and 23:59:59", t.Clock()))
		}
		if i > 0 && c.ScheduledTimes[i-1] >= t {
			if c.ScheduledTimes[i-1] == t {
				return invalid(fmt.Sprintf("schedule.times contains duplicate %s", t))
			}
			return invalid("schedule.times must be sorted ascending")
		}
	}
	if cutoff, ok := c.StopSearchingAfter.Get(); ok && !cutoff.Valid() {
		return invalid("schedule.stop_searching_after must be a time of day")
	}
	if size, ok := c.MaxFileSizeBytes.Get(); ok && size <= 0 {
		return invalid("search.max_file_size must be positive")
	}
	if age, ok := c.FileAge.Get(); ok && age <= 0 {
		return invalid("search.file_age must be positive")
	}
	if c.ProcessOncePerDay && c.ProcessOnAllSchedules {
		return invalid("schedule.process_once_per_day and schedule.process_on_all_schedules are mutually exclusive")
	}
	if c.DateSearch.Enabled && !c.DateSearch.FolderFormat.Valid() {
		return invalid("date_search.folder_format is not supported")
	}
	return nil
}

func validatePath(fs afero.Fs, path string, dateMode bool) error {
	if strings.TrimSpace(path) == "" || strings.ContainsRune(path, 0) {
		return invalid(fmt.Sprintf("search path %q is invalid", path))
	}
	if dateMode || HasDateToken(path) {
		base := DateTokenBase(path)
		if base != "" && !filepath.IsAbs(base) {
			return invalid(fmt.Sprintf("search base path %q must be absolute", base))
		}
		return nil
	}
	if !filepath.IsAbs(path) {
		return invalid(fmt.Sprintf("search path %q must be absolute", path))
	}
	if ok, err := afero.DirExists(fs, path); err != nil || !ok {
		return invalid(fmt.Sprintf("search path %q does not exist", path))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
