package config

import "reportwatch/internal/search"

const (
	defaultConfigPath           = "~/.config/reportwatch/config.toml"
	defaultStateDir             = "~/.local/share/reportwatch"
	defaultLogDir               = "~/.local/share/reportwatch/logs"
	defaultScheduleTime         = "08:00"
	defaultRetryInterval        = "30m"
	defaultFolderFormat         = "dd-MM-yyyy"
	defaultWatchDebounce        = "5s"
	defaultProcessorKind        = "log"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultJournalRetention     = 90
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Search: Search{
			ExcludePatterns: append([]string(nil), search.DefaultExcludePatterns...),
		},
		Schedule: Schedule{
			Times:             []string{defaultScheduleTime},
			RetryInterval:     defaultRetryInterval,
			SearchUntilFound:  true,
			ProcessOncePerDay: true,
		},
		DateSearch: DateSearch{
			FolderFormat: defaultFolderFormat,
		},
		Manual: Manual{
			Enabled:       true,
			WatchDebounce: defaultWatchDebounce,
		},
		Processor: Processor{
			Kind: defaultProcessorKind,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Found:          true,
			NotFound:       false,
			Retry:          false,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Journal: Journal{
			Enabled:       true,
			RetentionDays: defaultJournalRetention,
		},
	}
}
