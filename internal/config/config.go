package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"reportwatch/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Search selects which files are discovered.
type Search struct {
	Paths                 []string `toml:"paths"`
	FileNames             []string `toml:"file_names"`
	FilePatterns          []string `toml:"file_patterns"`
	ExcludePatterns       []string `toml:"exclude_patterns"`
	IncludeSubdirectories bool     `toml:"include_subdirectories"`
	MaxFileSizeMB         int64    `toml:"max_file_size_mb"`
	// FileAge is a Go duration such as "72h"; empty disables the filter.
	FileAge string `toml:"file_age"`
}

// Schedule controls when attempts run and how they retry.
type Schedule struct {
	Times                 []string `toml:"times"`
	RetryInterval         string   `toml:"retry_interval"`
	SearchUntilFound      bool     `toml:"search_until_found"`
	StopSearchingAfter    string   `toml:"stop_searching_after"`
	ProcessOncePerDay     bool     `toml:"process_once_per_day"`
	ProcessOnAllSchedules bool     `toml:"process_on_all_schedules"`
}

// DateSearch configures date-named folder discovery.
type DateSearch struct {
	Enabled      bool   `toml:"enabled"`
	FolderFormat string `toml:"folder_format"`
	TargetDate   string `toml:"target_date"` // YYYY-MM-DD, empty means today
}

// Manual controls out-of-schedule execution.
type Manual struct {
	Enabled       bool   `toml:"enabled"`
	AllowMultiple bool   `toml:"allow_multiple"`
	WatchChanges  bool   `toml:"watch_changes"`
	WatchDebounce string `toml:"watch_debounce"`
}

// Processor selects the built-in processing routine.
type Processor struct {
	Kind              string   `toml:"kind"`
	Command           string   `toml:"command"`
	Args              []string `toml:"args"`
	Destination       string   `toml:"destination"`
	PreserveStructure bool     `toml:"preserve_structure"`
	VerifyCopies      bool     `toml:"verify_copies"`
	ReportDir         string   `toml:"report_dir"`
	BatchSize         int      `toml:"batch_size"`
	Steps             []string `toml:"steps"`
}

// Paths contains daemon state locations.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	SocketPath string `toml:"socket_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Found          bool   `toml:"found"`
	NotFound       bool   `toml:"not_found"`
	Retry          bool   `toml:"retry"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Journal controls the outcome history database.
type Journal struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Config encapsulates all configuration values for reportwatch.
type Config struct {
	Search        Search        `toml:"search"`
	Schedule      Schedule      `toml:"schedule"`
	DateSearch    DateSearch    `toml:"date_search"`
	Manual        Manual        `toml:"manual"`
	Processor     Processor     `toml:"processor"`
	Paths         Paths         `toml:"paths"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Journal       Journal       `toml:"journal"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// yields defaults. The returned config has all path fields expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Save writes cfg as TOML to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("save config: nil config")
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reportwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the daemon's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "reportwatch.lock")
}

// PIDPath is where the foreground runner records its pid.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "reportwatch.pid")
}

// JournalPath is the outcome journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
