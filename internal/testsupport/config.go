package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reportwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a valid config rooted in a per-test temp directory. The
// single search path <base>/reports exists and matches *.xlsx; notifications
// are off and the journal lives under <base>/state.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.SocketPath = filepath.Join(base, "state", "rw.sock")
	cfgVal.Search.Paths = []string{filepath.Join(base, "reports")}
	cfgVal.Search.FilePatterns = []string{"*.xlsx"}
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range append([]string{cfgVal.Paths.StateDir, cfgVal.Paths.LogDir}, cfgVal.Search.Paths...) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithSchedule replaces the configured schedule times.
func WithSchedule(times ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Schedule.Times = times
	}
}

// WithoutJournal disables the outcome journal.
func WithoutJournal() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// WithNtfyTopic points notifications at topic, typically an httptest URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithProcessor sets the processor section.
func WithProcessor(p config.Processor) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processor = p
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// ReportsDir returns the search directory created by NewConfig.
func ReportsDir(cfg *config.Config) string {
	return filepath.Join(BaseDir(cfg), "reports")
}
