package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"reportwatch/internal/clock"
	"reportwatch/internal/config"
	"reportwatch/internal/discovery"
	"reportwatch/internal/journal"
	"reportwatch/internal/logging"
	"reportwatch/internal/notifications"
	"reportwatch/internal/orchestrator"
	"reportwatch/internal/processors"
	"reportwatch/internal/watch"
)

var (
	// ErrAlreadyRunning is returned by Start when triggers are already armed.
	ErrAlreadyRunning = errors.New("daemon already running")
	// ErrLocked means another process holds the state directory lock.
	ErrLocked = errors.New("another reportwatch daemon instance is already running")
	// ErrJournalDisabled is returned by History when journal.enabled is false.
	ErrJournalDisabled = errors.New("outcome journal is disabled")
)

// Options overrides collaborators, mostly for tests.
type Options struct {
	Fs      afero.Fs
	Clock   clock.Clock
	Process orchestrator.ProcessFunc
	LogPath string
}

// Daemon coordinates the orchestrator and its sinks and enforces
// single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *orchestrator.Orchestrator
	logPath string

	journal    *journal.Store
	notifier   notifications.Service
	sink       *notifications.Sink
	watcher    *watch.Watcher
	detachers  []func()
	watchArmed bool

	lockPath string
	lock     *flock.Flock

	mu sync.Mutex
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	State          orchestrator.State
	NextExecution  time.Time
	NextRetry      time.Time
	ProcessedToday int
	SchedulesToday int
	Watching       []string
	LockPath       string
	JournalPath    string
	LogPath        string
}

// New builds a daemon from cfg. The search configuration is validated
// here, so a bad config fails before anything is started.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	searchCfg, err := cfg.SearchConfig(opts.Fs)
	if err != nil {
		return nil, err
	}
	process := opts.Process
	if process == nil {
		process, err = processors.Build(cfg.Processor.Spec(), logger)
		if err != nil {
			return nil, err
		}
	}

	bus := orchestrator.NewBus(logger)
	orch, err := orchestrator.New(orchestrator.Options{
		Config:  searchCfg,
		Process: process,
		Fs:      opts.Fs,
		Clock:   opts.Clock,
		Bus:     bus,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		orch:     orch,
		logPath:  opts.LogPath,
		notifier: notifications.NewService(cfg),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.sink = notifications.Attach(bus, d.notifier, logger)

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.JournalPath())
		if err != nil {
			d.sink.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		d.journal = store
		d.detachers = append(d.detachers, journal.Attach(bus, store, logger))
	}

	if cfg.Manual.WatchChanges {
		debounce, err := cfg.WatchDebounce()
		if err != nil {
			_ = d.Close()
			return nil, err
		}
		w, err := watch.New(orch, searchCfg, debounce, logger)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("create change watcher: %w", err)
		}
		d.watcher = w
		d.detachers = append(d.detachers, w.RefreshOnAttempt(bus))
	}
	return d, nil
}

// Start acquires the daemon lock and arms the orchestrator's triggers.
func (d *Daemon) Start(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.orch.IsRunning() {
		return ErrAlreadyRunning
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}

	if err := d.orch.Start(); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if d.watcher != nil && !d.watchArmed {
		d.watcher.Start()
		d.watchArmed = true
	}
	d.pruneJournal()

	d.logger.Info("reportwatch daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop disarms triggers and releases the daemon lock. An attempt already in
// progress is allowed to finish.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.orch.IsRunning() {
		return
	}
	d.orch.Stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
		)
	}
	d.logger.Info("reportwatch daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and releases every resource it owns.
func (d *Daemon) Close() error {
	d.Stop()
	d.orch.Wait()
	var errs []error
	if d.watcher != nil {
		errs = append(errs, d.watcher.Close())
	}
	for _, detach := range d.detachers {
		detach()
	}
	d.detachers = nil
	if d.sink != nil {
		d.sink.Close()
	}
	if d.journal != nil {
		errs = append(errs, d.journal.Close())
	}
	return errors.Join(errs...)
}

// Orchestrator exposes the underlying orchestrator.
func (d *Daemon) Orchestrator() *orchestrator.Orchestrator { return d.orch }

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string { return d.logPath }

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	stats := d.orch.DailyStats()
	status := Status{
		Running:        stats.Running,
		PID:            os.Getpid(),
		State:          stats.State,
		ProcessedToday: stats.ProcessedFilesToday,
		SchedulesToday: stats.ScheduledExecutionsToday,
		LockPath:       d.lockPath,
		LogPath:        d.logPath,
	}
	status.NextExecution, _ = stats.NextExecution.Get()
	status.NextRetry, _ = stats.NextRetry.Get()
	if d.journal != nil {
		status.JournalPath = d.journal.Path()
	}
	if d.watcher != nil {
		status.Watching = d.watcher.Watched()
	}
	return status
}

// Stats returns today's orchestrator statistics.
func (d *Daemon) Stats() orchestrator.DailyStats {
	return d.orch.DailyStats()
}

// Trigger raises the manual signal without waiting for the attempt.
func (d *Daemon) Trigger() error {
	return d.orch.TriggerManualExecution()
}

// Execute runs a manual attempt and waits for its outcome.
func (d *Daemon) Execute(ctx context.Context) orchestrator.Outcome {
	return d.orch.ExecuteManually(ctx)
}

// ProcessNow runs an immediate attempt that ignores the schedule skip policy.
func (d *Daemon) ProcessNow(ctx context.Context) orchestrator.Outcome {
	return d.orch.ProcessNow(ctx)
}

// Search discovers files without processing them.
func (d *Daemon) Search(ctx context.Context, paths []string) []discovery.File {
	return d.orch.SearchNow(ctx, paths...)
}

// History returns the newest journal entries.
func (d *Daemon) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if d.journal == nil {
		return nil, ErrJournalDisabled
	}
	return d.journal.List(ctx, limit)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) pruneJournal() {
	if d.journal == nil || d.cfg.Journal.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -d.cfg.Journal.RetentionDays)
	removed, err := d.journal.Prune(context.Background(), cutoff)
	if err != nil {
		logging.WarnWithContext(d.logger, "journal prune failed", "journal_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old history entries are kept"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("journal pruned",
			logging.Int64("removed", removed),
			logging.Int("retention_days", d.cfg.Journal.RetentionDays),
		)
	}
}
