// Package daemonrun hosts the daemon in the foreground: logging setup, pid
// file, IPC server, and signal handling.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"reportwatch/internal/config"
	"reportwatch/internal/daemon"
	"reportwatch/internal/ipc"
	"reportwatch/internal/logging"
	"reportwatch/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Stdout disables the console handler when false; the per-run JSON log
	// file is always written.
	Stdout bool
}

// Run starts the daemon and blocks until ctx is canceled or the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("reportwatch-%s.log", runID))
	logger, err := buildLogger(cfg, opts, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update reportwatch.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "reportwatch-*.log", Keep: []string{logPath}},
	)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	d, err := daemon.New(cfg, logger, daemon.Options{LogPath: logPath})
	if err != nil {
		logger.Error("daemon setup failed", logging.Error(err))
		return err
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.Paths.SocketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrLocked) {
			return err
		}
		logging.WarnWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the configuration and state directory"),
			logging.String(logging.FieldImpact, "scheduled searches will not run until started"),
		)
	}

	logConfigSnapshot(logger, cfg, logPath)
	logPreflight(signalCtx, logger, cfg)
	<-signalCtx.Done()
	logger.Info("reportwatch daemon shutting down")
	return nil
}

func buildLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	fileHandler, err := logging.NewHandler(logging.Options{
		Level:       level,
		Format:      "json",
		OutputPaths: []string{logPath},
		Development: opts.Development,
	})
	if err != nil {
		return nil, err
	}
	var consoleHandler slog.Handler
	if opts.Stdout {
		consoleHandler, err = logging.NewHandler(logging.Options{
			Level:       level,
			Format:      cfg.Logging.Format,
			OutputPaths: []string{"stdout"},
			Development: opts.Development,
		})
		if err != nil {
			return nil, err
		}
	}
	return slog.New(logging.TeeHandler(consoleHandler, fileHandler)), nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "reportwatch.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config, logPath string) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.Int("search_paths", len(cfg.Search.Paths)),
		logging.Any("schedule_times", cfg.Schedule.Times),
		logging.String("retry_interval", cfg.Schedule.RetryInterval),
		logging.Bool("search_until_found", cfg.Schedule.SearchUntilFound),
		logging.Bool("date_search", cfg.DateSearch.Enabled),
		logging.String("processor", cfg.Processor.Kind),
		logging.Bool("journal", cfg.Journal.Enabled),
		logging.Bool("watch_changes", cfg.Manual.WatchChanges),
		logging.Bool("notifications", cfg.Notifications.NtfyTopic != ""),
		logging.String("log_path", logPath),
	)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, r := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String(logging.FieldErrorHint, r.Detail),
			logging.String(logging.FieldImpact, "attempts touching this resource may fail"),
		)
	}
}
