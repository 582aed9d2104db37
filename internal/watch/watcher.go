// Package watch raises manual executions when matching files appear in the
// directories an attempt would scan.
package watch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"reportwatch/internal/discovery"
	"reportwatch/internal/logging"
	"reportwatch/internal/orchestrator"
	"reportwatch/internal/search"
)

// DefaultDebounce coalesces bursts of writes from a single export.
const DefaultDebounce = 5 * time.Second

// Target is the orchestrator surface the watcher drives.
type Target interface {
	TriggerManualExecution() error
	ResolvedDirectories() []string
}

// Watcher observes resolved search directories with fsnotify.
type Watcher struct {
	target   Target
	cfg      search.Configuration
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]struct{}
	timer   *time.Timer
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher. Call Start to begin observing.
func New(target Target, cfg search.Configuration, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if target == nil {
		return nil, errors.New("watch: target is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		target:   target,
		cfg:      cfg.Clone(),
		debounce: debounce,
		logger:   logging.NewComponentLogger(logger, "watch"),
		fsw:      fsw,
		watched:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the currently resolved directories and processes events in
// the background.
func (w *Watcher) Start() {
	w.Refresh()
	w.wg.Add(1)
	go w.loop()
}

// Refresh re-resolves the search directories, adding new ones and dropping
// those no longer resolved. Date-based paths move at midnight.
func (w *Watcher) Refresh() {
	wanted := make(map[string]struct{})
	for _, dir := range w.target.ResolvedDirectories() {
		for _, d := range w.expand(dir) {
			wanted[d] = struct{}{}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	for dir := range w.watched {
		if _, ok := wanted[dir]; !ok {
			_ = w.fsw.Remove(dir)
			delete(w.watched, dir)
		}
	}
	for dir := range wanted {
		if _, ok := w.watched[dir]; ok {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Debug("directory not watchable", logging.String("path", dir), logging.Error(err))
			continue
		}
		w.watched[dir] = struct{}{}
	}
	w.logger.Debug("watch set refreshed", logging.Int("directories", len(w.watched)))
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.watched))
	for dir := range w.watched {
		dirs = append(dirs, dir)
	}
	slices.Sort(dirs)
	return dirs
}

// RefreshOnAttempt re-resolves the watch set whenever an attempt starts. The
// returned function unsubscribes.
func (w *Watcher) RefreshOnAttempt(bus *orchestrator.Bus) func() {
	return bus.Subscribe(func(ev orchestrator.Event) {
		if ev.Kind == orchestrator.EventStarted {
			w.Refresh()
		}
	})
}

// Close stops the watcher and cancels any pending trigger.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) expand(dir string) []string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil
	}
	if !w.cfg.IncludeSubdirectories {
		return []string{dir}
	}
	var dirs []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(w.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "changes may be missed until the next scheduled run"),
			)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return
	}
	if ev.Has(fsnotify.Create) && w.cfg.IncludeSubdirectories {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.Refresh()
			return
		}
	}
	if !discovery.MatchesName(w.cfg, filepath.Base(ev.Name)) {
		return
	}
	w.logger.Debug("matching file changed", logging.String("path", ev.Name), logging.String("op", ev.Op.String()))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	err := w.target.TriggerManualExecution()
	switch {
	case err == nil:
		w.logger.Info("file change triggered manual execution", logging.String(logging.FieldEventType, "watch_triggered"))
	case errors.Is(err, orchestrator.ErrNotRunning):
		w.logger.Debug("file change ignored; orchestrator stopped")
	default:
		logging.WarnWithContext(w.logger, "file change trigger rejected", "watch_trigger_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "enable manual.enabled to react to file changes"),
		)
	}
}
