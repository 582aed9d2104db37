package discovery

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"reportwatch/internal/logging"
	"reportwatch/internal/search"
)

// Discoverer finds candidate files inside resolved directories.
type Discoverer struct {
	fs     afero.Fs
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Discoverer.
type Option func(*Discoverer)

// WithNow overrides the time source used by the freshness filter.
func WithNow(now func() time.Time) Option {
	return func(d *Discoverer) {
		if now != nil {
			d.now = now
		}
	}
}

// New constructs a Discoverer over fsys. A nil fsys uses the OS filesystem.
func New(fsys afero.Fs, logger *slog.Logger, opts ...Option) *Discoverer {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	d := &Discoverer{
		fs:     fsys,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "discovery"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover scans dirs for files matching cfg's names or patterns and returns
// the filtered, path-deduplicated result. Order is unspecified.
func (d *Discoverer) Discover(ctx context.Context, cfg search.Configuration, dirs []string) []File {
	matcher := newMatcher(cfg.FileNames, cfg.FilePatterns)
	seen := make(map[string]struct{})
	var found []File
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		for _, f := range d.scan(ctx, dir, cfg.IncludeSubdirectories, matcher) {
			key := search.FoldKey(f.Path)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			found = append(found, f)
		}
	}
	filtered := Filter(found, cfg, d.now())
	d.logger.Debug("discovery finished",
		logging.Int("directories", len(dirs)),
		logging.Int("matched", len(found)),
		logging.Int("kept", len(filtered)),
	)
	return filtered
}

func (d *Discoverer) scan(ctx context.Context, dir string, recursive bool, m matcher) []File {
	var out []File
	visit := func(path string, info os.FileInfo) {
		if info == nil || !info.Mode().IsRegular() || !m.matches(info.Name()) {
			return
		}
		f := newFile(path, info.Size(), info.ModTime())
		enrich(d.fs, &f, info)
		out = append(out, f)
	}

	if !recursive {
		entries, err := afero.ReadDir(d.fs, dir)
		if err != nil {
			d.skipped(dir, err)
			return nil
		}
		for _, info := range entries {
			visit(filepath.Join(dir, info.Name()), info)
		}
		return out
	}

	_ = afero.Walk(d.fs, dir, func(path string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			d.skipped(path, err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		visit(path, info)
		return nil
	})
	return out
}

func (d *Discoverer) skipped(path string, err error) {
	level := slog.LevelDebug
	if !errors.Is(err, fs.ErrNotExist) {
		level = slog.LevelWarn
	}
	d.logger.Log(context.Background(), level, "directory skipped",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldEventType, "discovery_dir_skipped"),
	)
}
