package pathresolve

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"

	"reportwatch/internal/logging"
	"reportwatch/internal/search"
)

var dateTokenPattern = regexp.MustCompile(`\{date:([^}]+)\}`)

// Resolver turns path specifiers into existing directories.
type Resolver struct {
	fs     afero.Fs
	logger *slog.Logger
}

// New constructs a Resolver. A nil fs uses the OS filesystem.
func New(fs afero.Fs, logger *slog.Logger) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Resolver{
		fs:     fs,
		logger: logging.NewComponentLogger(logger, "pathresolve"),
	}
}

// Resolve expands every configured search path for date. Paths with date
// tokens are substituted; in date-search mode the remaining paths are treated
// as date-folder bases; otherwise they pass through when they exist. The
// result keeps input precedence and drops case-insensitive duplicates.
func (r *Resolver) Resolve(cfg search.Configuration, date time.Time) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(paths ...string) {
		for _, p := range paths {
			key := search.FoldKey(p)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}

	for _, path := range cfg.SearchPaths {
		switch {
		case search.HasDateToken(path):
			if expanded, ok := r.ExpandDateToken(path, date); ok {
				add(expanded)
			} else {
				r.logger.Debug("date token path not present",
					logging.String("path", path),
					logging.String("date", date.Format("2006-01-02")),
				)
			}
		case cfg.DateSearch.Enabled:
			matches := r.ResolveDateFolders(path, cfg.DateSearch.FolderFormat, date)
			if len(matches) == 0 {
				r.logger.Info("no date folders found",
					logging.String("base", path),
					logging.String("format", cfg.DateSearch.FolderFormat.String()),
				)
			}
			add(matches...)
		default:
			if r.dirExists(path) {
				add(path)
			}
		}
	}
	return out
}

// ExpandDateToken substitutes every {date:<layout>} token in path. ok is false
// when the substituted directory does not exist.
func (r *Resolver) ExpandDateToken(path string, date time.Time) (string, bool) {
	expanded := SubstituteDateTokens(path, date)
	if !r.dirExists(expanded) {
		return expanded, false
	}
	return expanded, true
}

// SubstituteDateTokens replaces each {date:<layout>} token with date rendered
// in that layout, without touching the filesystem.
func SubstituteDateTokens(path string, date time.Time) string {
	return dateTokenPattern.ReplaceAllStringFunc(path, func(token string) string {
		m := dateTokenPattern.FindStringSubmatch(token)
		return FormatDate(date, m[1])
	})
}

// ResolveDateFolders lists immediate subdirectories of base whose name is the
// target date in format, or contains a date in that format equal to the target.
func (r *Resolver) ResolveDateFolders(base string, format search.DateFolderFormat, date time.Time) []string {
	entries, err := afero.ReadDir(r.fs, base)
	if err != nil {
		r.logger.Debug("date folder base unreadable",
			logging.String("base", base),
			logging.Error(err),
		)
		return nil
	}
	want := format.Format(date)
	var out []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.EqualFold(name, want) {
			out = append(out, filepath.Join(base, name))
			continue
		}
		if extracted, ok := format.Extract(name); ok && search.SameDay(extracted, date) {
			out = append(out, filepath.Join(base, name))
		}
	}
	return out
}

// FindDateFoldersInRange resolves date folders for every day in [from, to],
// in date order and without duplicates.
func (r *Resolver) FindDateFoldersInRange(base string, format search.DateFolderFormat, from, to time.Time) []string {
	if !r.dirExists(base) {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	last := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, from.Location())
	for !day.After(last) {
		for _, match := range r.ResolveDateFolders(base, format, day) {
			if _, ok := seen[match]; ok {
				continue
			}
			seen[match] = struct{}{}
			out = append(out, match)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func (r *Resolver) dirExists(path string) bool {
	ok, err := afero.DirExists(r.fs, path)
	return err == nil && ok
}
