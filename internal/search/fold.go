package search

import (
	"path/filepath"

	"golang.org/x/text/cases"
)

// FoldKey returns the case-insensitive identity of a path.
// A fresh Caser is used per call because Casers are stateful.
func FoldKey(path string) string {
	return cases.Fold().String(filepath.Clean(path))
}

// FoldName case-folds a file name or glob pattern.
func FoldName(name string) string {
	return cases.Fold().String(name)
}
