package discovery

import (
	"path/filepath"
	"strings"
	"time"

	"reportwatch/internal/search"
)

// File is a metadata snapshot of one discovered file.
type File struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Dir        string    `json:"dir"`
	Extension  string    `json:"extension"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	AccessedAt time.Time `json:"accessed_at"`
	ReadOnly   bool      `json:"read_only"`
}

// ProcessingKey identifies this revision of the file: the case-folded path
// plus the modification time truncated to the second. A rewrite that keeps
// the same mtime second yields the same key.
func (f File) ProcessingKey() string {
	return search.FoldKey(f.Path) + "|" + f.ModifiedAt.Format("20060102150405")
}

// TotalSize sums the sizes of files.
func TotalSize(files []File) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

func newFile(path string, size int64, modified time.Time) File {
	return File{
		Path:       path,
		Name:       filepath.Base(path),
		Dir:        filepath.Dir(path),
		Extension:  strings.ToLower(filepath.Ext(path)),
		Size:       size,
		ModifiedAt: modified,
		CreatedAt:  modified,
		AccessedAt: modified,
	}
}
