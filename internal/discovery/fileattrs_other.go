//go:build !linux

package discovery

import (
	"os"

	"github.com/spf13/afero"
)

func enrich(_ afero.Fs, f *File, info os.FileInfo) {
	f.ReadOnly = info.Mode().Perm()&0o222 == 0
}
