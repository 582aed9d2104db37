//go:build linux

package discovery

import (
	"os"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// enrich fills timestamps and the read-only flag from the OS when the
// filesystem is backed by the real disk. Other filesystems keep the
// portable values derived from os.FileInfo.
func enrich(fs afero.Fs, f *File, info os.FileInfo) {
	f.ReadOnly = info.Mode().Perm()&0o222 == 0
	if _, ok := fs.(*afero.OsFs); !ok {
		return
	}
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, f.Path, 0, unix.STATX_ATIME|unix.STATX_BTIME|unix.STATX_CTIME, &stx); err == nil {
		f.AccessedAt = statxTime(stx.Atime)
		if stx.Mask&unix.STATX_BTIME != 0 {
			f.CreatedAt = statxTime(stx.Btime)
		} else {
			f.CreatedAt = statxTime(stx.Ctime)
		}
	}
	f.ReadOnly = unix.Access(f.Path, unix.W_OK) != nil
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}
