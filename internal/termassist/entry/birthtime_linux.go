//go:build linux

package entry

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime asks statx for the creation time. Kernels and filesystems that do
// not record it leave STATX_BTIME out of the returned mask.
func birthTime(path string, _ fs.FileInfo) *time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err != nil {
		return nil
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return nil
	}
	return timePtr(time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)))
}
