//go:build linux

package pipeline

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// preferredTimestamp tries statx(2) for STATX_BTIME, which the kernel and
// filesystem may or may not actually populate; when unavailable it falls
// back to modification time, matching the open design question in the
// original implementation (macOS birthtime has no universal Linux
// equivalent).
func preferredTimestamp(path string, info os.FileInfo) time.Time {
	fallback := info.ModTime()

	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, path, 0, unix.STATX_BTIME, &stx); err != nil {
		return fallback
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return fallback
	}
	bt := time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	if bt.Unix() <= 0 {
		return fallback
	}
	return bt
}
