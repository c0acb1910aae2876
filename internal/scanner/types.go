package scanner

import (
	"os"
	"syscall"
)

// direntKey returns the (dev, ino) pair backing a stat result, used to
// dedupe directories reached through more than one symlink. ok is false if
// the platform's os.FileInfo.Sys() does not expose a syscall.Stat_t.
func direntKey(info os.FileInfo) (key [2]uint64, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}
	return [2]uint64{uint64(stat.Dev), stat.Ino}, true //nolint:unconvert // platform-dependent type
}
