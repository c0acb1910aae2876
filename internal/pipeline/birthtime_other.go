//go:build !darwin && !linux

package pipeline

import (
	"os"
	"time"
)

// preferredTimestamp falls back to modification time on platforms with no
// birth-time support wired up here.
func preferredTimestamp(path string, info os.FileInfo) time.Time {
	return info.ModTime()
}
