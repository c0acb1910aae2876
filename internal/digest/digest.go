// Package digest computes the two content fingerprints the pipeline relies
// on: a full-file hash and a trailing (last 1 MiB) hash. Both are pure
// functions of file contents and are safe to call from many goroutines at
// once.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

const (
	// TrailingSize is the number of bytes hashed from the end of a file.
	TrailingSize = 1 << 20 // 1 MiB
	blockSize    = 64 * 1024
)

// Full streams the entire file through SHA-256 and returns the lowercase hex
// digest. ok is false on any I/O error, in which case the digest should be
// treated as absent rather than as a value to compare against.
func Full(path string) (hash string, ok bool) {
	return hashRange(path, 0, -1)
}

// Trailing hashes the last TrailingSize bytes of a file whose declared size
// is size. For size <= TrailingSize this hashes the whole file, making it
// bytewise equal to Full.
func Trailing(path string, size int64) (hash string, ok bool) {
	start := size - TrailingSize
	if start < 0 {
		start = 0
	}
	return hashRange(path, start, size-start)
}

// hashRange hashes n bytes starting at offset start. n < 0 means "to EOF".
func hashRange(path string, start, n int64) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer func() { _ = f.Close() }()

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			return "", false
		}
	}

	hasher := sha256.New()
	buf := make([]byte, blockSize)

	var reader io.Reader = f
	if n >= 0 {
		reader = io.LimitReader(f, n)
	}

	if _, err := io.CopyBuffer(hasher, reader, buf); err != nil {
		return "", false
	}

	return hex.EncodeToString(hasher.Sum(nil)), true
}
