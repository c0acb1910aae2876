// Package photomanager is the public facade over the photo-library
// duplicate-detection engine: discovery, grouping, staged content
// fingerprinting, and a persistent hash cache, all behind a single Scan
// call.
package photomanager

import (
	"context"

	"go.uber.org/zap"

	"github.com/dwetterau/photo-manager/internal/cache"
	"github.com/dwetterau/photo-manager/internal/pipeline"
	"github.com/dwetterau/photo-manager/internal/progress"
	"github.com/dwetterau/photo-manager/internal/types"
)

// Re-exported so callers never need to import the internal packages
// directly.
type (
	PhotoRecord  = types.PhotoRecord
	RelatedFile  = types.RelatedFile
	ScanProgress = types.ScanProgress
)

// ProgressSink receives ScanProgress events during a scan. It may be nil.
// A sink that blocks slows the scan; a sink that panics is the caller's
// bug, not the scan's.
type ProgressSink = progress.Sink

// Scanner owns the long-lived hash cache connection and runs scans against
// it. The cache is the only process-wide resource with a lifecycle beyond
// a single scan: open it once per process, close it at shutdown.
type Scanner struct {
	cache  *cache.Cache
	logger *zap.Logger
}

// Open opens the persistent hash cache at the default location
// (<user-config-dir>/photo-manager/hash_cache.db) and returns a Scanner
// ready to run scans against it. A failure to open the cache is logged and
// otherwise ignored; the returned Scanner falls back to an always-miss
// cache so a missing or unwritable config dir never blocks scanning.
func Open(logger *zap.Logger) (*Scanner, error) {
	path, err := cache.DefaultPath()
	if err != nil {
		path = "" // disabled cache; still a usable Scanner
	}
	c, err := cache.Open(path)
	if err != nil && logger != nil {
		logger.Warn("hash cache unavailable, falling back to always-miss", zap.Error(err))
	}
	return &Scanner{cache: c, logger: logger}, nil
}

// Close releases the Scanner's cache connection.
func (s *Scanner) Close() error {
	return s.cache.Close()
}

// Scan walks directories, groups related files, and identifies duplicates,
// emitting ScanProgress events to sink as it goes. It is safe to call from
// a dedicated blocking goroutine while the caller's own event loop keeps
// running; it is not safe to call concurrently with another Scan on
// the same Scanner, since the cache is single-writer.
//
// ctx is honored between phases and between individual hashing jobs; a
// cache write for a given path is always either complete or never
// attempted, never torn.
func (s *Scanner) Scan(ctx context.Context, directories []string, sink ProgressSink) ([]PhotoRecord, error) {
	return pipeline.Run(ctx, directories, pipeline.Options{
		Cache:  s.cache,
		Sink:   sink,
		Logger: s.logger,
	})
}

// Scan is a convenience entry point for callers that do not need a
// persistent cache across repeated calls: it opens the default cache,
// runs one scan, and closes the cache again.
func Scan(ctx context.Context, directories []string, sink ProgressSink) ([]PhotoRecord, error) {
	s, err := Open(nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = s.Close() }()
	return s.Scan(ctx, directories, sink)
}
