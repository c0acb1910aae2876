// Package scanner provides parallel filesystem discovery for the photo
// pipeline.
//
// # Architecture Overview
//
// The scanner uses a concurrent fan-out/fan-in architecture to efficiently
// traverse directory trees while respecting system resource limits.
//
// # Concurrency Model
//
// The scanner employs three concurrent components:
//
//  1. WALKER GOROUTINES (fan-out)
//     - One goroutine spawned per directory discovered
//     - Concurrency limited by semaphore (walkerSem)
//     - Each walker: acquires semaphore → lists directory → sends files → spawns child walkers → releases semaphore
//
//  2. COLLECTOR GOROUTINE (fan-in)
//     - Single goroutine that drains resultCh into a slice
//     - Provides the aggregation point for all walker outputs
//
//  3. MAIN GOROUTINE (orchestrator)
//     - Initializes channels and spawns each root's walker in input order
//     - Waits for that root's walkers (walkerWg.Wait) before the next root
//     - Closes resultCh to signal collector
//     - Waits for collector (collectorWg.Wait)
//
// # Synchronization Primitives
//
//	┌─────────────────┬────────────────────────────────────────────────┐
//	│ Primitive       │ Purpose                                        │
//	├─────────────────┼────────────────────────────────────────────────┤
//	│ walkerSem       │ Limits concurrent directory reads (backpressure)│
//	│ walkerWg        │ Tracks active walker goroutines                │
//	│ collectorWg     │ Signals collector goroutine completion         │
//	│ resultCh        │ Buffered channel for matched files (fan-in)    │
//	└─────────────────┴────────────────────────────────────────────────┘
//
// Unlike a min-size/exclude-pattern filtering walker, this scanner's only
// job is to produce the flat list of paths under each root: symlinks are
// followed (not skipped), and every regular file reached this way is
// reported. Classification into photo/raw/sidecar happens one layer up, in
// internal/grouper.
package scanner

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dwetterau/photo-manager/internal/types"
)

// Scanner discovers file paths under a set of root directories using
// parallel directory traversal. Designed for single use: create with New,
// call Run once.
type Scanner struct {
	roots   []string
	workers int
	onError func(error)

	walkerWg  sync.WaitGroup
	walkerSem types.Semaphore
	resultCh  chan string
	seen      sync.Map // dedupes paths reached via more than one symlink
}

// New creates a Scanner over roots, discovering files with at most workers
// directories read concurrently. onError, if non-nil, receives every
// skipped-directory error; it is invoked from arbitrary goroutines and must
// not block.
func New(roots []string, workers int, onError func(error)) *Scanner {
	return &Scanner{roots: roots, workers: workers, onError: onError}
}

// Run walks every root and returns the discovered file paths. Missing
// roots are skipped silently; directory order follows input order, but
// intra-directory order follows the underlying walker (no sort guarantee).
func (s *Scanner) Run() []string {
	s.walkerSem = types.NewSemaphore(s.workers)
	s.resultCh = make(chan string, 1000)

	var results []string
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for p := range s.resultCh {
			results = append(results, p)
		}
	}()

	for _, root := range s.roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			s.sendError(err)
			continue
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			// Missing root: skipped, other roots proceed.
			continue
		}
		// Each root is walked with a fresh cycle guard seeded with the root
		// itself, so a symlink back to the root is not followed, while
		// overlapping roots are still each walked in full.
		s.seen.Clear()
		s.dedupedSubdir(absRoot, info)
		s.walkDirectory(absRoot)
		s.walkerWg.Wait()
	}

	s.walkerWg.Wait()
	close(s.resultCh)
	collectorWg.Wait()

	return results
}

// walkDirectory spawns a goroutine to process one directory and
// recursively spawn children, following symlinked subdirectories.
func (s *Scanner) walkDirectory(dir string) {
	s.walkerWg.Add(1)
	go func() {
		defer s.walkerWg.Done()

		s.walkerSem.Acquire()
		defer s.walkerSem.Release()

		files, subdirs, err := s.listDirectory(dir)
		if err != nil {
			s.sendError(err)
			return
		}

		for _, f := range files {
			s.resultCh <- f
		}

		for _, sub := range subdirs {
			s.walkDirectory(sub)
		}
	}()
}

// listDirectory reads a single directory, returning files and
// subdirectories. Symlinks are resolved (via Stat, not Lstat) so the walk
// descends through symlinked directories and reports symlinked files.
func (s *Scanner) listDirectory(dirPath string) (files []string, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	// Batch reading: ReadDir(n) returns up to n entries at a time, bounding
	// memory when listing directories with very many files.
	const batchSize = 1000
	for {
		entries, err := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if err != nil && err != io.EOF {
				return files, subdirs, err
			}
			break
		}

		for _, entry := range entries {
			fullPath := filepath.Join(dirPath, entry.Name())
			file, sub := s.processEntry(fullPath, entry)
			if file != "" {
				files = append(files, file)
			}
			if sub != "" {
				subdirs = append(subdirs, sub)
			}
		}
	}

	return files, subdirs, nil
}

// processEntry classifies one directory entry, resolving symlinks so they
// are followed rather than skipped. Returns ("", "") for entries that
// cannot be stat'd (permission errors, broken symlinks, races).
func (s *Scanner) processEntry(fullPath string, entry os.DirEntry) (file, subdir string) {
	info := entry
	var statInfo os.FileInfo

	if entry.Type()&os.ModeSymlink != 0 {
		resolved, err := os.Stat(fullPath)
		if err != nil {
			return "", "" // broken symlink: skipped silently
		}
		statInfo = resolved
	} else {
		fi, err := info.Info()
		if err != nil {
			return "", ""
		}
		statInfo = fi
	}

	if statInfo.IsDir() {
		return "", s.dedupedSubdir(fullPath, statInfo)
	}
	if statInfo.Mode().IsRegular() {
		return fullPath, ""
	}
	return "", ""
}

// dedupedSubdir guards against symlink cycles by keying on the resolved
// (dev, ino) pair instead of the path, so a symlink loop is walked at most
// once.
func (s *Scanner) dedupedSubdir(path string, info os.FileInfo) string {
	key, ok := direntKey(info)
	if !ok {
		return path
	}
	if _, loaded := s.seen.LoadOrStore(key, struct{}{}); loaded {
		return ""
	}
	return path
}

// sendError reports a non-fatal error if a callback was supplied.
func (s *Scanner) sendError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
