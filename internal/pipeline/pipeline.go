// Package pipeline drives the eight-phase scan: discover, group, analyze,
// size-bucket, trailing-hash, trailing-bucket, full-hash, and duplicate
// attribution.
//
// # Architecture Overview
//
// The orchestrator runs on a single goroutine across all eight phases; the
// two hashing phases (trailing, full) fan out internally to a worker pool
// and join before the orchestrator advances. No phase overlaps another.
//
// # Progress Phase Naming
//
// ScanProgress carries one of a closed set of phase names, and two of the
// eight internal phases share a name with their neighbour:
//
//	Phase 1  Discover              -> "discovery"
//	Phase 2  Group                 -> "grouping"
//	Phase 3  Analyze / classify    -> "analyzing"
//	Phase 4  Size bucketing        -> "analyzing"   (same label, same stage of work)
//	Phase 5  Trailing hashes       -> "trailing_hash" (parallel, sampled)
//	Phase 6  Trailing bucketing    -> "trailing_hash" (sequential, continues the label)
//	Phase 7  Full hashes           -> "hashing"      (parallel, sampled)
//	Phase 8  Duplicate attribution -> "duplicates"
//	(terminal)                     -> "complete"
//
// # Concurrency Model
//
// Phases 5 and 7 dispatch one job per cache-missing record to a fixed worker pool
// (jobCh/resultsCh/sync.WaitGroup, the same shape as a fan-out/fan-in
// verifier), but workers never mutate the shared records slice or the
// cache directly; they return (index, hash, revisedSize?) tuples, and the
// orchestrator applies both the record mutation and the cache write
// sequentially after the pool joins. This keeps the cache single-writer
// and the output vector free of indexed writes from worker goroutines.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dwetterau/photo-manager/internal/cache"
	"github.com/dwetterau/photo-manager/internal/cloudprobe"
	"github.com/dwetterau/photo-manager/internal/digest"
	"github.com/dwetterau/photo-manager/internal/grouper"
	"github.com/dwetterau/photo-manager/internal/progress"
	"github.com/dwetterau/photo-manager/internal/scanner"
	"github.com/dwetterau/photo-manager/internal/types"
)

// Options configures a single Run call.
type Options struct {
	// Workers bounds concurrency in Phases 5 and 7. Zero means
	// runtime.NumCPU().
	Workers int
	// Cache is consulted and written to during Phases 3, 5, and 7. A nil
	// Cache is treated as always-miss, never-write.
	Cache *cache.Cache
	// Sink receives every ScanProgress event. May be nil.
	Sink progress.Sink
	// Logger receives a debug/warn line for every swallowed per-file or
	// cache error. May be nil.
	Logger *zap.Logger
}

// Run executes a full scan over roots and returns the resulting records.
// Per-file and cache errors are swallowed into the result: a partial
// failure never surfaces as an error return. ctx is checked between phases
// and between individual hashing jobs; a cache write for a given path is
// always either complete or never attempted when ctx is cancelled, never
// torn mid-write. A cancellation mid-scan returns ctx.Err() alongside
// whatever records were finished up to that point.
func Run(ctx context.Context, roots []string, opts Options) ([]types.PhotoRecord, error) {
	p := &pipeline{opts: opts}
	if p.opts.Workers <= 0 {
		p.opts.Workers = runtime.NumCPU()
	}
	if p.opts.Cache == nil {
		p.opts.Cache, _ = cache.Open("")
	}

	paths := p.discover(roots)
	if err := ctx.Err(); err != nil {
		return p.records, err
	}
	primaries := p.group(paths)
	if err := ctx.Err(); err != nil {
		return p.records, err
	}
	p.analyze(primaries)
	if err := ctx.Err(); err != nil {
		return p.records, err
	}

	c1 := p.sizeBucket()
	if len(c1) == 0 {
		p.emitComplete(0)
		return p.records, nil
	}

	p.trailingHash(ctx, c1)
	if err := ctx.Err(); err != nil {
		return p.records, err
	}

	c2 := p.trailingBucket(c1)
	if len(c2) == 0 {
		p.emitComplete(0)
		return p.records, nil
	}
	if err := ctx.Err(); err != nil {
		return p.records, err
	}

	p.fullHash(ctx, c2)
	if err := ctx.Err(); err != nil {
		return p.records, err
	}
	dupCount := p.attributeDuplicates(c2)
	p.emitComplete(dupCount)

	return p.records, nil
}

type pipeline struct {
	opts    Options
	records []types.PhotoRecord
}

func (p *pipeline) logError(err error) {
	if p.opts.Logger != nil && err != nil {
		p.opts.Logger.Debug("swallowed scan error", zap.Error(err))
	}
}

func (p *pipeline) emit(phase string, current, total uint64, message string) {
	if p.opts.Sink != nil {
		p.opts.Sink(types.ScanProgress{Phase: phase, Current: current, Total: total, Message: message})
	}
}

func (p *pipeline) emitComplete(duplicates int) {
	p.emit(types.PhaseComplete, uint64(duplicates), uint64(duplicates), "scan complete")
}

// --- Phase 1: Discover ---

func (p *pipeline) discover(roots []string) []string {
	p.emit(types.PhaseDiscovery, 0, 0, "discovering files")
	s := scanner.New(roots, p.opts.Workers, p.logError)
	paths := s.Run()
	p.emit(types.PhaseDiscovery, uint64(len(paths)), uint64(len(paths)), "discovery complete")
	return paths
}

// --- Phase 2: Group ---

func (p *pipeline) group(paths []string) []grouper.Primary {
	p.emit(types.PhaseGrouping, 0, uint64(len(paths)), "grouping related files")
	primaries := grouper.Group(paths)
	p.emit(types.PhaseGrouping, uint64(len(primaries)), uint64(len(primaries)), "grouping complete")
	return primaries
}

// --- Phase 3: Analyze / classify, and Phase 4: size bucketing ---
//
// Both share the "analyzing" progress label (see package doc).

func (p *pipeline) analyze(primaries []grouper.Primary) {
	total := uint64(len(primaries))
	reporter := progress.NewReporter(types.PhaseAnalyzing, total, p.opts.Sink)

	p.records = make([]types.PhotoRecord, 0, len(primaries))
	for _, primary := range primaries {
		if record, ok := p.buildRecord(primary); ok {
			p.records = append(p.records, record)
		}
		reporter.Tick("analyzing")
	}
	reporter.Done("analysis complete")
}

// buildRecord stats one primary and assembles its record. ok is false when
// the stat fails: an unreadable primary contributes no record at all, and
// its related files are dropped with it.
func (p *pipeline) buildRecord(primary grouper.Primary) (types.PhotoRecord, bool) {
	path := primary.Path

	info, statErr := os.Stat(path)
	if statErr != nil {
		p.logError(statErr)
		return types.PhotoRecord{}, false
	}

	name := filepath.Base(path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	record := types.PhotoRecord{
		ID:            path,
		Path:          path,
		Name:          name,
		DirectoryName: filepath.Base(filepath.Dir(path)),
		Extension:     ext,
		ThumbnailPath: primary.ThumbnailPath,
		ModifiedAt:    preferredTimestamp(path, info).UnixMilli(),
	}
	for _, rel := range primary.Related {
		record.RelatedFiles = append(record.RelatedFiles, types.RelatedFile{
			Path: rel.Path, Name: rel.Name, Type: rel.Type,
		})
	}

	if entry, ok := p.opts.Cache.Get(path); ok {
		record.Size = entry.Size
	} else {
		record.Size = info.Size()
		if cloudprobe.IsPlaceholder(path) {
			record.IsCloudPlaceholder = true
			if err := p.opts.Cache.PutSize(path, record.Size); err != nil {
				p.logError(err)
			}
		}
	}

	return record, true
}

// --- Phase 4: size bucketing ---
//
// Shares Phase 3's "analyzing" label (see package doc): bucketing is a pure
// in-memory pass over the records Phase 3 just built, and emits one event
// of its own once the buckets are final.

func (p *pipeline) sizeBucket() []int {
	buckets := make(map[int64][]int)
	for i, r := range p.records {
		buckets[r.Size] = append(buckets[r.Size], i)
	}
	union := unionOfCollisions(buckets)
	p.emit(types.PhaseAnalyzing, uint64(len(p.records)), uint64(len(p.records)), "size buckets complete")
	return union
}

// --- Phase 5: trailing hashes over C1 ---

func (p *pipeline) trailingHash(ctx context.Context, indices []int) {
	p.hashPhase(ctx, indices, types.PhaseTrailingHash, "computing trailing hashes")
}

// --- Phase 6: trailing-hash bucketing ---

func (p *pipeline) trailingBucket(c1 []int) []int {
	reporter := progress.NewReporter(types.PhaseTrailingHash, uint64(len(c1)), p.opts.Sink)
	type key struct {
		size    int64
		trailer string
	}
	buckets := make(map[key][]int)
	for _, idx := range c1 {
		r := p.records[idx]
		buckets[key{r.Size, r.TrailingHash}] = append(buckets[key{r.Size, r.TrailingHash}], idx)
		reporter.Tick("bucketing by trailing hash")
	}
	reporter.Done("trailing-hash buckets complete")
	return unionOfCollisions(buckets)
}

// --- Phase 7: full hashes over C2 ---

func (p *pipeline) fullHash(ctx context.Context, indices []int) {
	p.hashPhase(ctx, indices, types.PhaseHashing, "computing full hashes")
}

// --- Phase 8: duplicate attribution ---

func (p *pipeline) attributeDuplicates(c2 []int) int {
	reporter := progress.NewReporter(types.PhaseDuplicates, uint64(len(c2)), p.opts.Sink)
	seen := make(map[string]int) // full hash -> record index
	duplicates := 0
	for _, idx := range c2 {
		r := &p.records[idx]
		if r.Hash == "" {
			reporter.Tick("attributing duplicates")
			continue
		}
		if anchor, ok := seen[r.Hash]; ok {
			r.IsDuplicate = true
			r.DuplicateOf = p.records[anchor].ID
			duplicates++
		} else {
			seen[r.Hash] = idx
		}
		reporter.Tick("attributing duplicates")
	}
	reporter.Done("duplicate attribution complete")
	return duplicates
}

// unionOfCollisions returns the sorted union of every bucket with 2+
// members. Sorting restores the deterministic classification order
// (Phase 3's raw-then-image ordering), since Go map iteration order is
// randomised.
func unionOfCollisions[K comparable](buckets map[K][]int) []int {
	var union []int
	for _, idxs := range buckets {
		if len(idxs) >= 2 {
			union = append(union, idxs...)
		}
	}
	sort.Ints(union)
	return union
}

// hashResult is what a hashing worker returns; the orchestrator alone
// applies it to the shared records slice and the cache.
type hashResult struct {
	index       int
	hash        string
	ok          bool
	revisedSize int64
	hasRevision bool
}

// hashPhase runs either the trailing-hash or full-hash stage over indices,
// depending on which phase name is passed; the trailing/full distinction
// lives in computeHash, selected by phase.
func (p *pipeline) hashPhase(ctx context.Context, indices []int, phase string, message string) {
	total := uint64(len(indices))
	var counter atomic.Int64
	sampler := progress.NewSampler(phase, total, p.opts.Sink, &counter)

	// Cache lookups happen before dispatch so cache hits never enter the
	// worker pool at all: a warm cache performs zero file opens.
	var misses []int
	for _, idx := range indices {
		r := p.records[idx]
		entry, ok := p.opts.Cache.Get(r.Path)
		if !ok {
			misses = append(misses, idx)
			continue
		}
		if phase == types.PhaseTrailingHash && entry.HasTrailing {
			p.records[idx].TrailingHash = entry.TrailingHash
			counter.Add(1)
			continue
		}
		if phase == types.PhaseHashing && entry.HasFull {
			p.records[idx].Hash = entry.FullHash
			counter.Add(1)
			continue
		}
		misses = append(misses, idx)
	}

	sampler.Start(message)
	results := p.runHashWorkers(ctx, misses, phase, &counter)
	sampler.Stop(message + ", complete")

	for _, res := range results {
		if !res.ok {
			continue
		}
		r := &p.records[res.index]
		if res.hasRevision {
			r.Size = res.revisedSize
			r.IsCloudPlaceholder = false
		}
		switch phase {
		case types.PhaseTrailingHash:
			r.TrailingHash = res.hash
			if err := p.opts.Cache.PutTrailing(r.Path, r.Size, res.hash); err != nil {
				p.logError(err)
			}
		case types.PhaseHashing:
			r.Hash = res.hash
			if err := p.opts.Cache.PutFull(r.Path, r.Size, res.hash); err != nil {
				p.logError(err)
			}
		}
	}
}

// runHashWorkers dispatches one compute call per index to a fixed pool.
// Workers read the record by value and never touch p.records; only their
// returned hashResult is applied, and only by the caller after this
// function returns. A cancelled ctx stops dispatch of new jobs and lets
// in-flight jobs finish (a job is never interrupted mid-hash), so every
// returned result is still complete and safe to apply to the cache.
func (p *pipeline) runHashWorkers(ctx context.Context, indices []int, phase string, counter *atomic.Int64) []hashResult {
	if len(indices) == 0 {
		return nil
	}

	jobCh := make(chan int, len(indices))
	resultsCh := make(chan hashResult, len(indices))
	var wg sync.WaitGroup

	workers := p.opts.Workers
	if workers > len(indices) {
		workers = len(indices)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				rec := p.records[idx] // read-only snapshot
				res := computeHash(idx, rec, phase)
				counter.Add(1)
				resultsCh <- res
			}
		}()
	}

dispatch:
	for _, idx := range indices {
		select {
		case <-ctx.Done():
			break dispatch
		case jobCh <- idx:
		}
	}
	close(jobCh)
	wg.Wait()
	close(resultsCh)

	results := make([]hashResult, 0, len(indices))
	for r := range resultsCh {
		results = append(results, r)
	}
	return results
}

// computeHash performs the actual digest work for one record, re-stating a
// still-flagged cloud placeholder first so the hash is taken over the
// authoritative size rather than the placeholder's advertised one.
func computeHash(index int, rec types.PhotoRecord, phase string) hashResult {
	size := rec.Size
	res := hashResult{index: index}

	if rec.IsCloudPlaceholder {
		if info, err := os.Stat(rec.Path); err == nil {
			size = info.Size()
			res.revisedSize = size
			res.hasRevision = true
		}
	}

	switch phase {
	case types.PhaseTrailingHash:
		res.hash, res.ok = digest.Trailing(rec.Path, size)
	case types.PhaseHashing:
		res.hash, res.ok = digest.Full(rec.Path)
	}
	return res
}
