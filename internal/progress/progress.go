// Package progress throttles ScanProgress emission so a fast-moving scan
// doesn't flood the host with one event per record.
//
// Two emission disciplines are supported, matching the two phase shapes in
// the orchestrator:
//
//   - Sequential phases call Tick for every record processed; an event is
//     emitted at most every sequentialInterval records, plus a final Done
//     call that always emits.
//   - Parallel phases run a dedicated Sampler goroutine that polls a
//     shared atomic counter on an interval and emits one event per sample
//     until the counter reaches total, at which point it emits a final
//     event and exits.
package progress

import (
	"sync/atomic"
	"time"

	"github.com/dwetterau/photo-manager/internal/types"
)

// sequentialInterval is how often a sequential-phase reporter emits a
// progress event, in records processed.
const sequentialInterval = 25

// sampleInterval is how often a parallel-phase Sampler polls its counter.
const sampleInterval = 100 * time.Millisecond

// Sink receives progress events. Implementations must be safe to ignore
// (the host may have gone away): a Sink must never be allowed to block a
// scan or panic it.
type Sink func(types.ScanProgress)

// Reporter emits throttled progress for a sequential phase.
type Reporter struct {
	phase   string
	total   uint64
	sink    Sink
	current uint64
}

// NewReporter creates a Reporter for a sequential phase with a known total.
func NewReporter(phase string, total uint64, sink Sink) *Reporter {
	return &Reporter{phase: phase, total: total, sink: sink}
}

// Tick records one unit of progress, emitting an event every
// sequentialInterval calls.
func (r *Reporter) Tick(message string) {
	r.current++
	if r.current%sequentialInterval == 0 {
		r.emit(message)
	}
}

// Done emits a final, unconditional event whose Current is the number of
// Tick calls made so far (equal to r.total when every unit was ticked).
func (r *Reporter) Done(message string) {
	r.emit(message)
}

func (r *Reporter) emit(message string) {
	if r.sink == nil {
		return
	}
	r.sink(types.ScanProgress{
		Phase:   r.phase,
		Current: r.current,
		Total:   r.total,
		Message: message,
	})
}

// Sampler reports progress for a parallel phase by polling a shared atomic
// counter on an interval, independent of the worker goroutines driving it.
type Sampler struct {
	phase   string
	total   uint64
	sink    Sink
	counter *atomic.Int64
	stop    chan struct{}
	done    chan struct{}
}

// NewSampler creates a Sampler for a parallel phase. counter must be the
// same counter the worker pool increments via Add(1).
func NewSampler(phase string, total uint64, sink Sink, counter *atomic.Int64) *Sampler {
	return &Sampler{
		phase:   phase,
		total:   total,
		sink:    sink,
		counter: counter,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins sampling in its own goroutine. Call Stop when the phase's
// worker pool has joined, to emit the terminal event and avoid leaking the
// goroutine.
func (s *Sampler) Start(message string) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.emit(message)
				if uint64(s.counter.Load()) >= s.total {
					return
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop signals the sampler to exit (if it hasn't already reached total) and
// emits one final terminal event unconditionally.
func (s *Sampler) Stop(message string) {
	close(s.stop)
	<-s.done
	s.emit(message)
}

func (s *Sampler) emit(message string) {
	if s.sink == nil {
		return
	}
	s.sink(types.ScanProgress{
		Phase:   s.phase,
		Current: uint64(s.counter.Load()),
		Total:   s.total,
		Message: message,
	})
}
