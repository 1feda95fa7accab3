// Package rangefetch produces filtered blocks for a contiguous height
// range, fetching at most one block at a time and pausing once the
// requested height runs ahead of the latest observed ceiling.
package rangefetch

import (
	"context"
	"sync/atomic"

	"sequencer-reader/internal/block"
)

// Fetcher performs a single retried fetch for one height. GrpcFetchClient
// satisfies this.
type Fetcher interface {
	Fetch(ctx context.Context, rollupID block.RollupID, height block.Height) (block.FilteredBlock, error)
}

// Result is either a delivered block or a terminal fatal error. Once a
// Stream yields an error from Next, every subsequent call returns the
// same error: the stream does not self-heal from a fatal fetch.
type Result struct {
	Block block.FilteredBlock
	Err   error
}

// Stream produces blocks for heights in [nextExpected, latestObserved],
// capped by an optional stopHeight, one in-flight fetch at a time. Both
// ceilings are monotone: SetNextExpectedHeightIfGreater and
// SetLatestObservedHeightIfGreater silently ignore a lower value.
//
// A Stream is driven by a single goroutine (the reader's run loop); the
// atomic fields exist only so ceiling updates from other call sites
// (e.g. the rollup-state cursor-advance branch) never race a concurrent
// read of the bound, not to allow concurrent calls to Next.
type Stream struct {
	fetcher Fetcher
	rollup  block.RollupID

	nextExpected   atomic.Uint64
	latestObserved atomic.Uint64
	stopHeight     *atomic.Uint64 // nil means unbounded

	fatal error
}

// New constructs a Stream starting at nextExpected, bounded above by
// latestObserved (raise it via SetLatestObservedHeightIfGreater as new
// ceilings arrive) and optionally by stopHeight.
func New(fetcher Fetcher, rollup block.RollupID, nextExpected, latestObserved block.Height, stopHeight *block.Height) *Stream {
	s := &Stream{fetcher: fetcher, rollup: rollup}
	s.nextExpected.Store(uint64(nextExpected))
	s.latestObserved.Store(uint64(latestObserved))
	if stopHeight != nil {
		s.stopHeight = &atomic.Uint64{}
		s.stopHeight.Store(uint64(*stopHeight))
	}
	return s
}

// Ready reports whether the stream currently has a height it could fetch:
// next_expected is within [*, latest_observed] and within stop_height.
// The run loop uses this to decide whether this branch is a candidate in
// its select.
func (s *Stream) Ready() bool {
	next := block.Height(s.nextExpected.Load())
	if next > block.Height(s.latestObserved.Load()) {
		return false
	}
	if s.stopHeight != nil && next > block.Height(s.stopHeight.Load()) {
		return false
	}
	return true
}

// Next blocks until the current next_expected height is fetched, or
// returns immediately with the stream's sticky fatal error if one was
// already produced. Callers must check Ready first; Next does not itself
// wait for the ceiling to rise; it is meant to be called only when Ready
// reports true (e.g. from inside a select branch guard).
func (s *Stream) Next(ctx context.Context) Result {
	if s.fatal != nil {
		return Result{Err: s.fatal}
	}

	height := block.Height(s.nextExpected.Load())
	b, err := s.fetcher.Fetch(ctx, s.rollup, height)
	if err != nil {
		s.fatal = err
		return Result{Err: err}
	}

	s.SetNextExpectedHeightIfGreater(height + 1)
	return Result{Block: b}
}

// SetNextExpectedHeightIfGreater raises the fetch floor, never lowers it.
func (s *Stream) SetNextExpectedHeightIfGreater(h block.Height) {
	setIfGreater(&s.nextExpected, uint64(h))
}

// SetLatestObservedHeightIfGreater raises the fetch ceiling, never lowers it.
func (s *Stream) SetLatestObservedHeightIfGreater(h block.Height) {
	setIfGreater(&s.latestObserved, uint64(h))
}

// NextExpectedHeight reports the current fetch floor.
func (s *Stream) NextExpectedHeight() block.Height {
	return block.Height(s.nextExpected.Load())
}

// setIfGreater implements the monotone-ceiling helper used throughout
// this package: compare-and-swap in a loop so concurrent raisers never
// clobber a higher value that won the race.
func setIfGreater(v *atomic.Uint64, candidate uint64) {
	for {
		current := v.Load()
		if candidate <= current {
			return
		}
		if v.CompareAndSwap(current, candidate) {
			return
		}
	}
}
