// Package rollupstate defines the reader's read-only view of the rollup
// execution cursor: the next height the executor still needs, the
// optional terminal stop height, and edge-triggered notification when
// the next-expected height advances.
package rollupstate

import (
	"context"
	"sync"

	"sequencer-reader/internal/block"
)

// Snapshot is a point-in-time read of the rollup's state.
type Snapshot struct {
	NextExpectedHeight block.Height
	StopHeight         *block.Height
	RollupID           block.RollupID
	SequencerChainID   string
}

// View is the read-only port the reader consumes. Source implementations
// (e.g. watching the executor's own state file or RPC) only need to
// satisfy this.
type View interface {
	Snapshot() Snapshot
	// Changed blocks until the next-expected height advances past the
	// value last returned (or ctx is done), then returns the new
	// snapshot. It is edge-triggered: calling it twice without an
	// intervening advance blocks on the second call.
	Changed(ctx context.Context) (Snapshot, error)
}

// Watch is a single-writer, single-reader implementation of View backed
// by a monotone cursor and a coalescing notify channel, mirroring the
// notify-channel pattern the teacher uses to coalesce bursty updates
// into a single wakeup per consumer poll.
type Watch struct {
	mu       sync.Mutex
	current  Snapshot
	lastSeen block.Height
	notify   chan struct{}
}

// NewWatch constructs a Watch seeded with the initial snapshot.
func NewWatch(initial Snapshot) *Watch {
	return &Watch{
		current:  initial,
		lastSeen: initial.NextExpectedHeight,
		notify:   make(chan struct{}, 1),
	}
}

// Snapshot returns the current state without blocking.
func (w *Watch) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Advance raises the next-expected height, never lowering it, and wakes
// any pending Changed call if the height actually moved.
func (w *Watch) Advance(next block.Height) {
	w.mu.Lock()
	if next <= w.current.NextExpectedHeight {
		w.mu.Unlock()
		return
	}
	w.current.NextExpectedHeight = next
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Changed blocks until NextExpectedHeight exceeds the height last
// returned by Changed (or by the initial snapshot, on the first call).
func (w *Watch) Changed(ctx context.Context) (Snapshot, error) {
	for {
		w.mu.Lock()
		if w.current.NextExpectedHeight > w.lastSeen {
			snap := w.current
			w.lastSeen = snap.NextExpectedHeight
			w.mu.Unlock()
			return snap, nil
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-w.notify:
			// Spurious wakeups are fine: loop re-checks the condition.
		}
	}
}
