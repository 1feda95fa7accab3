// Package reader implements the Conductor's Sequencer Reader: a
// single-threaded cooperative run loop that fetches filtered blocks in
// strict height order, reconciles them against an independently
// advancing rollup cursor, and forwards them to a downstream executor
// with backpressure.
package reader

import (
	"context"
	"errors"

	"sequencer-reader/internal/block"
	"sequencer-reader/internal/blockcache"
	"sequencer-reader/internal/latestheight"
	"sequencer-reader/internal/logging"
	"sequencer-reader/internal/rangefetch"
	"sequencer-reader/internal/rollupstate"
	"sequencer-reader/internal/sequencerclient"
)

// Config bundles the reader's fixed startup parameters.
type Config struct {
	ExpectedChainID string
	CacheCapacity   uint64
}

// Reader holds everything needed to initialize a RunningReader: the
// collaborators it talks to and its startup config. It performs no work
// itself beyond Initialize.
type Reader struct {
	cfg         Config
	comet       sequencerclient.CometClient
	fetcher     rangefetch.Fetcher
	rollupState rollupstate.View
	poller      *latestheight.Poller
	executor    Executor
	metrics     Metrics
}

// New constructs a Reader. metrics may be nil, in which case events are
// discarded.
func New(cfg Config, comet sequencerclient.CometClient, fetcher rangefetch.Fetcher, rollupState rollupstate.View, poller *latestheight.Poller, executor Executor, metrics Metrics) *Reader {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Reader{
		cfg:         cfg,
		comet:       comet,
		fetcher:     fetcher,
		rollupState: rollupState,
		poller:      poller,
		executor:    executor,
		metrics:     metrics,
	}
}

// Initialize checks the Sequencer's genesis chain id against the
// configured expectation and, on success, builds the RunningReader. A
// mismatch is fatal (*StartupMismatchError); the only other error
// Initialize returns is the one ChainID gives up with, e.g. when ctx is
// done before the genesis fetch succeeds.
func (r *Reader) Initialize(ctx context.Context) (*RunningReader, error) {
	actual, err := r.comet.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if actual != r.cfg.ExpectedChainID {
		return nil, &StartupMismatchError{Expected: r.cfg.ExpectedChainID, Actual: actual}
	}

	snap := r.rollupState.Snapshot()
	cache := blockcache.New(snap.NextExpectedHeight, r.cfg.CacheCapacity)

	var initialObserved block.Height
	if snap.NextExpectedHeight > 0 {
		initialObserved = snap.NextExpectedHeight - 1
	}
	stream := rangefetch.New(r.fetcher, snap.RollupID, snap.NextExpectedHeight, initialObserved, snap.StopHeight)

	r.poller.Start(ctx)

	return &RunningReader{
		cache:       cache,
		stream:      stream,
		rollupState: r.rollupState,
		poller:      r.poller,
		executor:    r.executor,
		metrics:     r.metrics,
		stopHeight:  snap.StopHeight,
		cursorCh:    watchCursor(ctx, r.rollupState),
	}, nil
}

// watchCursor runs Changed in a loop on a background goroutine and
// forwards each edge to a channel, turning the blocking Changed call
// into something the run loop's select can multiplex.
func watchCursor(ctx context.Context, view rollupstate.View) <-chan rollupstate.Snapshot {
	out := make(chan rollupstate.Snapshot)
	go func() {
		defer close(out)
		for {
			snap, err := view.Changed(ctx)
			if err != nil {
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type pendingSend struct {
	height block.Height
	done   chan error
}

// RunningReader is the live run loop produced by Reader.Initialize.
type RunningReader struct {
	cache       *blockcache.Cache
	stream      *rangefetch.Stream
	rollupState rollupstate.View
	poller      *latestheight.Poller
	executor    Executor
	metrics     Metrics
	stopHeight  *block.Height

	cursorCh <-chan rollupstate.Snapshot

	pending       *pendingSend
	fetchInFlight bool
	fetchResultCh chan rangefetch.Result
}

// Run drives the loop until shutdown, a fatal error, or the stop height
// is reached and fully drained. It returns an ExitReason on an orderly
// exit, or a non-nil error on a fatal one (never both).
func (rr *RunningReader) Run(ctx context.Context) (ExitReason, error) {
	rr.fetchResultCh = make(chan rangefetch.Result, 1)

	for {
		if rr.hasReachedStopHeight() && rr.pending == nil {
			logging.Info("stop height reached, reader exiting", logging.Reader,
				"stop_height", *rr.stopHeight)
			return ExitStopHeightReached, nil
		}

		// Priority 1: shutdown preempts everything else.
		select {
		case <-ctx.Done():
			return ExitShutdownRequested, nil
		default:
		}

		// Priority 2: a resolved pending send must be drained before any
		// new work is considered.
		if rr.pending != nil {
			select {
			case err := <-rr.pending.done:
				if fatal := rr.completePendingSend(err); fatal != nil {
					return "", fatal
				}
				continue
			default:
			}
		}

		// Priority 3: cursor advance from the rollup state.
		select {
		case snap, ok := <-rr.cursorCh:
			if ok {
				rr.handleCursorAdvance(snap)
				continue
			}
		default:
		}

		// Priority 4: pop the next in-order block, gated on no pending send.
		if rr.pending == nil {
			if b, ok := rr.cache.NextBlock(); ok {
				rr.metrics.CacheSize(rr.cache.Len())
				if fatal := rr.dispatch(ctx, b); fatal != nil {
					return "", fatal
				}
				continue
			}
		}

		rr.maybeLaunchFetch(ctx)

		// Priority 5: a fetched block arrived.
		if rr.fetchInFlight {
			select {
			case res := <-rr.fetchResultCh:
				rr.fetchInFlight = false
				if fatal := rr.handleFetchResult(res); fatal != nil {
					return "", fatal
				}
				continue
			default:
			}
		}

		// Priority 6: a new latest-height tick.
		select {
		case res, ok := <-rr.poller.C():
			if ok {
				rr.handleLatestHeight(res)
				continue
			}
		default:
		}

		// Nothing was ready; block on whichever source fires first, then
		// loop back to the top so priority is re-applied on the next pass.
		var pendingDoneCh <-chan error
		if rr.pending != nil {
			pendingDoneCh = rr.pending.done
		}
		var fetchCh <-chan rangefetch.Result
		if rr.fetchInFlight {
			fetchCh = rr.fetchResultCh
		}

		select {
		case <-ctx.Done():
			return ExitShutdownRequested, nil
		case err := <-pendingDoneCh:
			if fatal := rr.completePendingSend(err); fatal != nil {
				return "", fatal
			}
		case snap, ok := <-rr.cursorCh:
			if ok {
				rr.handleCursorAdvance(snap)
			}
		case res := <-fetchCh:
			rr.fetchInFlight = false
			if fatal := rr.handleFetchResult(res); fatal != nil {
				return "", fatal
			}
		case res, ok := <-rr.poller.C():
			if ok {
				rr.handleLatestHeight(res)
			}
		}
	}
}

func (rr *RunningReader) hasReachedStopHeight() bool {
	return rr.stopHeight != nil && rr.cache.NextHeightToPop() > *rr.stopHeight
}

func (rr *RunningReader) maybeLaunchFetch(ctx context.Context) {
	if rr.fetchInFlight || !rr.stream.Ready() {
		return
	}
	rr.fetchInFlight = true
	go func() {
		rr.fetchResultCh <- rr.stream.Next(ctx)
	}()
}

func (rr *RunningReader) handleFetchResult(res rangefetch.Result) error {
	if res.Err != nil {
		if errors.Is(res.Err, context.Canceled) {
			// Shutdown raced the in-flight fetch; the priority-1 check at
			// the top of the loop will observe ctx.Done() and exit
			// orderly on the next pass.
			return nil
		}
		return NewFetchFatalError(res.Err)
	}
	if err := rr.cache.Insert(res.Block); err != nil {
		logging.Warn("dropping fetched block that failed cache insert", logging.BlockCache,
			"height", res.Block.Height, "error", err)
		rr.metrics.CacheRejected(cacheRejectReason(err))
		return nil
	}
	rr.metrics.CacheSize(rr.cache.Len())
	return nil
}

func cacheRejectReason(err error) string {
	switch {
	case errors.Is(err, blockcache.ErrBelowCursor):
		return "below_cursor"
	case errors.Is(err, blockcache.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, blockcache.ErrAboveCapacity):
		return "above_capacity"
	default:
		return "unknown"
	}
}

func (rr *RunningReader) handleLatestHeight(res latestheight.Result) {
	if res.Err != nil {
		logging.Warn("latest height poll failed, retrying next tick", logging.LatestHeight,
			"error", res.Err)
		return
	}
	rr.stream.SetLatestObservedHeightIfGreater(res.Height)
	rr.metrics.HeightsObserved(res.Height, rr.stream.NextExpectedHeight())
}

// handleCursorAdvance advances both the range stream's floor and the
// cache's cursor. In-flight fetches below the new floor complete but are
// dropped by the cache's below_cursor rule when they land.
func (rr *RunningReader) handleCursorAdvance(snap rollupstate.Snapshot) {
	rr.stream.SetNextExpectedHeightIfGreater(snap.NextExpectedHeight)
	rr.cache.DropObsolete(snap.NextExpectedHeight)
	rr.stopHeight = snap.StopHeight
}

// dispatch attempts a non-blocking send; on Full it schedules the single
// permitted pending send and suspends further cache pops until it
// resolves.
func (rr *RunningReader) dispatch(ctx context.Context, b block.FilteredBlock) error {
	switch rr.executor.TrySend(b) {
	case SendDelivered:
		rr.metrics.BlockDelivered(b.Height)
		return nil
	case SendFull:
		done := make(chan error, 1)
		rr.pending = &pendingSend{height: b.Height, done: done}
		rr.metrics.PendingSendActive(true)
		go func() {
			done <- rr.executor.Send(ctx, b)
		}()
		return nil
	case SendClosed:
		return &ExecutorClosedError{}
	default:
		return nil
	}
}

func (rr *RunningReader) completePendingSend(err error) error {
	height := rr.pending.height
	rr.pending = nil
	rr.metrics.PendingSendActive(false)

	var closed *ExecutorClosedError
	if errors.As(err, &closed) {
		return closed
	}
	if err != nil {
		// Context cancellation: shutdown will be observed at the top of
		// the next loop iteration. The block is lost, which is expected
		// per the reader's restart-from-next-expected recovery model.
		return nil
	}
	rr.metrics.BlockDelivered(height)
	return nil
}
