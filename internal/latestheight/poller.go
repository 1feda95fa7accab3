// Package latestheight polls the Sequencer for its most recently
// committed height at a fixed cadence, emitting a Result on every tick
// including transient failures.
package latestheight

import (
	"context"
	"time"

	"sequencer-reader/internal/block"
)

// HeightSource is the narrow slice of sequencerclient.CometClient this
// package needs.
type HeightSource interface {
	LatestHeight(ctx context.Context) (block.Height, error)
}

// Result carries one poll's outcome. A non-nil Err is never retried by
// this package; the caller (the reader's run loop) simply logs it and
// waits for the next tick.
type Result struct {
	Height block.Height
	Err    error
}

// Poller emits a Result every period by querying source. C() is
// unbuffered and the poll loop holds at most one undelivered Result; a
// slow consumer delays the next tick rather than building up a backlog,
// matching a single ticking source with no queueing in the original
// design.
type Poller struct {
	source HeightSource
	period time.Duration
	out    chan Result
}

// New constructs a Poller. Start must be called to begin ticking.
func New(source HeightSource, period time.Duration) *Poller {
	return &Poller{
		source: source,
		period: period,
		out:    make(chan Result),
	}
}

// C returns the channel of poll results. It is closed when ctx is done.
func (p *Poller) C() <-chan Result {
	return p.out
}

// Start runs the poll loop until ctx is cancelled, then closes C().
func (p *Poller) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.out)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h, err := p.source.LatestHeight(ctx)
			result := Result{Height: h, Err: err}
			select {
			case p.out <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}
