package reader

import (
	"context"
	"sync"

	"sequencer-reader/internal/block"
)

// SendOutcome classifies a non-blocking send attempt to the executor.
type SendOutcome int

const (
	SendDelivered SendOutcome = iota
	SendFull
	SendClosed
)

// Executor is the bounded FIFO channel toward the downstream consumer.
// TrySend never blocks; Send blocks until capacity frees up, the
// channel closes, or ctx is done. Go channels can't report "closed" from
// a non-blocking send without panicking, so implementations track
// closedness explicitly rather than relying on send-to-closed-channel
// semantics.
type Executor interface {
	TrySend(b block.FilteredBlock) SendOutcome
	Send(ctx context.Context, b block.FilteredBlock) error
}

// ChannelExecutor adapts a buffered Go channel to Executor. Close marks
// the channel closed for future sends; in-flight receivers still drain
// whatever was already buffered. Close waits for an in-progress Send to
// return: a Send blocked on a full channel returns once capacity frees up
// or ctx is done, not when Close is called.
type ChannelExecutor struct {
	ch chan block.FilteredBlock

	mu     sync.Mutex
	closed bool
}

// NewChannelExecutor constructs an Executor backed by a channel of the
// given capacity.
func NewChannelExecutor(capacity int) *ChannelExecutor {
	return &ChannelExecutor{ch: make(chan block.FilteredBlock, capacity)}
}

// C exposes the receive side for a downstream consumer.
func (e *ChannelExecutor) C() <-chan block.FilteredBlock {
	return e.ch
}

// Close marks the executor closed; subsequent TrySend/Send calls return
// SendClosed / ExecutorClosedError.
func (e *ChannelExecutor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}

// TrySend and Send both hold mu for their full duration so a concurrent
// Close can never race a send into the channel it just closed.

func (e *ChannelExecutor) TrySend(b block.FilteredBlock) SendOutcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return SendClosed
	}
	select {
	case e.ch <- b:
		return SendDelivered
	default:
		return SendFull
	}
}

func (e *ChannelExecutor) Send(ctx context.Context, b block.FilteredBlock) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return &ExecutorClosedError{}
	}
	select {
	case e.ch <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
