// Package sequencerclient implements the transport-facing edges of the
// reader: a single-block gRPC fetch client with bounded exponential
// backoff, and a CometBFT HTTP/RPC client for the latest height and
// genesis chain id.
//
// The gRPC service itself is out of scope for this repository (no
// protobuf codegen is performed here); BlockTransport is the minimal
// interface the reader needs from it, and a caller wires in a real
// generated client that satisfies it.
package sequencerclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sequencer-reader/internal/block"
	"sequencer-reader/internal/logging"
)

// BlockTransport performs a single, non-retrying attempt to fetch one
// filtered block. Implementations should return a *TransientError for
// retryable failures (dropped connection, not-yet-available) and a
// *ValidationError for failures retrying cannot fix (malformed payload).
type BlockTransport interface {
	GetFilteredBlock(ctx context.Context, rollupID block.RollupID, height block.Height) (block.FilteredBlock, error)
}

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 20 * time.Second
	maxAttempts    = 10
)

// GrpcFetchClient retries BlockTransport calls with exponential backoff,
// classifying the outcome into a delivered block or a FatalError.
type GrpcFetchClient struct {
	transport      BlockTransport
	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxAttempts    uint64
	onRetry        func()
}

// Option customizes retry timing. Production code should leave these at
// their defaults (100ms initial, 20s cap, 10 retries after the first
// call); tests use them to
// shrink the backoff so they don't sleep real wall-clock time.
type Option func(*GrpcFetchClient)

func WithBackoffTiming(initial, max time.Duration, attempts uint64) Option {
	return func(c *GrpcFetchClient) {
		c.initialBackoff = initial
		c.maxBackoff = max
		c.maxAttempts = attempts
	}
}

// WithRetryObserver registers a callback invoked once per Fetch call that
// needed at least one retry, regardless of the call's eventual outcome.
func WithRetryObserver(fn func()) Option {
	return func(c *GrpcFetchClient) {
		c.onRetry = fn
	}
}

func NewGrpcFetchClient(transport BlockTransport, opts ...Option) *GrpcFetchClient {
	c := &GrpcFetchClient{
		transport:      transport,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		maxAttempts:    maxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retries transient errors (a *TransientError or ErrNotYetAvailable)
// with exponential backoff starting at 100ms and capped at 20s per delay,
// for up to maxAttempts retries after the first call. A *ValidationError,
// or any other error the transport returns, aborts immediately without
// further retries, wrapped as fatal since the run loop cannot recover
// from it.
func (c *GrpcFetchClient) Fetch(ctx context.Context, rollupID block.RollupID, height block.Height) (block.FilteredBlock, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.MaxInterval = c.maxBackoff
	policy.MaxElapsedTime = 0 // bounded by maxAttempts, not wall-clock

	bounded := backoff.WithMaxRetries(policy, c.maxAttempts)
	withCtx := backoff.WithContext(bounded, ctx)

	var result block.FilteredBlock
	var abort *ValidationError

	operation := func() error {
		b, err := c.transport.GetFilteredBlock(ctx, rollupID, height)
		if err == nil {
			result = b
			return nil
		}
		if ve, ok := asValidationError(err); ok {
			abort = ve
			return backoff.Permanent(err)
		}
		var transient *TransientError
		if !errors.As(err, &transient) && !errors.Is(err, errNotYetAvailable) && ctx.Err() == nil {
			// Unclassified errors are not retried; during shutdown the retry
			// policy still reports ctx.Err() instead.
			return backoff.Permanent(err)
		}
		return err
	}

	var retried bool
	notify := func(err error, d time.Duration) {
		retried = true
		logging.Warn("retrying filtered block fetch", logging.SequencerGrpc,
			"height", height, "error", err, "backoff", d)
	}

	err := backoff.RetryNotify(operation, withCtx, notify)
	if retried && c.onRetry != nil {
		c.onRetry()
	}
	if err != nil {
		if abort != nil {
			return block.FilteredBlock{}, NewFatalError(abort)
		}
		return block.FilteredBlock{}, NewFatalError(err)
	}
	return result, nil
}

func asValidationError(err error) (*ValidationError, bool) {
	ve, ok := err.(*ValidationError)
	return ve, ok
}
