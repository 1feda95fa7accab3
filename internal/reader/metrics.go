package reader

import "sequencer-reader/internal/block"

// Metrics receives observability events from the run loop. The reader
// package only depends on this narrow interface so the concrete
// Prometheus wiring lives entirely in internal/metrics.
type Metrics interface {
	BlockDelivered(h block.Height)
	CacheRejected(reason string)
	CacheSize(n int)
	HeightsObserved(latestObserved, nextExpected block.Height)
	PendingSendActive(active bool)
}

// NoopMetrics discards every event; used when no recorder is wired.
type NoopMetrics struct{}

func (NoopMetrics) BlockDelivered(block.Height)                {}
func (NoopMetrics) CacheRejected(string)                       {}
func (NoopMetrics) CacheSize(int)                              {}
func (NoopMetrics) HeightsObserved(block.Height, block.Height) {}
func (NoopMetrics) PendingSendActive(bool)                     {}
