// Package block defines the data model shared by every stage of the
// sequencer reader pipeline: the fetch stream, the sequential cache,
// and the reader's run loop.
package block

import (
	"encoding/hex"
	"time"
)

// Height is a Sequencer block height. All comparisons are numeric;
// "next-expected" heights never decrease.
type Height uint64

// RollupID identifies the rollup whose transactions a FilteredBlock was
// projected from. It filters the remote block's contents at the source.
type RollupID []byte

func (r RollupID) String() string {
	return hex.EncodeToString(r)
}

// FilteredBlock is a Sequencer block projected to a single rollup's
// transactions. Identity is its Height; ordering is by Height. A
// FilteredBlock is immutable once received from the Sequencer.
type FilteredBlock struct {
	Height Height
	Rollup RollupID

	// SequencerHash is the CometBFT block hash, used only for logging and
	// metrics correlation. It plays no role in cache or ordering semantics.
	SequencerHash []byte

	// Time is the Sequencer's own block time, used to report ingestion lag.
	Time time.Time

	// Payload is the opaque rollup-specific block contents.
	Payload []byte
}
