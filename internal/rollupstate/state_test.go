package rollupstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sequencer-reader/internal/block"
)

func TestWatchChangedBlocksUntilAdvance(t *testing.T) {
	w := NewWatch(Snapshot{NextExpectedHeight: 10})

	done := make(chan Snapshot, 1)
	go func() {
		snap, err := w.Changed(context.Background())
		require.NoError(t, err)
		done <- snap
	}()

	select {
	case <-done:
		t.Fatal("Changed returned before any advance")
	case <-time.After(20 * time.Millisecond):
	}

	w.Advance(15)

	select {
	case snap := <-done:
		require.Equal(t, block.Height(15), snap.NextExpectedHeight)
	case <-time.After(time.Second):
		t.Fatal("Changed did not wake after advance")
	}
}

func TestWatchAdvanceNeverLowers(t *testing.T) {
	w := NewWatch(Snapshot{NextExpectedHeight: 10})
	w.Advance(5)
	require.Equal(t, block.Height(10), w.Snapshot().NextExpectedHeight)
}

func TestWatchChangedIsEdgeTriggered(t *testing.T) {
	w := NewWatch(Snapshot{NextExpectedHeight: 10})
	w.Advance(20)

	snap, err := w.Changed(context.Background())
	require.NoError(t, err)
	require.Equal(t, block.Height(20), snap.NextExpectedHeight)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = w.Changed(ctx)
	require.Error(t, err, "second call without an intervening advance must block until ctx is done")
}

func TestWatchChangedReturnsCtxErrOnCancel(t *testing.T) {
	w := NewWatch(Snapshot{NextExpectedHeight: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Changed(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
