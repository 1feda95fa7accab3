package latestheight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sequencer-reader/internal/block"
)

type scriptedSource struct {
	results []Result
	calls   int
}

func (s *scriptedSource) LatestHeight(ctx context.Context) (block.Height, error) {
	r := s.results[s.calls%len(s.results)]
	s.calls++
	return r.Height, r.Err
}

func TestPollerEmitsOnEveryTickIncludingErrors(t *testing.T) {
	source := &scriptedSource{results: []Result{
		{Err: errors.New("unreachable")},
		{Err: errors.New("unreachable")},
		{Err: errors.New("unreachable")},
		{Height: 50},
	}}
	p := New(source, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	var results []Result
	for i := 0; i < 4; i++ {
		select {
		case r := <-p.C():
			results = append(results, r)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for poll result")
		}
	}

	require.Error(t, results[0].Err)
	require.Error(t, results[1].Err)
	require.Error(t, results[2].Err)
	require.NoError(t, results[3].Err)
	require.Equal(t, block.Height(50), results[3].Height)
}

func TestPollerClosesChannelOnCancel(t *testing.T) {
	source := &scriptedSource{results: []Result{{Height: 1}}}
	p := New(source, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	<-p.C()
	cancel()

	require.Eventually(t, func() bool {
		_, ok := <-p.C()
		return !ok
	}, time.Second, time.Millisecond)
}
