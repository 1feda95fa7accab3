package sequencerclient

import (
	"context"
	"errors"
	"testing"

	cometTypes "github.com/cometbft/cometbft/types"

	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/stretchr/testify/require"

	"sequencer-reader/internal/block"
)

type fakeCometRPC struct {
	statusResults  []statusResult
	statusCalls    int
	genesisResults []genesisResult
	genesisCalls   int
}

type statusResult struct {
	status *coretypes.ResultStatus
	err    error
}

type genesisResult struct {
	genesis *coretypes.ResultGenesis
	err     error
}

func (f *fakeCometRPC) Status(ctx context.Context) (*coretypes.ResultStatus, error) {
	r := f.statusResults[f.statusCalls]
	f.statusCalls++
	return r.status, r.err
}

func (f *fakeCometRPC) Genesis(ctx context.Context) (*coretypes.ResultGenesis, error) {
	r := f.genesisResults[f.genesisCalls]
	f.genesisCalls++
	return r.genesis, r.err
}

func TestLatestHeightReturnsSyncInfoHeight(t *testing.T) {
	fake := &fakeCometRPC{statusResults: []statusResult{
		{status: &coretypes.ResultStatus{
			SyncInfo: coretypes.SyncInfo{LatestBlockHeight: 99},
		}},
	}}
	c := &cometHTTPClient{rpc: fake}

	got, err := c.LatestHeight(context.Background())
	require.NoError(t, err)
	require.Equal(t, block.Height(99), got)
}

func TestLatestHeightPropagatesError(t *testing.T) {
	fake := &fakeCometRPC{statusResults: []statusResult{
		{err: errors.New("connection refused")},
	}}
	c := &cometHTTPClient{rpc: fake}

	_, err := c.LatestHeight(context.Background())
	require.Error(t, err)
}

func TestChainIDRetriesThenSucceeds(t *testing.T) {
	fake := &fakeCometRPC{genesisResults: []genesisResult{
		{err: errors.New("timeout")},
		{genesis: &coretypes.ResultGenesis{Genesis: &cometTypes.GenesisDoc{ChainID: "sequencer-test-1"}}},
	}}
	c := &cometHTTPClient{rpc: fake}

	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sequencer-test-1", id)
	require.Equal(t, 2, fake.genesisCalls)
}

func TestChainIDGivesUpWhenContextCancelled(t *testing.T) {
	fake := &fakeCometRPC{genesisResults: []genesisResult{
		{err: errors.New("unreachable")},
	}}
	c := &cometHTTPClient{rpc: fake}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ChainID(ctx)
	require.Error(t, err)
}
