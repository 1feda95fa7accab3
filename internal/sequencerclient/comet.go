package sequencerclient

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	cometrpc "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"

	"sequencer-reader/internal/block"
	"sequencer-reader/internal/logging"
)

// CometClient is the subset of the CometBFT HTTP/RPC surface the reader
// needs: the latest committed height, and the genesis chain id.
type CometClient interface {
	LatestHeight(ctx context.Context) (block.Height, error)
	ChainID(ctx context.Context) (string, error)
}

// cometRPC is the slice of *cometrpc.HTTP this package actually calls,
// narrowed out so tests can substitute a fake without dialing a real
// CometBFT node.
type cometRPC interface {
	Status(ctx context.Context) (*coretypes.ResultStatus, error)
	Genesis(ctx context.Context) (*coretypes.ResultGenesis, error)
}

// cometHTTPClient adapts cometbft's generated RPC client to CometClient.
type cometHTTPClient struct {
	rpc cometRPC
}

// NewCometClient dials the CometBFT RPC endpoint. Mirrors the teacher's
// cosmosclient.NewRpcClient construction of an http.HTTP client.
func NewCometClient(endpoint string) (CometClient, error) {
	rpc, err := cometrpc.New(endpoint, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("dial sequencer cometbft endpoint: %w", err)
	}
	return &cometHTTPClient{rpc: rpc}, nil
}

func (c *cometHTTPClient) LatestHeight(ctx context.Context) (block.Height, error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, err
	}
	return block.Height(status.SyncInfo.LatestBlockHeight), nil
}

// ChainID fetches the Sequencer's genesis chain id, retrying with
// unbounded exponential backoff capped at a 20s delay, matching the
// startup retry policy used for the genesis RPC in the original reader.
func (c *cometHTTPClient) ChainID(ctx context.Context) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialBackoff
	policy.MaxInterval = maxBackoff
	policy.MaxElapsedTime = 0 // unbounded; only shutdown/ctx cancellation stops it

	withCtx := backoff.WithContext(policy, ctx)

	var chainID string
	attempt := 0
	operation := func() error {
		attempt++
		genesis, err := c.rpc.Genesis(ctx)
		if err != nil {
			logging.Warn("attempt to fetch sequencer genesis info; retrying after backoff",
				logging.SequencerGrpc, "attempt", attempt, "error", err)
			return err
		}
		chainID = genesis.Genesis.ChainID
		return nil
	}

	if err := backoff.Retry(operation, withCtx); err != nil {
		return "", fmt.Errorf("failed to get genesis info from sequencer after a lot of attempts: %w", err)
	}
	return chainID, nil
}
