package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sequencer-reader/internal/config"
)

const testYaml = `
sequencer_grpc_endpoint: sequencer-grpc:8080
sequencer_cometbft_endpoint: http://sequencer-cometbft:26657
sequencer_block_time: 2s
expected_chain_id: astria-1
rollup_id: 0102030405060708
cache_capacity: 500
`

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	path := writeTestConfig(t, testYaml)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "sequencer-grpc:8080", cfg.SequencerGrpcEndpoint)
	require.Equal(t, "astria-1", cfg.ExpectedChainID)
	require.Equal(t, uint64(500), cfg.CacheCapacity)
	require.Equal(t, 2*time.Second, cfg.SequencerBlockTime)
	// Not set in the YAML; should fall back to the built-in default.
	require.Equal(t, 16, cfg.ExecutorChannelCapacity)
	require.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeTestConfig(t, testYaml)

	os.Setenv("SEQREADER_EXPECTED_CHAIN_ID", "astria-2")
	defer os.Unsetenv("SEQREADER_EXPECTED_CHAIN_ID")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "astria-2", cfg.ExpectedChainID)
}
