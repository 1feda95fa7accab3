// Package config loads the reader's startup configuration from a YAML
// file, overlaid by SEQREADER_-prefixed environment variables, the way
// the rest of this codebase's services load theirs.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"sequencer-reader/internal/logging"
)

// Config enumerates the options the reader's composition root needs to
// wire a Reader: rollup_state_source and executor_channel are provided
// in-process by the caller rather than loaded here, since they aren't
// representable as plain config values.
type Config struct {
	SequencerGrpcEndpoint     string        `koanf:"sequencer_grpc_endpoint"`
	SequencerCometbftEndpoint string        `koanf:"sequencer_cometbft_endpoint"`
	SequencerBlockTime        time.Duration `koanf:"sequencer_block_time"`
	ExpectedChainID           string        `koanf:"expected_chain_id"`
	RollupID                  string        `koanf:"rollup_id"`
	CacheCapacity             uint64        `koanf:"cache_capacity"`
	ExecutorChannelCapacity   int           `koanf:"executor_channel_capacity"`
	HTTPAddr                  string        `koanf:"http_addr"`
}

func defaults() Config {
	return Config{
		SequencerBlockTime:      2 * time.Second,
		CacheCapacity:           1000,
		ExecutorChannelCapacity: 16,
		HTTPAddr:                ":8080",
	}
}

// Load reads path as YAML, overlays SEQREADER_-prefixed environment
// variables (double underscore maps to a nested key separator), and
// unmarshals into a Config seeded with sane defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	cfg := defaults()
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, err
	}
	if err := k.Load(env.Provider("SEQREADER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SEQREADER_")), "__", ".", -1)
	}), nil); err != nil {
		return Config{}, err
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}

	logging.Info("loaded configuration", logging.Config,
		"sequencer_grpc_endpoint", cfg.SequencerGrpcEndpoint,
		"sequencer_cometbft_endpoint", cfg.SequencerCometbftEndpoint,
		"sequencer_block_time", cfg.SequencerBlockTime,
		"cache_capacity", cfg.CacheCapacity)

	return cfg, nil
}
