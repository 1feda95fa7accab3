// Command conductor-reader is the composition root for the Sequencer
// Reader: it loads configuration, wires the transport, cache, and
// reader components together, and serves a health/metrics surface
// alongside the run loop.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"sequencer-reader/internal/block"
	"sequencer-reader/internal/config"
	"sequencer-reader/internal/httpapi"
	"sequencer-reader/internal/latestheight"
	"sequencer-reader/internal/logging"
	"sequencer-reader/internal/metrics"
	"sequencer-reader/internal/reader"
	"sequencer-reader/internal/rollupstate"
	"sequencer-reader/internal/sequencerclient"
)

// unimplementedBlockTransport is the seam where a generated Sequencer
// gRPC client would be plugged in; protobuf codegen for that service is
// out of scope for this repository.
type unimplementedBlockTransport struct {
	conn *grpc.ClientConn
}

func (t *unimplementedBlockTransport) GetFilteredBlock(ctx context.Context, rollupID block.RollupID, height block.Height) (block.FilteredBlock, error) {
	return block.FilteredBlock{}, sequencerclient.NewFatalError(
		fmt.Errorf("no generated SequencerService client wired for %s at height %d", rollupID, height))
}

func main() {
	runID := uuid.NewString()
	logging.Info("starting conductor-reader", logging.System, "run_id", runID)

	configPath := os.Getenv("CONDUCTOR_READER_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := metrics.New()

	comet, err := sequencerclient.NewCometClient(cfg.SequencerCometbftEndpoint)
	if err != nil {
		log.Fatalf("dialing sequencer cometbft endpoint: %v", err)
	}

	grpcConn, err := grpc.NewClient(cfg.SequencerGrpcEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dialing sequencer grpc endpoint: %v", err)
	}
	defer grpcConn.Close()

	fetchClient := sequencerclient.NewGrpcFetchClient(
		&unimplementedBlockTransport{conn: grpcConn},
		sequencerclient.WithRetryObserver(recorder.FetchRetried),
	)

	stopHeight := (*block.Height)(nil)
	rollupState := rollupstate.NewWatch(rollupstate.Snapshot{
		NextExpectedHeight: 1,
		StopHeight:         stopHeight,
		RollupID:           block.RollupID(cfg.RollupID),
		SequencerChainID:   cfg.ExpectedChainID,
	})

	poller := latestheight.New(comet, cfg.SequencerBlockTime)
	executor := reader.NewChannelExecutor(cfg.ExecutorChannelCapacity)

	r := reader.New(reader.Config{
		ExpectedChainID: cfg.ExpectedChainID,
		CacheCapacity:   cfg.CacheCapacity,
	}, comet, fetchClient, rollupState, poller, executor, recorder)

	running, err := r.Initialize(ctx)
	if err != nil {
		log.Fatalf("initializing reader: %v", err)
	}

	healthy := true
	httpServer := httpapi.New(func() bool { return healthy })
	httpServer.Start(cfg.HTTPAddr)

	go func() {
		for b := range executor.C() {
			logging.Debug("delivered block to executor", logging.Reader, "height", b.Height)
		}
	}()

	exitReason, runErr := running.Run(ctx)
	healthy = false

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Warn("http server shutdown error", logging.System, "error", err)
	}

	if runErr != nil {
		logging.Error("reader exited with a fatal error", logging.Reader, "error", runErr)
		os.Exit(1)
	}
	logging.Info("reader exited normally", logging.Reader, "reason", string(exitReason))
}
