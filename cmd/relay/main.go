package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/joinquantish/privacy-relay/params"
	"github.com/joinquantish/privacy-relay/pkg/api"
	"github.com/joinquantish/privacy-relay/pkg/relay/chain"
	"github.com/joinquantish/privacy-relay/pkg/relay/deposit"
	"github.com/joinquantish/privacy-relay/pkg/relay/lifecycle"
	"github.com/joinquantish/privacy-relay/pkg/relay/proof"
	"github.com/joinquantish/privacy-relay/pkg/relay/store"
	"github.com/joinquantish/privacy-relay/pkg/relay/venue"
	"github.com/joinquantish/privacy-relay/pkg/scheduler"
	"github.com/joinquantish/privacy-relay/pkg/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = filepath.Join(cfg.DataDir, "relay.log")
	}
	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		sugar.Fatalw("data_dir_failed", "err", err)
	}

	snapshotPath := filepath.Join(cfg.DataDir, "snapshot.json")
	st, err := store.LoadSnapshot(snapshotPath, cfg.MaxBatchSize)
	if err != nil {
		sugar.Fatalw("snapshot_load_failed", "err", err)
	}

	db, err := pebble.Open(filepath.Join(cfg.DataDir, "deposits"), &pebble.Options{})
	if err != nil {
		sugar.Fatalw("pebble_open_failed", "err", err)
	}
	defer db.Close()

	// Venue and chain are simulated by default for development and testing;
	// a production deployment swaps these for real venue/RPC adapters behind
	// the same venue.Executor and chain.Watcher/Sender interfaces.
	sim := venue.NewSimVenue(time.Now().UnixNano())
	watcher := chain.NewSimWatcher()
	sender := chain.NewSimSender()

	lc := &lifecycle.Lifecycle{
		Store:          st,
		Venue:          sim,
		Prover:         proof.LocalProver{},
		Sender:         sender,
		Log:            logger,
		CustodyAddress: cfg.CustodyAddress,
		DepositExpiry:  cfg.DepositExpiry,
	}

	matcher := &deposit.Matcher{
		Watcher:         watcher,
		Sender:          sender,
		Lifecycle:       lc,
		Store:           st,
		DB:              db,
		Log:             logger,
		ToleranceMicros: cfg.AmountMatchToleranceMicros,
	}

	sched := &scheduler.Scheduler{
		Store:              st,
		Lifecycle:          lc,
		Log:                logger,
		Tick:               cfg.SchedulerTick,
		BatchTimeout:       cfg.BatchTimeout,
		MinBatchSize:       cfg.MinBatchSize,
		UnmatchedRetention: cfg.UnmatchedRetention,
		MaxConcurrentExecs: 4,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sched.Run(ctx)

	go func() {
		ticker := time.NewTicker(cfg.DepositPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := matcher.Poll(ctx); err != nil {
					sugar.Warnw("deposit_poll_failed", "err", err)
				}
			}
		}
	}()

	server := api.NewServer(lc, st, sender, logger, cfg.CustodyAddress)
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr); err != nil {
			sugar.Fatalw("http_server_failed", "err", err)
		}
	}()

	sugar.Infow("relay_started",
		"http_addr", cfg.HTTPAddr,
		"max_batch_size", cfg.MaxBatchSize,
		"custody_address", cfg.CustodyAddress)

	<-ctx.Done()
	sugar.Info("shutting_down")

	// Give in-flight HTTP requests and the scheduler tick a moment to drain
	// before the snapshot is taken.
	time.Sleep(200 * time.Millisecond)

	if err := st.WriteSnapshot(snapshotPath); err != nil {
		sugar.Errorw("snapshot_write_failed", "err", err)
	}
}
