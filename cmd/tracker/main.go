package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ore-miner-bot-go/internal/config"
	"ore-miner-bot-go/internal/database"
	"ore-miner-bot-go/internal/ledger"
	"ore-miner-bot-go/internal/logger"
	"ore-miner-bot-go/internal/miner"
	"ore-miner-bot-go/internal/tracker"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	if cfg.Miner.Authority == "" {
		log.Fatal("miner.authority must be set")
	}

	// History survives restarts through the ledger file; a broken file starts fresh.
	rounds := ledger.LoadOrCreate(cfg.Ledger.Path, log)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	var archive tracker.Archiver
	if cfg.Database.DSN != "" {
		db, err := database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			log.Fatal("Failed to open round archive", zap.Error(err))
		}
		roundArchive := database.NewRoundArchive(db)
		if err := roundArchive.Backfill(ctx, rounds.Records()); err != nil {
			log.Warn("Failed to backfill round archive", zap.Error(err))
		}
		archive = roundArchive
		log.Info("Round archive ready", zap.String("dsn", cfg.Database.DSN))
	}

	client := miner.NewRestClient(&cfg.Miner, log)
	if _, err := client.GetServerTime(ctx); err != nil {
		log.Fatal("Failed to connect to miner API", zap.Error(err))
	}
	log.Info("Successfully connected to miner API.")

	roundTracker := tracker.NewTracker(log, &cfg, client, rounds, archive, os.Stdout)

	apiServer := tracker.NewAPIServer(roundTracker, cfg.Server.Port, log)
	apiServer.Start()

	roundTracker.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop API server", zap.Error(err))
	}

	log.Info("Tracker has been shut down.")
}
