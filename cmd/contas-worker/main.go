package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"contas/internal/amqp"
	"contas/internal/backend"
	"contas/internal/config"
	"contas/internal/log"
	"contas/internal/storage"
	"contas/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Level: slog.LevelInfo, Component: "contas-worker"})
	log.SetDefault(logger)

	logger.Info("Starting contas-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// The worker reads from SQLite and pushes to the remote store, so it
	// needs both regardless of the app's configured backend.
	sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer sqliteRepo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Failed to build backend config", "error", err)
		os.Exit(1)
	}
	backendCfg.Type = backend.NocoDBBackend

	remote, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize remote store", "error", err)
		os.Exit(1)
	}
	if remote.Cleanup != nil {
		defer remote.Cleanup()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPSyncQueue, cfg.AMQPDeleteQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncWorker := worker.NewSyncWorker(sqliteRepo, remote.Store, cfg.SyncBatchSize)

	// On startup, push any bills written while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		err := amqpClient.ConsumeBillSync(ctx, func(msg *amqp.BillSyncMessage) error {
			return syncWorker.HandleSyncMessage(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Sync consumption failed", "error", err)
		}
		cancel()
	}()

	go func() {
		err := amqpClient.ConsumeBillDelete(ctx, func(msg *amqp.BillDeleteMessage) error {
			return syncWorker.HandleDeleteMessage(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Delete consumption failed", "error", err)
		}
		cancel()
	}()

	// Periodic sweep for bills whose sync message was lost.
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight handlers a moment to finish before the deferred
	// closes tear the channel down.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
