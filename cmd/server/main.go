// Package main implements the video management service entry point.
//
// Startup sequence:
//  1. Load and validate configuration (internal/config)
//  2. Initialize structured logging
//  3. Read STORAGE_PATH and ENCRYPTION_KEY from the environment
//  4. Build the metadata store gateway (retry + circuit breaker over an
//     in-memory gateway; swap for a durable backend without touching
//     callers)
//  5. Build the ingest supervisor, live publisher, VOD engine,
//     reconciler, retention engine, and health scheduler
//  6. Build the Gateway that exposes §6's abstract operations
//  7. Run the health scheduler's periodic loops until a shutdown signal
//
// Graceful shutdown drains through the scheduler in this order: live
// publishers, the ingest supervisor, the scheduler's store ping/sweep/
// retention loops, then the store.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/camerarecorder/vms-core/internal/clock"
	"github.com/camerarecorder/vms-core/internal/config"
	"github.com/camerarecorder/vms-core/internal/crypto"
	"github.com/camerarecorder/vms-core/internal/finalizer"
	"github.com/camerarecorder/vms-core/internal/gateway"
	"github.com/camerarecorder/vms-core/internal/health"
	"github.com/camerarecorder/vms-core/internal/ingest"
	"github.com/camerarecorder/vms-core/internal/live"
	"github.com/camerarecorder/vms-core/internal/logging"
	"github.com/camerarecorder/vms-core/internal/reconciler"
	"github.com/camerarecorder/vms-core/internal/retention"
	"github.com/camerarecorder/vms-core/internal/store"
	"github.com/camerarecorder/vms-core/internal/vod"
)

func main() {
	configManager := config.CreateConfigManager()
	configPath := os.Getenv("VMS_CONFIG_PATH")
	if configPath == "" {
		configPath = "config/default.yaml"
	}
	if err := configManager.LoadConfig(configPath); err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg := configManager.GetConfig()

	if err := logging.SetupLogging(&logging.LoggingConfig{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		MaxFileSize:    int(cfg.Logging.MaxFileSize),
		BackupCount:    cfg.Logging.BackupCount,
		ConsoleEnabled: cfg.Logging.ConsoleEnabled,
	}); err != nil {
		log.Fatalf("failed to configure logging: %v", err)
	}
	configManager.RegisterLoggingConfigurationUpdates()

	logger := logging.GetLogger("vms")
	logger.Info("starting video management service")

	storagePath := os.Getenv("STORAGE_PATH")
	if storagePath == "" {
		storagePath = cfg.Storage.RootDir
	}
	if storagePath == "" {
		logger.Fatal("STORAGE_PATH is not set and storage.root_dir has no default")
	}

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if err := crypto.ValidateEncryptionKey(encryptionKey); err != nil {
		logger.WithError(err).Fatal("ENCRYPTION_KEY is invalid")
	}

	clk := clock.NewReal()
	gw := store.NewRetryingGateway(store.NewMemoryGateway(), logger)

	spawner := ingest.NewExecSpawner()
	runner := vod.NewExecRunner()
	encKey := []byte(encryptionKey)

	fin := finalizer.New(gw, logger, clk)
	supervisor := ingest.NewSupervisor(gw, logger, clk, spawner, fin, storagePath, encKey)
	publisher := live.NewPublisher(logger, clk, spawner, storagePath, encKey)
	vodEngine := vod.New(gw, logger, runner, storagePath)
	recon := reconciler.New(gw, logger, clk, storagePath)
	retentionEngine := retention.New(gw, logger, clk, storagePath)
	monitor := health.NewHealthMonitor("1.0.0")

	maxStorageBytes := cfg.Retention.MaxStorageGB * 1024 * 1024 * 1024
	scheduler := health.NewScheduler(gw, supervisor, publisher, retentionEngine, monitor, logger,
		maxStorageBytes, cfg.Retention.MaxStoragePercent)

	hub := gateway.NewHub(logger)
	// The Gateway composes every core subsystem behind §6's abstract
	// operations; the external HTTP layer that calls it is out of scope
	// here (§1) and is wired in by whatever process embeds this service.
	_ = gateway.New(gw, supervisor, publisher, vodEngine, recon, scheduler, hub, logger)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Run(ctx)
	logger.Info("video management service started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("received shutdown signal, draining")

	cancel()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer drainCancel()

	if err := scheduler.Drain(drainCtx); err != nil {
		logger.WithError(err).Error("shutdown drain did not complete cleanly")
		os.Exit(1)
	}

	logger.Info("video management service stopped")
}
