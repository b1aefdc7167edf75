package main

import (
	"context"
	"errors"
	"os"
	"time"

	"splitkasse/internal/amqp"
	"splitkasse/internal/cli"
	"splitkasse/internal/log"
	"splitkasse/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting archive worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(context.Background(), logger, cfg)
	defer repo.Close()

	archive, err := cli.NewArchive(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize archive", log.FieldError, err, "backend", cfg.ArchiveBackend)
		os.Exit(1)
	}
	logger.Info("Archive initialized", "backend", cfg.ArchiveBackend)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	archiveWorker := worker.NewArchiveWorker(repo, archive, cfg.ClosedMonthsLimit)

	// Catch up on months closed while the worker was down.
	if err := archiveWorker.StartupArchiveCheck(ctx); err != nil {
		logger.Error("Startup archive check failed", log.FieldError, err)
	}

	if err := amqpClient.ConsumeMonthClosed(ctx, archiveWorker.HandleMonthClosed); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err, log.FieldOperation, log.OpConsume)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Archive worker stopped")
}
