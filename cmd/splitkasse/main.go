package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"splitkasse/internal/amqp"
	"splitkasse/internal/cache"
	"splitkasse/internal/cli"
	apphttp "splitkasse/internal/http"
	"splitkasse/internal/log"
	"splitkasse/internal/services"
)

const overviewCacheSize = 64

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(context.Background(), logger, cfg)
	defer repo.Close()

	overviews := cache.NewLRUCache[services.MonthOverview](overviewCacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(overviews)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	opts := []services.Option{
		services.WithCache(overviews),
		services.WithLogger(logger),
	}

	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
		logger.Info("Month-closed events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - closed months are not published")
	}

	svc := services.NewMonthService(repo, opts...)
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		DevMode:            cfg.DevMode,
		ClosedMonthsLimit:  cfg.ClosedMonthsLimit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              repo.Ping,
		Logger:             logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting splitkasse server", "port", cfg.Port, "dev_mode", cfg.DevMode, log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
