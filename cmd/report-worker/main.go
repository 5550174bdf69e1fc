package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/LorenzoCW/dnd-investments/internal/config"
	"github.com/LorenzoCW/dnd-investments/internal/events"
	applog "github.com/LorenzoCW/dnd-investments/internal/log"
	"github.com/LorenzoCW/dnd-investments/internal/report"
	"github.com/LorenzoCW/dnd-investments/internal/store/redisstore"
	"github.com/LorenzoCW/dnd-investments/internal/worker"
)

// report-worker consumes board events and mirrors the authoritative board
// into the local SQLite report database.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting report-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.DataBackend != "redis" {
		logger.Error("The report worker mirrors the shared board and requires the redis backend",
			"backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the report worker")
		os.Exit(1)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	boardStore := redisstore.New(client, cfg.RedisKeyPrefix)

	repo, err := report.NewRepository(cfg.ReportDBPath)
	if err != nil {
		logger.Error("Failed to initialize report repository", "error", err, "path", cfg.ReportDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportWorker := worker.NewReportWorker(boardStore, repo)

	// Mirror whatever is on the board now, then follow events.
	logger.Info("Performing startup sync...")
	if err := reportWorker.StartupSync(ctx); err != nil {
		logger.Error("Startup sync failed", "error", err)
		// Don't exit - the event stream will converge the mirror.
	}

	logger.Info("Consuming board events", "queue", cfg.AMQPQueue)
	err = amqpClient.ConsumeBoardEvents(ctx, func(ev events.BoardEvent) error {
		return reportWorker.HandleBoardEvent(ctx, ev)
	})
	if err != nil && err != context.Canceled {
		logger.Error("Event consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Report worker stopped gracefully")
}
