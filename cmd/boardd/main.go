package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/LorenzoCW/dnd-investments/internal/board"
	"github.com/LorenzoCW/dnd-investments/internal/config"
	"github.com/LorenzoCW/dnd-investments/internal/events"
	apphttp "github.com/LorenzoCW/dnd-investments/internal/http"
	applog "github.com/LorenzoCW/dnd-investments/internal/log"
	"github.com/LorenzoCW/dnd-investments/internal/report"
	"github.com/LorenzoCW/dnd-investments/internal/store"
	"github.com/LorenzoCW/dnd-investments/internal/store/memory"
	"github.com/LorenzoCW/dnd-investments/internal/store/redisstore"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose the persistence backend. The redis backend is authoritative and
	// multi-client; memory is single-process.
	var backingStore store.Store
	switch cfg.DataBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		backingStore = redisstore.New(client, cfg.RedisKeyPrefix)
		logger.Info("Initialized redis backend", "backend", cfg.DataBackend, "addr", cfg.RedisAddr)
	default:
		backingStore = memory.NewSeeded()
		logger.Info("Initialized memory backend", "backend", cfg.DataBackend)
	}

	// AMQP is optional: without it the report mirror simply receives no events.
	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	caps := board.AllCapabilities()
	if cfg.ReadOnly {
		caps = board.Capabilities{}
		logger.Info("Board running read-only")
	}

	manager := board.New(backingStore, caps, publisher, logger.Logger)
	defer manager.Teardown()

	if err := manager.Connect(context.Background()); err != nil {
		var warning *board.FallbackWarning
		if !errors.As(err, &warning) {
			logger.Error("Failed to connect board manager", "error", err)
			os.Exit(1)
		}
		// The board stays usable on local persistence.
		logger.Warn("Starting with local-only persistence", "error", warning.Cause)
	}

	// The report mirror is read through the same database the worker writes.
	var reports apphttp.ReportReader
	if repo, err := report.NewRepository(cfg.ReportDBPath); err != nil {
		logger.Warn("Report mirror unavailable", "error", err, "path", cfg.ReportDBPath)
	} else {
		defer repo.Close()
		reports = repo
	}

	srv := apphttp.NewServer(":"+cfg.Port, manager, reports, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting board server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
