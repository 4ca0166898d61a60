package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/carpark-etl/internal/adapter/datagov"
	"github.com/couchcryptid/carpark-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/carpark-etl/internal/adapter/kafka"
	"github.com/couchcryptid/carpark-etl/internal/adapter/source"
	"github.com/couchcryptid/carpark-etl/internal/config"
	"github.com/couchcryptid/carpark-etl/internal/observability"
	"github.com/couchcryptid/carpark-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opener, err := source.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to configure static source", "error", err)
		os.Exit(1)
	}
	logger.Info("static source configured", "location", opener.Location())

	p := pipeline.New(
		pipeline.NewStaticLoader(opener),
		datagov.NewClient(cfg.FeedURL, cfg.FeedTimeout, metrics),
		logger,
		metrics,
	)

	// Publishing is feature-flagged via KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("snapshot publishing disabled")
	}

	refresher := pipeline.NewRefresher(p, publisher, cfg.RefreshInterval, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, refresher, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
