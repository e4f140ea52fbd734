package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/chaos-meter/internal/adapter/httpapi"
	kafkaadapter "github.com/couchcryptid/chaos-meter/internal/adapter/kafka"
	"github.com/couchcryptid/chaos-meter/internal/adapter/upstream"
	"github.com/couchcryptid/chaos-meter/internal/anim"
	"github.com/couchcryptid/chaos-meter/internal/config"
	"github.com/couchcryptid/chaos-meter/internal/controller"
	"github.com/couchcryptid/chaos-meter/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	fetcher := upstream.NewClient(cfg.SnapshotURL, cfg.FetchTimeout,
		cfg.FetchRateLimit, cfg.FetchRateBurst, clk, metrics, logger)

	// Kafka broadcast is feature-flagged via CHAOS_KAFKA_ENABLED.
	var broadcaster controller.Broadcaster
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		broadcaster = publisher
		logger.Info("kafka broadcast enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka broadcast disabled")
	}

	seq := anim.New(clk, rng, logger, metrics)
	ctrl := controller.New(cfg, fetcher, broadcaster, seq, clk, rng, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, ctrl, ctrl, cfg.DashboardCacheTTL, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the dashboard engine.
	go func() {
		if err := ctrl.Run(ctx); err != nil {
			logger.Error("controller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
