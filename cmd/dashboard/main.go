package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-damage-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-damage-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/storm-damage-dashboard/internal/adapter/mapbox"
	"github.com/couchcryptid/storm-damage-dashboard/internal/analytics"
	"github.com/couchcryptid/storm-damage-dashboard/internal/catalog"
	"github.com/couchcryptid/storm-damage-dashboard/internal/config"
	"github.com/couchcryptid/storm-damage-dashboard/internal/ingest"
	"github.com/couchcryptid/storm-damage-dashboard/internal/observability"
	"github.com/couchcryptid/storm-damage-dashboard/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	classifier := cat.Classifier()

	opts := []pipeline.Option{
		pipeline.WithClassifier(classifier),
		pipeline.WithLocator(cat),
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		opts = append(opts, pipeline.WithGeocoder(mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(writer, cfg.BatchSize))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}

	source := ingest.NewSource(cfg.DataSource, &http.Client{Timeout: cfg.LoadTimeout})
	parser := ingest.NewParser(logger, 0)
	p := pipeline.New(source, parser, logger, metrics, opts...)

	api := httpadapter.NewAPI(
		analytics.NewEngine(classifier),
		analytics.NewCalculator(cat.BaselineCost(), cat.Scenarios()),
		cat.Forecast(),
		analytics.LimitOptions(cfg.TopInstallations, cfg.TopEvents),
		logger,
	)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load the dataset once. Failures are logged by the pipeline and keep
	// /readyz failing.
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
		defer cancel()
		_, _ = p.Load(loadCtx)
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
