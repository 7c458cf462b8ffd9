package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/yieldprophet-runner/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/yieldprophet-runner/internal/adapter/kafka"
	"github.com/couchcryptid/yieldprophet-runner/internal/adapter/silo"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive"
	"github.com/couchcryptid/yieldprophet-runner/internal/config"
	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/pipeline"
	"github.com/couchcryptid/yieldprophet-runner/internal/simspec"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := silo.NewProvider(silo.Options{
		BaseURL:   cfg.WeatherBaseURL,
		Timeout:   cfg.WeatherTimeout,
		CacheSize: cfg.WeatherCacheSize,
		CachePath: cfg.WeatherCachePath,
	}, metrics, logger)
	if err != nil {
		logger.Error("failed to create weather provider", "error", err)
		os.Exit(1)
	}
	logger.Info("weather provider configured",
		"cache_size", cfg.WeatherCacheSize,
		"cache_path", cfg.WeatherCachePath,
		"timeout", cfg.WeatherTimeout,
	)

	rules, err := simspec.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error("failed to load soil rules", "error", err, "path", cfg.RulesPath)
		os.Exit(1)
	}

	store, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		logger.Error("failed to open archive", "error", err, "driver", cfg.Archive.Driver)
		os.Exit(1)
	}
	logger.Info("archive configured", "driver", store.Driver())

	synth := weather.NewSynthesizer(provider, nil, logger)
	builder := simspec.NewBuilder(synth, rules, cfg.LongTermYears, logger)
	archiver := archive.NewArchiver(store, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(builder, archiver, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start job pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if err := provider.Close(); err != nil {
		logger.Error("weather cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}
