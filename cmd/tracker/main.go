package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/storm-track-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/storm-track-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-track-service/internal/config"
	"github.com/couchcryptid/storm-track-service/internal/observability"
	"github.com/couchcryptid/storm-track-service/internal/options"
	"github.com/couchcryptid/storm-track-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Load tracking options, defaulting to the standard cell/anvil/mcs
	// hierarchy when no file is configured.
	trackOpts := options.DefaultTrack("synthetic")
	if cfg.TrackOptionsPath != "" {
		trackOpts, err = options.Load(cfg.TrackOptionsPath)
		if err != nil {
			logger.Error("failed to load track options", "path", cfg.TrackOptionsPath, "error", err)
			os.Exit(1)
		}
		logger.Info("track options loaded", "path", cfg.TrackOptionsPath)
	} else {
		logger.Info("using default track options")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	tracker := pipeline.New(reader, writer, trackOpts, logger, metrics, cfg.BatchSize, cfg.DedupeCacheSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, tracker, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start tracking pipeline. A configuration error (missing write
	// interval) terminates the run.
	trackerErr := make(chan error, 1)
	go func() {
		trackerErr <- tracker.Run(ctx)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-trackerErr:
		if err != nil {
			logger.Error("tracker error", "error", err)
			exitCode = 1
		}
	}
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

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}
