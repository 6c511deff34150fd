// Package main is the entry point for the math search daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/texmath/mathsearch/internal/analytics"
	"github.com/texmath/mathsearch/internal/blobstore"
	"github.com/texmath/mathsearch/internal/config"
	"github.com/texmath/mathsearch/internal/searchd"
	"github.com/texmath/mathsearch/internal/textindex"
	"github.com/texmath/mathsearch/pkg/mathindex"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.DefaultServerConfig()
	if path := getEnv("SEARCHD_CONFIG", ""); path != "" {
		loaded, err := config.LoadServerConfig(path)
		if err != nil {
			logger.Error("failed to load server config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if addr := getEnv("SEARCHD_ADDR", ""); addr != "" {
		cfg.Addr = addr
	}
	if dir := getEnv("SEARCHD_INDEX_DIR", ""); dir != "" {
		cfg.IndexDir = dir
	}

	idx, err := mathindex.OpenRead(cfg.IndexDir, cfg.CacheBudgetBytes)
	if err != nil {
		logger.Error("failed to open math index", "dir", cfg.IndexDir, "error", err)
		os.Exit(1)
	}

	text := textindex.New()

	var blobs *blobstore.Store
	if dbPath := getEnv("SEARCHD_BLOB_DB", ""); dbPath != "" {
		blobs, err = blobstore.Open(blobstore.DefaultConfig(dbPath))
		if err != nil {
			logger.Error("failed to open blob store", "error", err)
			os.Exit(1)
		}
	}

	var statsSink *analytics.Sink
	if cfg.ClickHouse.Enabled {
		connCfg := &analytics.ConnectionConfig{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		conn, err := analytics.Connect(ctx, connCfg)
		cancel()
		if err != nil {
			logger.Error("failed to connect to clickhouse, continuing without analytics", "error", err)
		} else {
			statsSink = analytics.NewSink(conn, logger)
		}
	}

	server := searchd.NewServer(cfg, idx, text, blobs, statsSink, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("search daemon error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("fatal server error", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down search daemon", "error", err)
	}
	if statsSink != nil {
		if err := statsSink.Close(shutdownCtx); err != nil {
			logger.Error("error closing analytics sink", "error", err)
		}
	}
	if blobs != nil {
		if err := blobs.Close(); err != nil {
			logger.Error("error closing blob store", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
