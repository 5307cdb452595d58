package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pilemap/pilemap/internal/config"
	"github.com/pilemap/pilemap/internal/core"
	"github.com/pilemap/pilemap/internal/logging"
	"github.com/pilemap/pilemap/internal/mapsync"
	"github.com/pilemap/pilemap/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_file_size", cfg.Upload.MaxFileSize,
		"base_style", cfg.Map.DefaultBaseStyle,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	notifier := core.NewRingNotifier(0, core.LogNotifier{})
	service := core.NewService(notifier)

	provider := mapsync.NewMemoryProvider(mapsync.Camera{
		Lng:  cfg.Map.DefaultCenterLng,
		Lat:  cfg.Map.DefaultCenterLat,
		Zoom: cfg.Map.DefaultZoom,
	})
	mapCtl := mapsync.NewController(provider, cfg.Map.DefaultBaseStyle)

	server := web.NewServer(cfg, service, mapCtl, provider, notifier)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
