// Package main provides the API server entry point.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lllypuk/collabfront/internal/config"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// Shutdown constants.
const (
	gracefulShutdownSleep = 100 * time.Millisecond
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		//nolint:sloglint // No context available before logger setup
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := setupLogger(cfg)

	logger.Info("starting collabfront server",
		slog.String("version", version),
		slog.String("environment", getEnvironment(cfg)),
	)

	container, err := NewContainer(cfg, WithLogger(logger))
	if err != nil {
		logger.Error("failed to build container", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Stops the hub and the bus subscription once the HTTP server has drained.
	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	if startErr := container.Start(appCtx); startErr != nil {
		logger.Error("failed to start background services", slog.String("error", startErr.Error()))
		_ = container.Close()
		os.Exit(1) //nolint:gocritic // Intentional exit after cleanup
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stopSignals()

	server := httpserver.NewServer(SetupRoutes(container).Echo(), httpserver.ServerConfig{
		Address:         cfg.Server.Address(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	runErr := server.Run(sigCtx)
	if runErr != nil {
		logger.Error("server error", slog.String("error", runErr.Error()))
	}

	shutdown(stopApp, container, logger)
	if runErr != nil {
		os.Exit(1) //nolint:gocritic // Resources are already released
	}
}

// setupLogger creates and configures the structured logger based on configuration.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	level := parseLogLevel(cfg.Log.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.IsDevelopment(),
	}

	switch cfg.Log.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default: // "json" or any other value defaults to JSON
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler).With(slog.String("app", cfg.App.Name))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnvironment returns the environment name based on configuration.
func getEnvironment(cfg *config.Config) string {
	if cfg.IsProduction() {
		return config.EnvProduction
	}
	if cfg.App.Env == "" {
		return "unknown"
	}
	return cfg.App.Env
}

// shutdown stops the background services and releases the container once
// the HTTP server is down.
func shutdown(stopApp context.CancelFunc, container *Container, logger *slog.Logger) {
	stopApp()
	time.Sleep(gracefulShutdownSleep)

	if err := container.Close(); err != nil {
		logger.Error("container close error", slog.String("error", err.Error()))
	}
	logger.Info("server shutdown complete")
}
