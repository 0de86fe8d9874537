package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deluthium/darkpool-mm/internal/config"
	"github.com/deluthium/darkpool-mm/internal/runner"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	// Load .env before config so env-referenced credentials resolve
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("Starting DarkPool market maker",
		"app", cfg.App.Name,
		"configPath", *configPath,
		"pairs", len(cfg.Pairs),
		"domains", len(cfg.EIP712Domains))

	// Create supervisor
	sup, err := runner.New(cfg, logger)
	if err != nil {
		logger.Error("Failed to create supervisor", "error", err)
		os.Exit(1)
	}

	// Optional Prometheus endpoint
	if cfg.Metrics.ListenAddr != "" {
		reg := prometheus.NewRegistry()
		sup.Metrics().Register(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Info("Serving metrics", "addr", cfg.Metrics.ListenAddr)
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
				logger.Error("Metrics server stopped", "error", err)
			}
		}()
	}

	// Run until a signal arrives or the session stops cleanly
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sup.Run(ctx); err != nil {
		logger.Error("Service error", "error", err)
		os.Exit(1)
	}

	m := sup.Metrics()
	logger.Info("Shutdown complete",
		"quotesReceived", m.QuotesReceived.Load(),
		"quotesResponded", m.QuotesResponded.Load(),
		"quotesRejected", m.QuotesRejected.Load(),
		"depthPushes", m.DepthPushes.Load(),
		"reconnections", m.Reconnections.Load())
}

// setupLogger initializes the logger
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	// Create logs directory
	if err := os.MkdirAll("logs", 0755); err != nil {
		slog.Error("Failed to create logs directory", "error", err)
	}

	// Open log file
	logFile, err := os.OpenFile("logs/mm.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
		// Fallback to stdout
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: lvl,
		}))
	}

	// Output to both file and stdout
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	return slog.New(slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level: lvl,
	}))
}
