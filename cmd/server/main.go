// Command server runs the realtime ASR gateway: a WebSocket endpoint
// speaking the bidirectional session/audio event protocol, backed by a
// pooled connection to the transcription backend.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/config"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/observe"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/server"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/session"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/transcriber"
	"github.com/RookieZoe/qwen3-asr-realtime-api/internal/vad"
)

// maxConcurrentBackendCalls bounds how many transcriber.Backend calls run
// at once across every session sharing the process's Pool.
const maxConcurrentBackendCalls = 8

// forceExitGrace mirrors the reference server's watchdog: the forced-exit
// timer is the configured graceful shutdown budget plus this margin, so it
// never fires before the shutdown context itself expires.
const forceExitGrace = 5 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	cfg := config.Load()

	var shutdownMetrics func(context.Context) error
	var metrics *observe.Metrics
	if cfg.OTelMetricsEnabled {
		shutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
			ServiceVersion: "1.0.0",
		})
		if err != nil {
			slog.Error("failed to initialize metrics provider", "error", err)
			os.Exit(1)
		}
		shutdownMetrics = shutdown
		metrics = observe.DefaultMetrics()
	}

	backend := transcriber.NewHTTPBackend(cfg.ASRBackendAddr)
	pool := transcriber.NewPool(backend, maxConcurrentBackendCalls)

	var newVAD session.DetectorFactory = func() vad.Detector { return vad.NewEnergyDetector() }

	srv := server.New(cfg, pool, newVAD, metrics)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: 0, // the realtime endpoint streams indefinitely
	}

	go func() {
		slog.Info("gateway starting", "http", cfg.HTTPAddr, "backend", cfg.ASRBackendAddr, "websocket_path", server.RealtimePath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutdown signal received")

	// Forced-exit watchdog: if graceful shutdown hangs, don't wait forever.
	forceExitDelay := time.Duration(cfg.ShutdownTimeoutSec)*time.Second + forceExitGrace
	forceExit := time.AfterFunc(forceExitDelay, func() {
		slog.Error("graceful shutdown timed out, forcing exit")
		os.Exit(1)
	})
	defer forceExit.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	if shutdownMetrics != nil {
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Error("metrics shutdown error", "error", err)
		}
	}

	slog.Info("shutdown complete")
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
