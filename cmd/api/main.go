package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pocket-calc/internal/config"
	"pocket-calc/internal/mcptools"
	"pocket-calc/internal/observability"
	"pocket-calc/internal/server"
	"pocket-calc/internal/session"
)

func main() {

	ctx := context.Background()

	// Config
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	// Logger, tracing, metrics
	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer observability.SyncLogger()
	defer telemetryShutdown(ctx)

	logger := observability.Logger

	// Sessions
	store := session.NewStore(cfg.SessionTTL, cfg.SessionCleanupInterval, logger)
	prometheus.MustRegister(store.Collector())

	// Router
	opts := server.Options{Store: store}
	if cfg.MCPEnabled {
		opts.MCP = mcptools.Handler(mcptools.NewServer(store, logger))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started",
			zap.String("addr", cfg.HTTPAddr),
			zap.Bool("mcp", cfg.MCPEnabled),
			zap.Duration("session_ttl", cfg.SessionTTL),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	waitForShutdown(srv, store, cfg)
}

// waitForShutdown blocks until SIGINT/SIGTERM, then stops opening sessions,
// gives live ones the shutdown timeout to finish, and stops the server.
func waitForShutdown(srv *http.Server, store *session.Store, cfg *config.Config) {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	logger := observability.Logger
	logger.Info("shutting down", zap.Int("live_sessions", store.Len()))

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()

	if err := store.Shutdown(drainCtx); err != nil {
		logger.Warn("dropping live sessions", zap.Int("live_sessions", store.Len()), zap.Error(err))
	}
	_ = store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
