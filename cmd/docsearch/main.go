package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/app"
	"github.com/kailas-cloud/docsearch/internal/catalog"
	"github.com/kailas-cloud/docsearch/internal/config"
	logpkg "github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	chiTransport "github.com/kailas-cloud/docsearch/internal/transport/chi"
	"github.com/kailas-cloud/docsearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("engine_addrs", cfg.Engine.Addresses),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := logpkg.ContextWithLogger(context.Background(), logger)

	metrics.RegisterSearchMetrics()

	redis, err := app.NewRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redis == nil {
		logger.Warn("Redis not configured: document cache, job queue and rebuild lock disabled")
	}

	cat := catalog.New(cfg.Engine.VectorDimensions)
	handle, err := app.NewEngine(cfg, cat)
	if err != nil {
		logger.Fatal("Failed to create engine handle", zap.Error(err))
	}

	svc := app.NewServices(cfg, handle, cat, redis, true)
	defer svc.Close()

	// Warm up the engine handle. A failure here is retried on the first request.
	if _, err := handle.Get(ctx); err != nil {
		logger.Warn("Search engine not ready yet", zap.Error(err))
	} else {
		logger.Info("Connected to search engine", zap.Bool("bootstrap", cfg.Engine.BootstrapEnabled()))
	}

	// A nil *jobqueue.Queue must reach the server as a nil interface.
	var jobs chiTransport.Jobs
	if svc.Queue != nil {
		jobs = svc.Queue
	}

	server := chiTransport.NewServer(svc.Documents, svc.Batch, svc.Search, svc.Lifecycle, jobs, svc.Health, logger)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := server.Wait(shutdownCtx); err != nil {
		logger.Warn("Background rebuilds still running at exit, new indices may be partial", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
