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
	"github.com/kailas-cloud/docsearch/internal/usecase/enrichment"
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
	logger = logger.With(zap.String("component", "worker"))

	logger.Info("Starting docsearch enrichment worker",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("queue", cfg.Queue.Key),
		zap.Int("workers", cfg.Queue.Workers),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logpkg.ContextWithLogger(ctx, logger)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterWorkerMetrics()

	redis, err := app.NewRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redis == nil {
		logger.Fatal("The worker requires redis.addrs for the embedding queue")
	}

	cat := catalog.New(cfg.Engine.VectorDimensions)
	handle, err := app.NewEngine(cfg, cat)
	if err != nil {
		logger.Fatal("Failed to create engine handle", zap.Error(err))
	}

	// Worker writes must not enqueue new jobs for the vectors they just stored.
	svc := app.NewServices(cfg, handle, cat, redis, false)
	defer svc.Close()

	embedder := app.NewEmbedder(cfg.Embedding, redis, cfg.Cache.KeyPrefix, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	worker := enrichment.New(svc.Queue, svc.Documents, svc.DocRepo, embedder, enrichment.Config{
		PopTimeout:  time.Duration(cfg.Queue.PopTimeoutSec) * time.Second,
		IdleSleep:   time.Duration(cfg.Queue.IdleSleepMs) * time.Millisecond,
		Concurrency: cfg.Queue.Workers,
	})

	if cfg.Queue.MetricsPort > 0 {
		go serveMetrics(ctx, cfg.Queue.MetricsPort, logger)
	}

	if err := worker.Run(ctx); err != nil {
		logger.Fatal("Worker stopped with error", zap.Error(err))
	}
	logger.Info("Worker stopped gracefully")
}

// serveMetrics exposes /metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving worker metrics", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
