// Package enrichment consumes embedding jobs and writes vectors back to the engine.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// Config tunes the consume loop.
type Config struct {
	PopTimeout  time.Duration
	IdleSleep   time.Duration
	Concurrency int
}

// DefaultConfig mirrors the queue defaults of the service config.
func DefaultConfig() Config {
	return Config{PopTimeout: 5 * time.Second, IdleSleep: time.Second, Concurrency: 1}
}

// Worker processes entity_embedding and rag_chunks jobs.
type Worker struct {
	queue    Queue
	docs     Documents
	chunks   ChunkWriter
	embedder domain.Embedder
	cfg      Config
	now      func() time.Time
}

// New creates a worker.
func New(queue Queue, docs Documents, chunks ChunkWriter, embedder domain.Embedder, cfg Config) *Worker {
	def := DefaultConfig()
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = def.PopTimeout
	}
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = def.IdleSleep
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Worker{
		queue:    queue,
		docs:     docs,
		chunks:   chunks,
		embedder: embedder,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes jobs with cfg.Concurrency loops until ctx is cancelled.
// Queue errors are logged and retried after the idle sleep.
func (w *Worker) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info("Enrichment worker started", zap.Int("concurrency", w.cfg.Concurrency))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error { return w.loop(gctx) })
	}
	err := g.Wait()
	log.Info("Enrichment worker stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (w *Worker) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := w.Step(ctx)
		if err != nil && ctx.Err() == nil {
			logger.FromContext(ctx).Warn("Embedding queue unavailable", zap.Error(err))
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.IdleSleep):
		}
	}
}

// Step pops at most one job and processes it. It reports whether a job was
// taken; job failures are recorded on the job, not returned.
func (w *Worker) Step(ctx context.Context) (bool, error) {
	j, err := w.queue.Pop(ctx, w.cfg.PopTimeout)
	if err != nil {
		return false, fmt.Errorf("pop: %w", err)
	}
	if n, lerr := w.queue.Len(ctx); lerr == nil {
		metrics.WorkerQueueDepth.Set(float64(n))
	}
	if j == nil {
		return false, nil
	}
	w.Process(ctx, *j)
	return true, nil
}

// Process runs one job and records its terminal status.
func (w *Worker) Process(ctx context.Context, j job.Job) {
	typ := j.EffectiveType()
	log := logger.FromContext(ctx).With(
		zap.String("job_id", j.ID),
		zap.String("job_type", string(typ)),
		zap.String("urn", j.URN),
	)

	start := time.Now()
	if err := w.queue.MarkStarted(ctx, j.ID); err != nil {
		log.Warn("Failed to mark job started", zap.Error(err))
	}

	meta, err := w.dispatch(ctx, j)
	metrics.WorkerJobDuration.WithLabelValues(string(typ)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.WorkerJobsTotal.WithLabelValues(string(typ), "failed").Inc()
		log.Error("Embedding job failed", zap.Error(err))
		if merr := w.queue.MarkFailed(ctx, j.ID, err.Error()); merr != nil {
			log.Error("Failed to mark job failed", zap.Error(merr))
		}
		return
	}

	metrics.WorkerJobsTotal.WithLabelValues(string(typ), "completed").Inc()
	log.Info("Embedding job completed", zap.Duration("duration", time.Since(start)))
	if merr := w.queue.MarkCompleted(ctx, j.ID, meta); merr != nil {
		log.Error("Failed to mark job completed", zap.Error(merr))
	}
}

func (w *Worker) dispatch(ctx context.Context, j job.Job) (map[string]any, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	meta := map[string]any{"urn": j.URN, "job_type": string(j.EffectiveType())}

	switch j.EffectiveType() {
	case job.TypeEntityEmbedding:
		updated, err := w.embedEntity(ctx, j)
		if err != nil {
			return nil, err
		}
		meta["updated"] = updated
	case job.TypeRAGChunks:
		n, err := w.embedChunks(ctx, j)
		if err != nil {
			return nil, err
		}
		meta["chunks"] = n
	}
	return meta, nil
}

// embedEntity stores the vector of j.Text on the job's document.
func (w *Worker) embedEntity(ctx context.Context, j job.Job) (bool, error) {
	res, err := w.embedder.Embed(ctx, j.Text)
	if err != nil {
		return false, fmt.Errorf("embed %s: %w", j.URN, err)
	}
	partial := domdoc.Document{
		domdoc.FieldURN:        j.URN,
		j.TargetVectorField():  res.Embedding,
		domdoc.FieldEmbeddedAt: w.now().Format(time.RFC3339),
	}
	updated, err := w.docs.Update(ctx, j.IndexName, j.URN, partial)
	if err != nil {
		return false, fmt.Errorf("store embedding %s: %w", j.URN, err)
	}
	return updated, nil
}

// embedChunks replaces the retrieval chunks of the job's source document.
func (w *Worker) embedChunks(ctx context.Context, j job.Job) (int, error) {
	source, err := w.docs.Get(ctx, j.SourceIndex, j.URN)
	if err != nil {
		return 0, fmt.Errorf("get source %s/%s: %w", j.SourceIndex, j.URN, err)
	}

	drafts := draftChunks(j.URN, source, w.now().Format(time.RFC3339))
	texts := make([]string, len(drafts))
	for i, d := range drafts {
		texts[i] = d.text
	}
	res, err := domain.EmbedAll(ctx, w.embedder, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks %s: %w", j.URN, err)
	}
	if len(res.Embeddings) != len(drafts) {
		return 0, fmt.Errorf("embed chunks %s: got %d vectors for %d chunks: %w",
			j.URN, len(res.Embeddings), len(drafts), domain.ErrEmbeddingProviderError)
	}

	docs := make([]domdoc.Document, len(drafts))
	for i, d := range drafts {
		d.doc[domdoc.FieldEmbedding] = res.Embeddings[i]
		docs[i] = d.doc
	}

	if _, err := w.docs.DeleteByQuery(ctx, j.RAGIndex, map[string]any{
		"term": map[string]any{"base_urn": j.URN},
	}); err != nil {
		return 0, fmt.Errorf("delete previous chunks %s: %w", j.URN, err)
	}
	n, err := w.chunks.BulkIndex(ctx, j.RAGIndex, docs)
	if err != nil {
		return n, fmt.Errorf("index chunks %s: %w", j.URN, err)
	}
	return n, nil
}
