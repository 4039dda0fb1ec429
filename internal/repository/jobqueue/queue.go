// Package jobqueue is a Redis list backed queue of embedding jobs with
// per-job status documents.
package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// store is the consumer interface for the queue (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	LPush(ctx context.Context, key string, values ...[]byte) error
	BRPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Config names the queue keys.
type Config struct {
	Key          string
	StatusPrefix string
	StatusTTL    time.Duration
}

// Queue implements the embedding job queue.
type Queue struct {
	store store
	cfg   Config
	now   func() time.Time
}

// New creates a queue.
func New(s store, cfg Config) *Queue {
	return &Queue{store: s, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue assigns an id when missing, records a queued status and pushes the job.
func (q *Queue) Enqueue(ctx context.Context, j job.Job) (string, error) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.writeStatus(ctx, job.NewStatus(j.ID, q.now())); err != nil {
		return "", err
	}
	if err := q.store.LPush(ctx, q.cfg.Key, payload); err != nil {
		return "", fmt.Errorf("push job %s: %w", j.ID, err)
	}
	return j.ID, nil
}

// Pop blocks up to timeout for the next job. It returns nil, nil when the wait
// timed out or the payload could not be decoded.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*job.Job, error) {
	payload, err := q.store.BRPop(ctx, q.cfg.Key, timeout)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop job: %w", err)
	}
	var j job.Job
	if err := json.Unmarshal(payload, &j); err != nil {
		logger.FromContext(ctx).Error("Failed to decode embedding job", zap.Error(err))
		return nil, nil
	}
	return &j, nil
}

// Len returns the number of waiting jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.store.LLen(ctx, q.cfg.Key)
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// Status returns the status document of id.
func (q *Queue) Status(ctx context.Context, id string) (job.Status, error) {
	data, err := q.store.Get(ctx, q.statusKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return job.Status{}, domain.ErrJobNotFound
		}
		return job.Status{}, fmt.Errorf("get job status %s: %w", id, err)
	}
	var st job.Status
	if err := json.Unmarshal(data, &st); err != nil {
		return job.Status{}, fmt.Errorf("decode job status %s: %w", id, err)
	}
	return st, nil
}

// MarkStarted moves id to processing.
func (q *Queue) MarkStarted(ctx context.Context, id string) error {
	return q.transition(ctx, id, func(s job.Status) job.Status { return s.Start(q.now()) })
}

// MarkCompleted moves id to completed with result metadata.
func (q *Queue) MarkCompleted(ctx context.Context, id string, metadata map[string]any) error {
	return q.transition(ctx, id, func(s job.Status) job.Status { return s.Complete(q.now(), metadata) })
}

// MarkFailed moves id to failed with msg.
func (q *Queue) MarkFailed(ctx context.Context, id, msg string) error {
	return q.transition(ctx, id, func(s job.Status) job.Status { return s.Fail(q.now(), msg) })
}

// transition rewrites the status and refreshes its TTL. An expired or
// missing status is recreated so the outcome is still observable.
func (q *Queue) transition(ctx context.Context, id string, next func(job.Status) job.Status) error {
	st, err := q.Status(ctx, id)
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		st = job.Status{JobID: id}
	case err != nil:
		return err
	}
	return q.writeStatus(ctx, next(st))
}

func (q *Queue) writeStatus(ctx context.Context, st job.Status) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	if err := q.store.SetWithTTL(ctx, q.statusKey(st.JobID), data, q.cfg.StatusTTL); err != nil {
		return fmt.Errorf("write job status %s: %w", st.JobID, err)
	}
	return nil
}

func (q *Queue) statusKey(id string) string {
	return q.cfg.StatusPrefix + id
}
