package enrichment

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/job"
)

type mockQueue struct {
	mu        sync.Mutex
	jobs      []*job.Job
	popErr    error
	started   []string
	completed map[string]map[string]any
	failed    map[string]string
}

func newMockQueue(jobs ...*job.Job) *mockQueue {
	return &mockQueue{
		jobs:      jobs,
		completed: map[string]map[string]any{},
		failed:    map[string]string{},
	}
}

func (m *mockQueue) Pop(_ context.Context, _ time.Duration) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.popErr != nil {
		return nil, m.popErr
	}
	if len(m.jobs) == 0 {
		return nil, nil
	}
	j := m.jobs[0]
	m.jobs = m.jobs[1:]
	return j, nil
}

func (m *mockQueue) Len(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.jobs)), nil
}

func (m *mockQueue) MarkStarted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, id)
	return nil
}

func (m *mockQueue) MarkCompleted(_ context.Context, id string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = metadata
	return nil
}

func (m *mockQueue) MarkFailed(_ context.Context, id, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = msg
	return nil
}

func (m *mockQueue) finished() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completed) + len(m.failed)
}

type updateCall struct {
	collection string
	key        string
	partial    domdoc.Document
}

type deleteCall struct {
	collection string
	query      map[string]any
}

type mockDocs struct {
	getFn    func(collection, key string) (domdoc.Document, error)
	updateFn func(collection, key string, partial domdoc.Document) (bool, error)
	deleteFn func(collection string, query map[string]any) (int64, error)

	mu      sync.Mutex
	updates []updateCall
	deletes []deleteCall
}

func (m *mockDocs) Get(_ context.Context, collection, key string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(collection, key)
	}
	return nil, domain.ErrDocumentNotFound
}

func (m *mockDocs) Update(_ context.Context, collection, key string, partial domdoc.Document) (bool, error) {
	m.mu.Lock()
	m.updates = append(m.updates, updateCall{collection: collection, key: key, partial: partial})
	m.mu.Unlock()
	if m.updateFn != nil {
		return m.updateFn(collection, key, partial)
	}
	return true, nil
}

func (m *mockDocs) DeleteByQuery(_ context.Context, collection string, query map[string]any) (int64, error) {
	m.mu.Lock()
	m.deletes = append(m.deletes, deleteCall{collection: collection, query: query})
	m.mu.Unlock()
	if m.deleteFn != nil {
		return m.deleteFn(collection, query)
	}
	return 0, nil
}

type mockChunks struct {
	bulkFn func(collection string, docs []domdoc.Document) (int, error)

	mu         sync.Mutex
	collection string
	docs       []domdoc.Document
}

func (m *mockChunks) BulkIndex(_ context.Context, collection string, docs []domdoc.Document) (int, error) {
	m.mu.Lock()
	m.collection = collection
	m.docs = docs
	m.mu.Unlock()
	if m.bulkFn != nil {
		return m.bulkFn(collection, docs)
	}
	return len(docs), nil
}

// mockEmbedder returns a one-dimensional vector holding the text length.
type mockEmbedder struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func testConfig() Config {
	return Config{PopTimeout: time.Millisecond, IdleSleep: time.Millisecond, Concurrency: 1}
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestWorker(q *mockQueue, docs *mockDocs, chunks *mockChunks, emb *mockEmbedder) *Worker {
	w := New(q, docs, chunks, emb, testConfig())
	w.now = fixedNow
	return w
}
