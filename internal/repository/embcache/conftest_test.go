package embcache

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

// fakeProvider embeds text t as {len(t), 1, 0} and records every batch.
type fakeProvider struct {
	err     error
	batches [][]string
}

func (f *fakeProvider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := f.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0], TotalTokens: res.TotalTokens}, nil
}

func (f *fakeProvider) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		out.Embeddings[i] = []float32{float32(len(t)), 1, 0}
		out.TotalTokens += len(t)
	}
	out.PromptTokens = out.TotalTokens
	return out, nil
}

type mockStore struct {
	data   map[string][]byte
	getErr error
	setErr error
	ttls   map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockStore) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestEmbedder(t *testing.T, p *fakeProvider, s *mockStore) *Embedder {
	t.Helper()
	return New(p, s, Config{Prefix: "ds:", Model: "mini", Dimensions: 3, TTL: time.Hour}, nil, nil)
}
