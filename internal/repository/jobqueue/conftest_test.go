package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/docsearch/internal/db"
)

// memStore is an in-memory store: a map for status documents and a slice for the list.
type memStore struct {
	mu     sync.Mutex
	kv     map[string][]byte
	ttls   map[string]time.Duration
	list   [][]byte
	pushFn func(key string, values ...[]byte) error
	popErr error
}

func newMemStore() *memStore {
	return &memStore{kv: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) LPush(_ context.Context, key string, values ...[]byte) error {
	if m.pushFn != nil {
		return m.pushFn(key, values...)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(values, m.list...)
	return nil
}

func (m *memStore) BRPop(_ context.Context, _ string, _ time.Duration) ([]byte, error) {
	if m.popErr != nil {
		return nil, m.popErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.list) == 0 {
		return nil, db.ErrKeyNotFound
	}
	last := m.list[len(m.list)-1]
	m.list = m.list[:len(m.list)-1]
	return last, nil
}

func (m *memStore) LLen(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.list)), nil
}

var testTime = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestQueue(t *testing.T) (*Queue, *memStore) {
	t.Helper()
	ms := newMemStore()
	q := New(ms, Config{Key: "embedding:queue", StatusPrefix: "embedding:job:", StatusTTL: 24 * time.Hour})
	q.now = func() time.Time { return testTime }
	return q, ms
}
