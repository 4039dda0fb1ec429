// Package db defines the key-value store contract used by the document cache
// and the embedding job queue.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis driver offers. Consumers declare the narrow
// subset they use.
type Store interface {
	Pinger
	KVStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet returns one entry per key, nil for missing keys.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// SetNX writes only when key is absent; false means someone else holds it.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// DelIfEqual deletes key only while it still holds value.
	DelIfEqual(ctx context.Context, key string, value []byte) (bool, error)
}

// ListStore provides list operations used as a work queue.
type ListStore interface {
	LPush(ctx context.Context, key string, values ...[]byte) error
	// BRPop blocks up to timeout and returns ErrKeyNotFound when nothing arrived.
	BRPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	LLen(ctx context.Context, key string) (int64, error)
}
