// Package rebuildlock is a Redis advisory lock held for the duration of an
// index rebuild, so the API and the operator CLI never migrate the same alias
// at once.
package rebuildlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// store is the consumer interface for the lock (ISP).
type store interface {
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	DelIfEqual(ctx context.Context, key string, value []byte) (bool, error)
}

// Locker hands out per-alias locks.
type Locker struct {
	store  store
	prefix string
	ttl    time.Duration
	token  func() string
}

// New creates a locker. ttl bounds how long a crashed holder blocks others
// and must outlast the longest rebuild.
func New(s store, prefix string, ttl time.Duration) *Locker {
	return &Locker{store: s, prefix: prefix + "rebuild:", ttl: ttl, token: uuid.NewString}
}

// Acquire takes the lock for alias or fails with domain.ErrAlreadyExists.
// The returned release func only deletes the key while this holder still
// owns it.
func (l *Locker) Acquire(ctx context.Context, alias string) (func(), error) {
	key := l.prefix + alias
	token := []byte(l.token())
	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire rebuild lock %s: %w", alias, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: rebuild of %q already in progress", domain.ErrAlreadyExists, alias)
	}
	return func() {
		log := logger.FromContext(ctx)
		// Detached from ctx so a cancelled request still frees the lock.
		released, err := l.store.DelIfEqual(context.WithoutCancel(ctx), key, token)
		switch {
		case err != nil:
			log.Warn("Failed to release rebuild lock", zap.String("alias", alias), zap.Error(err))
		case !released:
			log.Warn("Rebuild lock expired before release", zap.String("alias", alias), zap.Duration("ttl", l.ttl))
		}
	}, nil
}
