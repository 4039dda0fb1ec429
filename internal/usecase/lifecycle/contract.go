package lifecycle

import (
	"context"
	"time"

	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	"github.com/kailas-cloud/docsearch/internal/engine"
)

// Repository defines the index and alias operations a migration needs.
type Repository interface {
	Resolve(ctx context.Context, name string) (domcol.Target, error)
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, def *engine.IndexDefinition) error
	Delete(ctx context.Context, name string) error
	Copy(ctx context.Context, source, dest string, timeout time.Duration) (*engine.ReindexResult, error)
	PointAlias(ctx context.Context, alias, oldIndex, newIndex string) error
}

// Catalog supplies the mapping and settings of known collections.
type Catalog interface {
	Names() []string
	Definition(name string) (*engine.IndexDefinition, error)
}

// Locker serializes rebuilds of one alias across processes.
type Locker interface {
	Acquire(ctx context.Context, alias string) (release func(), err error)
}
