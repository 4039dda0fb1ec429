// Package collection resolves collection names to their backing indices and
// performs the index and alias mutations of a migration.
package collection

import (
	"context"
	"fmt"
	"time"

	domcol "github.com/kailas-cloud/docsearch/internal/domain/collection"
	"github.com/kailas-cloud/docsearch/internal/engine"
	"github.com/kailas-cloud/docsearch/internal/repository/errmap"
)

// store is the consumer interface for index and alias management (ISP).
//
//nolint:interfacebloat // migration needs index, alias and reindex operations
type store interface {
	CreateIndex(ctx context.Context, name string, def *engine.IndexDefinition) error
	DeleteIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	AliasExists(ctx context.Context, alias string) (bool, error)
	AliasTargets(ctx context.Context, alias string) ([]string, error)
	UpdateAliases(ctx context.Context, actions []engine.AliasAction) error
	Reindex(ctx context.Context, req engine.ReindexRequest) (*engine.ReindexResult, error)
}

// Repo implements usecase/lifecycle.Repository.
type Repo struct {
	store store
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Resolve reports how name currently resolves: an alias with exactly one
// backing index, a bare legacy index, or nothing.
func (r *Repo) Resolve(ctx context.Context, name string) (domcol.Target, error) {
	isAlias, err := r.store.AliasExists(ctx, name)
	if err != nil {
		return domcol.Target{}, fmt.Errorf("check alias %s: %w", name, errmap.FromEngine(err))
	}
	if isAlias {
		targets, err := r.store.AliasTargets(ctx, name)
		if err != nil {
			return domcol.Target{}, fmt.Errorf("resolve alias %s: %w", name, errmap.FromEngine(err))
		}
		if len(targets) != 1 {
			return domcol.Target{}, fmt.Errorf("alias %s resolves to %d indices %v, want exactly one",
				name, len(targets), targets)
		}
		return domcol.Target{State: domcol.StateAliased, Index: targets[0]}, nil
	}

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return domcol.Target{}, fmt.Errorf("check index %s: %w", name, errmap.FromEngine(err))
	}
	if exists {
		return domcol.Target{State: domcol.StateLegacy, Index: name}, nil
	}
	return domcol.Target{State: domcol.StateAbsent}, nil
}

// Exists reports whether name is taken by an index or an alias.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", name, errmap.FromEngine(err))
	}
	return ok, nil
}

// Create creates index name. A taken name yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, name string, def *engine.IndexDefinition) error {
	if err := r.store.CreateIndex(ctx, name, def); err != nil {
		return fmt.Errorf("create index %s: %w", name, errmap.FromEngine(err))
	}
	return nil
}

// Delete removes index name.
func (r *Repo) Delete(ctx context.Context, name string) error {
	if err := r.store.DeleteIndex(ctx, name); err != nil {
		return fmt.Errorf("delete index %s: %w", name, errmap.FromEngine(err))
	}
	return nil
}

// Copy reindexes every document of source into dest, blocking up to timeout.
// dest is refreshed by the engine layer before Copy returns.
func (r *Repo) Copy(ctx context.Context, source, dest string, timeout time.Duration) (*engine.ReindexResult, error) {
	res, err := r.store.Reindex(ctx, engine.ReindexRequest{Source: source, Dest: dest, Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("reindex %s into %s: %w", source, dest, errmap.FromEngine(err))
	}
	return res, nil
}

// PointAlias moves alias from oldIndex (when non-empty) to newIndex in one
// atomic request, so alias never resolves to zero or two indices.
func (r *Repo) PointAlias(ctx context.Context, alias, oldIndex, newIndex string) error {
	actions := make([]engine.AliasAction, 0, 2)
	if oldIndex != "" {
		actions = append(actions, engine.AliasAction{Type: engine.AliasRemove, Index: oldIndex, Alias: alias})
	}
	actions = append(actions, engine.AliasAction{Type: engine.AliasAdd, Index: newIndex, Alias: alias})
	if err := r.store.UpdateAliases(ctx, actions); err != nil {
		return fmt.Errorf("point alias %s at %s: %w", alias, newIndex, errmap.FromEngine(err))
	}
	return nil
}
