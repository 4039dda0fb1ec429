package elastic

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

// CreateIndex creates a concrete index with the given mapping and settings.
func (s *Store) CreateIndex(ctx context.Context, name string, def *engine.IndexDefinition) error {
	body, err := def.Body()
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.Create(name,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	return decode(engine.OpCreateIndex, res, err, engine.ErrIndexNotFound, nil)
}

// DeleteIndex deletes a concrete index.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.Delete([]string{name}, s.es.Indices.Delete.WithContext(ctx))
	return decode(engine.OpDeleteIndex, res, err, engine.ErrIndexNotFound, nil)
}

// IndexExists reports whether name resolves to an index or alias.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.Exists([]string{name}, s.es.Indices.Exists.WithContext(ctx))
	return exists(engine.OpIndexExists, res, err)
}

// Refresh makes all operations on name visible to search.
func (s *Store) Refresh(ctx context.Context, name string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.Refresh(
		s.es.Indices.Refresh.WithContext(ctx),
		s.es.Indices.Refresh.WithIndex(name),
	)
	return decode(engine.OpRefresh, res, err, engine.ErrIndexNotFound, nil)
}

type mappingResponse map[string]struct {
	Mappings struct {
		Properties map[string]engine.Property `json:"properties"`
	} `json:"mappings"`
}

// GetMapping returns the top-level properties of index. When index is an
// alias over several indices the properties are merged, first index wins.
func (s *Store) GetMapping(ctx context.Context, index string) (map[string]engine.Property, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.GetMapping(
		s.es.Indices.GetMapping.WithContext(ctx),
		s.es.Indices.GetMapping.WithIndex(index),
	)
	var out mappingResponse
	if err := decode(engine.OpGetMapping, res, err, engine.ErrIndexNotFound, &out); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make(map[string]engine.Property)
	for _, name := range names {
		for field, p := range out[name].Mappings.Properties {
			if _, seen := props[field]; !seen {
				props[field] = p
			}
		}
	}
	return props, nil
}

// AliasExists reports whether alias is an alias (not a concrete index).
func (s *Store) AliasExists(ctx context.Context, alias string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.ExistsAlias([]string{alias}, s.es.Indices.ExistsAlias.WithContext(ctx))
	return exists(engine.OpAliasExists, res, err)
}

type aliasResponse map[string]struct {
	Aliases map[string]any `json:"aliases"`
}

// AliasTargets returns the indices alias points at, sorted.
func (s *Store) AliasTargets(ctx context.Context, alias string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.GetAlias(
		s.es.Indices.GetAlias.WithContext(ctx),
		s.es.Indices.GetAlias.WithName(alias),
	)
	var out aliasResponse
	if err := decode(engine.OpGetAlias, res, err, engine.ErrAliasNotFound, &out); err != nil {
		return nil, err
	}

	targets := make([]string, 0, len(out))
	for index := range out {
		targets = append(targets, index)
	}
	sort.Strings(targets)
	return targets, nil
}

type aliasTarget struct {
	Index string `json:"index"`
	Alias string `json:"alias"`
}

type aliasActionBody map[engine.AliasActionType]aliasTarget

// UpdateAliases submits all actions in one _aliases request.
func (s *Store) UpdateAliases(ctx context.Context, actions []engine.AliasAction) error {
	if len(actions) == 0 {
		return fmt.Errorf("%s: no actions", engine.OpUpdateAliases)
	}

	items := make([]aliasActionBody, 0, len(actions))
	for _, a := range actions {
		items = append(items, aliasActionBody{a.Type: {Index: a.Index, Alias: a.Alias}})
	}
	body, err := jsonBody(map[string]any{"actions": items})
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Indices.UpdateAliases(body, s.es.Indices.UpdateAliases.WithContext(ctx))
	return decode(engine.OpUpdateAliases, res, err, engine.ErrIndexNotFound, nil)
}
