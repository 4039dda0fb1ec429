package elastic

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

// Search executes a native query body against index with exact total hit counts.
func (s *Store) Search(ctx context.Context, index string, body map[string]any) (*engine.SearchResponse, error) {
	reader, err := jsonBody(body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(index),
		s.es.Search.WithBody(reader),
		s.es.Search.WithTrackTotalHits(true),
	)
	var out engine.SearchResponse
	if err := decode(engine.OpSearch, res, err, engine.ErrIndexNotFound, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
