package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

// GetDocument returns the _source of a document.
func (s *Store) GetDocument(ctx context.Context, index, id string) (map[string]any, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.Get(index, id, s.es.Get.WithContext(ctx))
	var out struct {
		Found  bool           `json:"found"`
		Source map[string]any `json:"_source"`
	}
	if err := decode(engine.OpGet, res, err, engine.ErrDocumentNotFound, &out); err != nil {
		return nil, err
	}
	if !out.Found {
		return nil, &engine.Error{Op: engine.OpGet, Status: 404, Err: engine.ErrDocumentNotFound}
	}
	return out.Source, nil
}

// IndexDocument creates or replaces a document.
func (s *Store) IndexDocument(
	ctx context.Context, index, id string, doc map[string]any, refresh engine.Refresh,
) error {
	body, err := jsonBody(doc)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := []func(*esapi.IndexRequest){
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(id),
	}
	if refresh != engine.RefreshNone {
		opts = append(opts, s.es.Index.WithRefresh(string(refresh)))
	}

	res, err := s.es.Index(index, body, opts...)
	return decode(engine.OpIndex, res, err, engine.ErrIndexNotFound, nil)
}

// UpdateDocument applies a partial document or script to an existing document.
func (s *Store) UpdateDocument(
	ctx context.Context, index, id string, upd engine.DocumentUpdate, refresh engine.Refresh,
) error {
	body, err := jsonBody(upd)
	if err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := []func(*esapi.UpdateRequest){s.es.Update.WithContext(ctx)}
	if refresh != engine.RefreshNone {
		opts = append(opts, s.es.Update.WithRefresh(string(refresh)))
	}

	res, err := s.es.Update(index, id, body, opts...)
	return decode(engine.OpUpdate, res, err, engine.ErrDocumentNotFound, nil)
}

// DeleteDocument removes a document by id.
func (s *Store) DeleteDocument(ctx context.Context, index, id string, refresh engine.Refresh) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := []func(*esapi.DeleteRequest){s.es.Delete.WithContext(ctx)}
	if refresh != engine.RefreshNone {
		opts = append(opts, s.es.Delete.WithRefresh(string(refresh)))
	}

	res, err := s.es.Delete(index, id, opts...)
	return decode(engine.OpDelete, res, err, engine.ErrDocumentNotFound, nil)
}

// DeleteByQuery removes every document matching query and refreshes the index.
func (s *Store) DeleteByQuery(ctx context.Context, index string, query map[string]any) (int64, error) {
	body, err := jsonBody(map[string]any{"query": query})
	if err != nil {
		return 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.es.DeleteByQuery([]string{index}, body,
		s.es.DeleteByQuery.WithContext(ctx),
		s.es.DeleteByQuery.WithRefresh(true),
	)
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := decode(engine.OpDeleteByQuery, res, err, engine.ErrIndexNotFound, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

type bulkItem struct {
	ID     string      `json:"_id"`
	Status int         `json:"status"`
	Error  *errorCause `json:"error"`
}

// BulkIndex indexes docs in one _bulk request. Per-item rejections are
// reported in the result and as an ErrBadRequest error.
func (s *Store) BulkIndex(
	ctx context.Context, index string, docs []engine.BulkDocument, refresh engine.Refresh,
) (*engine.BulkResult, error) {
	if len(docs) == 0 {
		return &engine.BulkResult{}, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		meta := map[string]map[string]string{"index": {"_id": d.ID}}
		if err := enc.Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(d.Source); err != nil {
			return nil, fmt.Errorf("encode bulk source %s: %w", d.ID, err)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := []func(*esapi.BulkRequest){
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(index),
	}
	if refresh != engine.RefreshNone {
		opts = append(opts, s.es.Bulk.WithRefresh(string(refresh)))
	}

	res, err := s.es.Bulk(&buf, opts...)
	var out struct {
		Errors bool                  `json:"errors"`
		Items  []map[string]bulkItem `json:"items"`
	}
	if err := decode(engine.OpBulk, res, err, engine.ErrIndexNotFound, &out); err != nil {
		return nil, err
	}

	result := &engine.BulkResult{}
	for _, item := range out.Items {
		for _, it := range item {
			if it.Error == nil && it.Status < 300 {
				result.Indexed++
				continue
			}
			reason := ""
			if it.Error != nil {
				reason = it.Error.String()
			}
			result.Failed = append(result.Failed, engine.BulkFailure{ID: it.ID, Status: it.Status, Reason: reason})
		}
	}

	if len(result.Failed) > 0 {
		return result, &engine.Error{
			Op:         engine.OpBulk,
			Reason:     fmt.Sprintf("%d of %d documents rejected", len(result.Failed), len(docs)),
			RootCauses: []string{result.Failed[0].Reason},
			Err:        engine.ErrBadRequest,
		}
	}
	return result, nil
}

// Reindex copies every document from req.Source into req.Dest, waiting for
// completion and refreshing the destination. req.Timeout bounds the whole call.
func (s *Store) Reindex(ctx context.Context, req engine.ReindexRequest) (*engine.ReindexResult, error) {
	body, err := jsonBody(map[string]any{
		"source": map[string]any{"index": req.Source},
		"dest":   map[string]any{"index": req.Dest},
	})
	if err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	res, err := s.es.Reindex(body,
		s.es.Reindex.WithContext(ctx),
		s.es.Reindex.WithWaitForCompletion(true),
		s.es.Reindex.WithRefresh(true),
	)
	var out struct {
		Took     int64             `json:"took"`
		TimedOut bool              `json:"timed_out"`
		Total    int64             `json:"total"`
		Created  int64             `json:"created"`
		Updated  int64             `json:"updated"`
		Failures []json.RawMessage `json:"failures"`
	}
	if err := decode(engine.OpReindex, res, err, engine.ErrIndexNotFound, &out); err != nil {
		return nil, err
	}

	if out.TimedOut {
		return nil, &engine.Error{Op: engine.OpReindex, Reason: "reindex timed out", Err: engine.ErrTimeout}
	}
	if len(out.Failures) > 0 {
		return nil, &engine.Error{
			Op:         engine.OpReindex,
			Reason:     fmt.Sprintf("%d documents failed to copy", len(out.Failures)),
			RootCauses: []string{string(out.Failures[0])},
			Err:        engine.ErrBadRequest,
		}
	}

	return &engine.ReindexResult{
		Took:    time.Duration(out.Took) * time.Millisecond,
		Total:   out.Total,
		Created: out.Created,
		Updated: out.Updated,
	}, nil
}
