package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/kailas-cloud/docsearch/internal/engine"
)

const maxErrorBody = 64 << 10

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorCause struct {
	Type      string       `json:"type"`
	Reason    string       `json:"reason"`
	RootCause []errorCause `json:"root_cause"`
	CausedBy  *errorCause  `json:"caused_by"`
}

func (c errorCause) String() string {
	if c.Type == "" {
		return c.Reason
	}
	return c.Type + ": " + c.Reason
}

// decode checks res and decodes a successful body into out (nil discards it).
// notFound is the sentinel for a bare 404.
func decode(op string, res *esapi.Response, err error, notFound error, out any) error {
	if err != nil {
		return transportError(op, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(op, res, notFound)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// exists interprets a HEAD response: 200 is true, 404 is false.
func exists(op string, res *esapi.Response, err error) (bool, error) {
	if err != nil {
		return false, transportError(op, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError(op, res, nil)
	}
}

func transportError(op string, err error) error {
	sentinel := engine.ErrUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		sentinel = engine.ErrTimeout
	}
	return &engine.Error{Op: op, Err: fmt.Errorf("%w: %w", sentinel, err)}
}

func responseError(op string, res *esapi.Response, notFound error) error {
	e := &engine.Error{Op: op, Status: res.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	var env errorEnvelope
	if len(raw) > 0 && json.Unmarshal(raw, &env) == nil && len(env.Error) > 0 {
		var cause errorCause
		var msg string
		switch {
		case json.Unmarshal(env.Error, &cause) == nil:
			e.Type = cause.Type
			e.Reason = cause.Reason
			for _, rc := range cause.RootCause {
				e.RootCauses = append(e.RootCauses, rc.String())
			}
			if len(e.RootCauses) == 0 && cause.CausedBy != nil {
				e.RootCauses = append(e.RootCauses, cause.CausedBy.String())
			}
		case json.Unmarshal(env.Error, &msg) == nil:
			e.Reason = msg
		}
	}

	e.Err = engine.Classify(res.StatusCode, e.Type, notFound)
	return e
}

func jsonBody(v any) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return bytes.NewReader(b), nil
}
