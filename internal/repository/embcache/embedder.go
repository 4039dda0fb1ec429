// Package embcache puts a Redis cache in front of the embedding provider.
// The worker re-embeds unchanged documents and chunks on every write, so most
// lookups are hits.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
)

// store is the consumer interface for the cache (ISP).
type store interface {
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config scopes cache entries. Vectors from another model or dimension
// count never match.
type Config struct {
	Prefix     string
	Model      string
	Dimensions int
	TTL        time.Duration
}

// Embedder is a caching domain.Embedder decorator.
type Embedder struct {
	inner   domain.Embedder
	store   store
	ns      string
	dims    int
	ttl     time.Duration
	lookups *prometheus.CounterVec
	logger  *zap.Logger
}

var (
	_ domain.Embedder      = (*Embedder)(nil)
	_ domain.BatchEmbedder = (*Embedder)(nil)
)

// New wraps inner. lookups, when non-nil, is a counter vec with a single
// "result" label (hit or miss).
func New(inner domain.Embedder, s store, cfg Config, lookups *prometheus.CounterVec, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	// The hash tag pins one model's keys to a single cluster slot so MGET works.
	ns := fmt.Sprintf("%semb:{%s:%d}:", cfg.Prefix, cfg.Model, cfg.Dimensions)
	return &Embedder{
		inner:   inner,
		store:   s,
		ns:      ns,
		dims:    cfg.Dimensions,
		ttl:     cfg.TTL,
		lookups: lookups,
		logger:  logger,
	}
}

// Embed returns the cached vector for text or asks the provider. Hits
// report zero tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed looks every text up with one MGET and sends the distinct misses
// to the provider in one call. Vectors come back in input order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = e.key(t)
	}
	cached := e.lookup(ctx, keys)

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	pending := map[string][]int{} // miss text -> positions
	var misses []string
	for i, t := range texts {
		if vec := cached[i]; vec != nil {
			e.count("hit")
			out.Embeddings[i] = vec
			continue
		}
		e.count("miss")
		if _, seen := pending[t]; !seen {
			misses = append(misses, t)
		}
		pending[t] = append(pending[t], i)
	}
	if len(misses) == 0 {
		return out, nil
	}

	res, err := domain.EmbedAll(ctx, e.inner, misses)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}
	if len(res.Embeddings) != len(misses) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed: got %d vectors for %d texts: %w",
			len(res.Embeddings), len(misses), domain.ErrEmbeddingProviderError)
	}

	for j, t := range misses {
		vec := res.Embeddings[j]
		for _, i := range pending[t] {
			out.Embeddings[i] = vec
		}
		e.put(ctx, e.key(t), vec)
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens
	return out, nil
}

// lookup returns one entry per key, nil for misses. Store failures and
// undecodable entries degrade to misses.
func (e *Embedder) lookup(ctx context.Context, keys []string) [][]float32 {
	vecs := make([][]float32, len(keys))
	raw, err := e.store.MGet(ctx, keys...)
	if err != nil {
		e.logger.Warn("Embedding cache lookup failed", zap.Int("keys", len(keys)), zap.Error(err))
		return vecs
	}
	for i, data := range raw {
		if data == nil {
			continue
		}
		vec, err := decodeVector(data, e.dims)
		if err != nil {
			e.logger.Warn("Dropping unreadable cached embedding", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		vecs[i] = vec
	}
	return vecs
}

func (e *Embedder) put(ctx context.Context, key string, vec []float32) {
	if err := e.store.SetWithTTL(ctx, key, encodeVector(vec), e.ttl); err != nil {
		e.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(result string) {
	if e.lookups != nil {
		e.lookups.WithLabelValues(result).Inc()
	}
}

func (e *Embedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return e.ns + hex.EncodeToString(sum[:])
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks encodeVector output. dims > 0 also checks the length.
func decodeVector(data []byte, dims int) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%d bytes is not a float32 vector", len(data))
	}
	n := len(data) / 4
	if dims > 0 && n != dims {
		return nil, fmt.Errorf("vector has %d dimensions, want %d", n, dims)
	}
	vec := make([]float32, n)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vec, nil
}
