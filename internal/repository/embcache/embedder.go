// Package embcache caches embedding vectors in the key-value store, keyed by model and text.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pieces/internal/db"
	"github.com/kailas-cloud/pieces/internal/domain"
)

// DefaultKeyPrefix namespaces cache entries.
const DefaultKeyPrefix = "pieces:emb_cache:"

// Compile-time check.
var _ domain.EmbeddingBackend = (*CachedBackend)(nil)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options tune the cache.
type Options struct {
	KeyPrefix  string
	TTL        time.Duration // zero keeps entries forever
	CacheTotal *prometheus.CounterVec
	Logger     *zap.Logger
}

// CachedBackend decorates an embedding backend. Hits are served from the store and
// the remaining texts go to the inner backend in a single call.
type CachedBackend struct {
	inner      domain.EmbeddingBackend
	store      store
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// CacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(inner domain.EmbeddingBackend, s store, opts Options) *CachedBackend {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &CachedBackend{
		inner:      inner,
		store:      s,
		keyPrefix:  opts.KeyPrefix,
		ttl:        opts.TTL,
		cacheTotal: opts.CacheTotal,
		logger:     opts.Logger,
	}
}

// Embed returns cached vectors where possible. Usage counts only the texts actually sent.
func (c *CachedBackend) Embed(ctx context.Context, model string, input []string) (domain.EmbeddingResult, error) {
	vectors := make([][]float32, len(input))
	keys := make([]string, len(input))

	var missIdx []int
	var missText []string
	for i, text := range input {
		keys[i] = c.cacheKey(model, text)
		if vec, ok := c.getFromCache(ctx, keys[i]); ok {
			c.incCache("hit")
			vectors[i] = vec
			continue
		}
		c.incCache("miss")
		missIdx = append(missIdx, i)
		missText = append(missText, text)
	}

	if len(missText) == 0 {
		return domain.EmbeddingResult{Embeddings: vectors}, nil
	}

	result, err := c.inner.Embed(ctx, model, missText)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(missText), err)
	}
	if len(result.Embeddings) != len(missText) {
		return domain.EmbeddingResult{}, fmt.Errorf("inner backend returned %d vectors for %d texts: %w",
			len(result.Embeddings), len(missText), domain.ErrEmbeddingProviderError)
	}

	for j, i := range missIdx {
		vectors[i] = result.Embeddings[j]
		c.putToCache(ctx, keys[i], result.Embeddings[j])
	}

	return domain.EmbeddingResult{
		Embeddings:   vectors,
		PromptTokens: result.PromptTokens,
		TotalTokens:  result.TotalTokens,
	}, nil
}

func (c *CachedBackend) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedBackend) cacheKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedBackend) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedBackend) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
