// Package embcache decorates an embedder with an in-process cache. The cache
// is additive for the process lifetime: entries are never evicted on the hot
// path, writes are idempotent key-to-vector sets, and racing writers for the
// same key are harmless because they store the same value.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flockwise/retriever/internal/domain"
)

// CachedEmbedder caches embeddings in memory, keyed by the SHA-256 of the
// input text. The normalizer upstream is referentially transparent, so equal
// queries always hit the same key.
type CachedEmbedder struct {
	inner      domain.Embedder
	entries    sync.Map // string -> []float32
	cacheTotal *prometheus.CounterVec
}

// New creates a caching decorator. cacheTotal is a counter vec with label
// "result" ("hit"/"miss"); nil disables instrumentation.
func New(inner domain.Embedder, cacheTotal *prometheus.CounterVec) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cacheTotal: cacheTotal}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner; the vector is stored before
// returning so concurrent callers converge on one value.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return c.EmbedKeyed(ctx, text, text)
}

// EmbedKeyed embeds text but caches under key. Callers use this when the
// cache identity carries more than the text itself, such as a query plus its
// category hint.
func (c *CachedEmbedder) EmbedKeyed(ctx context.Context, key, text string) (domain.EmbeddingResult, error) {
	key = cacheKey(key)

	if v, ok := c.entries.Load(key); ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: v.([]float32)}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.entries.Store(key, result.Embedding)
	return result, nil
}

// HealthCheck proxies to the inner embedder when it supports probing.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// Len reports the number of cached vectors (maintenance/diagnostics only).
func (c *CachedEmbedder) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Evict removes a single key out-of-band. Hot-path code never calls this.
func (c *CachedEmbedder) Evict(text string) {
	c.entries.Delete(cacheKey(text))
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
