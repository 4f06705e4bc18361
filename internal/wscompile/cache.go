package wscompile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultEmbeddingCacheSize bounds the number of cached candidate lists kept
// per cached semantic generator.
const DefaultEmbeddingCacheSize = 1000

// cachedSpans is what the embedding cache actually stores: a generator call
// is cached by intent text, not just its embedding, since the candidates
// themselves are deterministic for a fixed (intent, filters, topK) on a
// read-only index.
type cachedSpans struct {
	candidates []CandidateSpan
}

// CachedSemanticGenerator wraps a Generator (normally the semantic channel)
// with an LRU cache keyed on intent text, so repeated identical intents
// within the cache's lifetime skip the remote round trip. The cache lives
// on the shared client, never in per-request state, so it cannot affect
// two requests' results differently - a cache hit returns exactly what a
// miss would have returned moments earlier.
type CachedSemanticGenerator struct {
	inner Generator
	cache *lru.Cache[string, cachedSpans]
}

// NewCachedSemanticGenerator wraps inner with an LRU cache of the given
// size. A non-positive size falls back to DefaultEmbeddingCacheSize.
func NewCachedSemanticGenerator(inner Generator, cacheSize int) *CachedSemanticGenerator {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, cachedSpans](cacheSize)
	return &CachedSemanticGenerator{inner: inner, cache: cache}
}

// Name returns the wrapped generator's identity.
func (c *CachedSemanticGenerator) Name() string { return c.inner.Name() }

func (c *CachedSemanticGenerator) cacheKey(signals DerivedSignals, filters HardFilters, topK int) string {
	h := sha256.New()
	h.Write([]byte(signals.Intent))
	h.Write([]byte{0})
	for _, p := range filters.Paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, w := range filters.Workstreams {
		h.Write([]byte(w))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	if filters.MaxDocAgeDays != nil {
		h.Write([]byte(strconv.Itoa(*filters.MaxDocAgeDays)))
	}
	h.Write([]byte{1})
	h.Write([]byte(strconv.Itoa(topK)))
	return hex.EncodeToString(h.Sum(nil))
}

// Generate returns the cached candidate list for an identical
// (intent, filters, topK) call, computing and caching it on miss.
func (c *CachedSemanticGenerator) Generate(ctx context.Context, signals DerivedSignals, filters HardFilters, topK int) ([]CandidateSpan, error) {
	key := c.cacheKey(signals, filters, topK)

	if hit, ok := c.cache.Get(key); ok {
		return hit.candidates, nil
	}

	candidates, err := c.inner.Generate(ctx, signals, filters, topK)
	if err != nil {
		return nil, err
	}

	c.cache.Add(key, cachedSpans{candidates: candidates})
	return candidates, nil
}
