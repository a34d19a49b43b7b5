package embed

import (
	"context"
	"encoding/hex"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"lukechampine.com/blake3"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
)

// CacheStore is the subset of the storage layer the cache needs, kept
// narrow so tests can fake it without pulling in the full store package.
type CacheStore interface {
	GetCachedEmbedding(ctx context.Context, cacheKey string) ([]float32, bool, error)
	PutCachedEmbedding(ctx context.Context, cacheKey string, vector []float32) error
}

// twoTierCache is the embedding cache: an in-process bounded LRU (L1) in
// front of a persistent SurrealDB table (L2), keyed identically so a
// restart only pays the L2 lookup cost, never a full re-embed.
type twoTierCache struct {
	l1        *lru.Cache[string, []float32]
	l2        CacheStore
	modelName string
	dimension int

	l1Hits   atomic.Int64
	l2Hits   atomic.Int64
	misses   atomic.Int64
}

// CacheStats reports hit-rate diagnostics for get_status, so a client can
// tell how much of its traffic is being served without a model forward
// pass.
type CacheStats struct {
	L1Hits   int64
	L2Hits   int64
	Misses   int64
}

// L1HitRate is l1Hits / total lookups, 0 if there have been none.
func (c CacheStats) L1HitRate() float64 {
	total := c.L1Hits + c.L2Hits + c.Misses
	if total == 0 {
		return 0
	}
	return float64(c.L1Hits) / float64(total)
}

// L2HitRate is l2Hits / total lookups, 0 if there have been none.
func (c CacheStats) L2HitRate() float64 {
	total := c.L1Hits + c.L2Hits + c.Misses
	if total == 0 {
		return 0
	}
	return float64(c.L2Hits) / float64(total)
}

func newTwoTierCache(size int, l2 CacheStore, modelName string, dimension int) (*twoTierCache, error) {
	if size <= 0 {
		size = 1
	}
	l1, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "cache_l1_init_failed", err)
	}
	return &twoTierCache{l1: l1, l2: l2, modelName: modelName, dimension: dimension}, nil
}

// cacheKey hashes content with blake3, scoped by model name so switching
// models never serves a stale vector.
func cacheKey(modelName, content string) string {
	sum := blake3.Sum256([]byte(content))
	return modelName + ":" + hex.EncodeToString(sum[:])
}

func (c *twoTierCache) get(ctx context.Context, content string) ([]float32, bool, error) {
	key := cacheKey(c.modelName, content)

	if v, ok := c.l1.Get(key); ok {
		c.l1Hits.Add(1)
		return v, true, nil
	}

	v, found, err := c.l2.GetCachedEmbedding(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		c.misses.Add(1)
		return nil, false, nil
	}
	if len(v) != c.dimension {
		// A dimension change invalidated this entry; treat as a miss rather
		// than serving an incompatible vector.
		c.misses.Add(1)
		return nil, false, nil
	}

	c.l2Hits.Add(1)
	c.l1.Add(key, v)
	return v, true, nil
}

func (c *twoTierCache) stats() CacheStats {
	return CacheStats{
		L1Hits: c.l1Hits.Load(),
		L2Hits: c.l2Hits.Load(),
		Misses: c.misses.Load(),
	}
}

func (c *twoTierCache) put(ctx context.Context, content string, vector []float32) error {
	key := cacheKey(c.modelName, content)
	c.l1.Add(key, vector)
	return c.l2.PutCachedEmbedding(ctx, key, vector)
}
