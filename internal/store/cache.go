package store

import (
	"context"
	"time"
)

type embeddingCacheRow struct {
	CacheKey  string    `json:"cache_key"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

const getCachedEmbeddingQuery = `
SELECT * FROM embedding_cache WHERE cache_key = $cache_key LIMIT 1;`

// GetCachedEmbedding is the L2 tier of the embedding cache: a persistent
// lookup keyed by "<model>:<blake3(content)>", consulted after the
// in-process LRU misses.
func (s *Store) GetCachedEmbedding(ctx context.Context, cacheKey string) ([]float32, bool, error) {
	rows, err := query[embeddingCacheRow](ctx, s, getCachedEmbeddingQuery, map[string]any{
		"cache_key": cacheKey,
	})
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Vector, true, nil
}

const putCachedEmbeddingQuery = `
UPSERT embedding_cache MERGE {
	cache_key: $cache_key,
	vector: $vector,
	created_at: $created_at
} WHERE cache_key = $cache_key;`

// PutCachedEmbedding stores a computed embedding in the L2 cache.
func (s *Store) PutCachedEmbedding(ctx context.Context, cacheKey string, vector []float32) error {
	_, err := query[embeddingCacheRow](ctx, s, putCachedEmbeddingQuery, map[string]any{
		"cache_key":  cacheKey,
		"vector":     vector,
		"created_at": time.Now().UTC(),
	})
	return err
}

const clearEmbeddingCacheQuery = `DELETE FROM embedding_cache;`

// ClearEmbeddingCache drops every cached embedding. ResetMemories does not
// call it, so a reset leaves the embedding cache in place.
func (s *Store) ClearEmbeddingCache(ctx context.Context) error {
	_, err := query[embeddingCacheRow](ctx, s, clearEmbeddingCacheQuery, nil)
	return err
}
