package recall

import (
	"context"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/embed"
)

// Search runs dense-only vector search over memories, for the search
// operation.
func (o *Orchestrator) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if o.embedder.Status() != embed.StateReady {
		return nil, apperr.New(apperr.NotReady, "search_embedding_not_ready", "embedding subsystem is not ready", nil)
	}
	limit = clampLimit(limit)

	vec, err := o.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := o.store.SearchMemoriesVector(ctx, vec, "", limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:          h.Memory.ID.String(),
			Content:     h.Memory.Content,
			MemoryType:  h.Memory.MemoryType,
			Score:       h.Score,
			VectorScore: h.Score,
		}
	}
	return results, nil
}

// SearchText runs lexical-only BM25 search over memories, for the
// search_text operation. It needs no embedding and works even while the
// embedding subsystem is still loading.
func (o *Orchestrator) SearchText(ctx context.Context, query string, limit int) ([]Result, error) {
	limit = clampLimit(limit)

	hits, err := o.store.SearchMemoriesLexical(ctx, query, "", limit)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			ID:         h.Memory.ID.String(),
			Content:    h.Memory.Content,
			MemoryType: h.Memory.MemoryType,
			Score:      h.Score,
			BM25Score:  h.Score,
		}
	}
	return results, nil
}
