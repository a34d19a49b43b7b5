package recall

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/embed"
	"github.com/amanmcp-labs/memoryd/internal/graph"
	"github.com/amanmcp-labs/memoryd/internal/model"
	"github.com/amanmcp-labs/memoryd/internal/store"
)

// CodeResult is one code-search hit: a chunk with its fused and per-source
// scores.
type CodeResult struct {
	ID          string
	FilePath    string
	Content     string
	Language    string
	ChunkType   model.ChunkType
	Name        string
	StartLine   int
	EndLine     int
	Score       float64
	VectorScore float64
	BM25Score   float64
}

// SearchCode runs dense-only vector search over code chunks, scoped to a
// project when projectID is non-empty, for the search_code operation.
func (o *Orchestrator) SearchCode(ctx context.Context, query, projectID string, limit int) ([]CodeResult, error) {
	if o.embedder.Status() != embed.StateReady {
		return nil, apperr.New(apperr.NotReady, "search_code_embedding_not_ready", "embedding subsystem is not ready", nil)
	}
	limit = clampLimit(limit)

	vec, err := o.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := o.store.SearchCodeChunksVector(ctx, projectID, vec, limit)
	if err != nil {
		return nil, err
	}

	results := make([]CodeResult, len(hits))
	for i, h := range hits {
		results[i] = codeResultFromChunk(h.Chunk, h.Score, h.Score, 0)
	}
	return results, nil
}

// RecallCode runs the same hybrid pipeline as Recall, minus the PPR stage:
// embed the query once, fetch top candidates from dense and lexical search
// over code chunks in parallel, and RRF-merge them. Code chunks carry no
// entity graph, so there is no PPR term.
func (o *Orchestrator) RecallCode(ctx context.Context, query, projectID string, limit int) ([]CodeResult, error) {
	if o.embedder.Status() != embed.StateReady {
		return nil, apperr.New(apperr.NotReady, "recall_code_embedding_not_ready", "embedding subsystem is not ready", nil)
	}
	limit = clampLimit(limit)

	vec, err := o.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var vectorHits []store.CodeChunkHit
	var lexicalHits []store.CodeChunkHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorHits, err = o.store.SearchCodeChunksVector(gctx, projectID, vec, fetchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		lexicalHits, err = o.store.SearchCodeChunksLexical(gctx, projectID, query, fetchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]model.CodeChunk)
	vecList := graph.RankedList{Source: "vector"}
	for _, h := range vectorHits {
		id := h.Chunk.ID.String()
		byID[id] = h.Chunk
		vecList.IDs = append(vecList.IDs, id)
		vecList.Scores = append(vecList.Scores, h.Score)
	}
	bm25List := graph.RankedList{Source: "bm25"}
	for _, h := range lexicalHits {
		id := h.Chunk.ID.String()
		byID[id] = h.Chunk
		bm25List.IDs = append(bm25List.IDs, id)
		bm25List.Scores = append(bm25List.Scores, h.Score)
	}

	fused := graph.Fuse([]graph.RankedList{vecList, bm25List}, graph.DefaultRRFConstant)

	results := make([]CodeResult, 0, len(fused))
	for _, f := range fused {
		chunk, ok := byID[f.ID]
		if !ok {
			continue
		}
		vecScore := f.PerSource["vector"]
		bmScore := f.PerSource["bm25"]
		final := DefaultVectorWeight*vecScore + DefaultBM25Weight*bmScore
		results = append(results, codeResultFromChunk(chunk, final, vecScore, bmScore))
	}

	sortCodeResultsDescending(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func codeResultFromChunk(c model.CodeChunk, score, vecScore, bmScore float64) CodeResult {
	return CodeResult{
		ID:          c.ID.String(),
		FilePath:    c.FilePath,
		Content:     c.Content,
		Language:    c.Language,
		ChunkType:   c.ChunkType,
		Name:        c.Name,
		StartLine:   c.StartLine,
		EndLine:     c.EndLine,
		Score:       score,
		VectorScore: vecScore,
		BM25Score:   bmScore,
	}
}

func sortCodeResultsDescending(results []CodeResult) {
	scored := make([]graph.Scored, len(results))
	for i, r := range results {
		scored[i] = graph.Scored{ID: r.ID, Score: r.Score}
	}
	graph.SortDescending(scored)

	order := make(map[string]int, len(scored))
	for i, s := range scored {
		order[s.ID] = i
	}
	sort.Slice(results, func(i, j int) bool {
		return order[results[i].ID] < order[results[j].ID]
	})
}
