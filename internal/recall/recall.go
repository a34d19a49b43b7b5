// Package recall implements the hybrid retrieval orchestrator: dense
// vector search, lexical BM25 search, Reciprocal Rank Fusion, and (for
// memories) Personalized PageRank over the entity graph, combined into one
// weighted, NaN-safe ranking.
package recall

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/embed"
	"github.com/amanmcp-labs/memoryd/internal/graph"
	"github.com/amanmcp-labs/memoryd/internal/ident"
	"github.com/amanmcp-labs/memoryd/internal/model"
	"github.com/amanmcp-labs/memoryd/internal/store"
)

const (
	// MaxLimit bounds every recall/search operation's result count.
	MaxLimit = 50
	// DefaultLimit applies when a caller passes limit <= 0.
	DefaultLimit = 10
	// fetchLimit is how many candidates each source contributes before
	// fusion narrows the pool.
	fetchLimit = 50
	// graphCandidateCap bounds how many fused candidates enter the PPR
	// stage, per spec.
	graphCandidateCap = 20

	// DefaultVectorWeight, DefaultBM25Weight, and DefaultPPRWeight are
	// spec's default weighting for recall's final weighted sum.
	DefaultVectorWeight = 0.40
	DefaultBM25Weight   = 0.15
	DefaultPPRWeight    = 0.45
)

// Weights controls how recall combines its three signals.
type Weights struct {
	Vector float64
	BM25   float64
	PPR    float64
}

// DefaultWeights returns spec's default weighting vector.
func DefaultWeights() Weights {
	return Weights{Vector: DefaultVectorWeight, BM25: DefaultBM25Weight, PPR: DefaultPPRWeight}
}

// Validate rejects a weights vector carrying any negative component.
func (w Weights) Validate() error {
	if w.Vector < 0 || w.BM25 < 0 || w.PPR < 0 {
		return apperr.Validationf("recall_weights_negative", "recall weights must be non-negative")
	}
	return nil
}

// Result is one recall hit: a memory with its fused and per-source scores.
type Result struct {
	ID          string
	Content     string
	MemoryType  model.MemoryType
	Score       float64
	VectorScore float64
	BM25Score   float64
	PPRScore    float64
}

// Orchestrator runs recall/search/search_text over the store's memory
// table, using the embedding service for the dense side.
type Orchestrator struct {
	store    *store.Store
	embedder *embed.Service
}

// New builds an Orchestrator over an open store and an embedding service.
func New(st *store.Store, embedder *embed.Service) *Orchestrator {
	return &Orchestrator{store: st, embedder: embedder}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Recall runs the full hybrid pipeline: embed the query once, fetch top-50
// dense and lexical candidates over memories in parallel, RRF-merge them,
// seed Personalized PageRank over the entity graph from the top graph
// candidates, and combine all three signals into one weighted, sorted
// result set.
func (o *Orchestrator) Recall(ctx context.Context, query string, limit int, weights Weights) ([]Result, error) {
	if o.embedder.Status() != embed.StateReady {
		return nil, apperr.New(apperr.NotReady, "recall_embedding_not_ready", "embedding subsystem is not ready", nil)
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	queryVec, err := o.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var vectorHits []store.VectorHit
	var lexicalHits []store.LexicalHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		vectorHits, err = o.store.SearchMemoriesVector(gctx, queryVec, "", fetchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		lexicalHits, err = o.store.SearchMemoriesLexical(gctx, query, "", fetchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]model.Memory)
	vecList := graph.RankedList{Source: "vector"}
	for _, h := range vectorHits {
		id := h.Memory.ID.String()
		byID[id] = h.Memory
		vecList.IDs = append(vecList.IDs, id)
		vecList.Scores = append(vecList.Scores, h.Score)
	}
	bm25List := graph.RankedList{Source: "bm25"}
	for _, h := range lexicalHits {
		id := h.Memory.ID.String()
		byID[id] = h.Memory
		bm25List.IDs = append(bm25List.IDs, id)
		bm25List.Scores = append(bm25List.Scores, h.Score)
	}

	fused := graph.Fuse([]graph.RankedList{vecList, bm25List}, graph.DefaultRRFConstant)

	poolSize := len(fused)
	if poolSize > graphCandidateCap {
		poolSize = graphCandidateCap
	}
	pprScores, err := o.seedPPR(ctx, fused[:poolSize], byID)
	if err != nil {
		return nil, err
	}

	vecScores := make([]float64, len(fused))
	bmScores := make([]float64, len(fused))
	pprRaw := make([]float64, len(fused))
	for i, f := range fused {
		vecScores[i] = f.PerSource["vector"]
		bmScores[i] = f.PerSource["bm25"]
		pprRaw[i] = pprScores[f.ID]
	}
	// RRF already makes the vector/bm25 fusion scale-invariant, but PPR's
	// raw PageRank mass lives on a different scale than either RRF term, so
	// z-score normalize all three before the weighted sum keeps PPR from
	// dominating (or vanishing against) the RRF scores purely by scale.
	normalized := graph.Normalize([]graph.ZScoreGroup{
		{Key: "vector", Scores: vecScores},
		{Key: "bm25", Scores: bmScores},
		{Key: "ppr", Scores: pprRaw},
	})

	results := make([]Result, 0, len(fused))
	for i, f := range fused {
		mem, ok := byID[f.ID]
		if !ok {
			continue
		}
		final := weights.Vector*normalized["vector"][i] + weights.BM25*normalized["bm25"][i] + weights.PPR*normalized["ppr"][i]
		results = append(results, Result{
			ID:          f.ID,
			Content:     mem.Content,
			MemoryType:  mem.MemoryType,
			Score:       final,
			VectorScore: vecScores[i],
			BM25Score:   bmScores[i],
			PPRScore:    pprRaw[i],
		})
	}

	sortResultsDescending(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// seedPPR runs Personalized PageRank over the entity graph, seeded by the
// entities named in the graph candidate pool's memory content, and returns
// each pooled memory's best-matching entity score.
//
// Memories and entities are stored in separate tables with no direct link
// between them, and the operation surface has no entity-extraction step,
// so this bridges the two by substring name matching: any entity whose
// name appears in a candidate memory's content becomes that memory's PPR
// seed. A memory that matches no entity gets ppr_score 0, same as any
// source that never ranked it.
func (o *Orchestrator) seedPPR(ctx context.Context, pool []graph.FusedResult, byID map[string]model.Memory) (map[string]float64, error) {
	if len(pool) == 0 {
		return nil, nil
	}

	entities, err := o.store.AllEntities(ctx)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}

	memoryToEntities := make(map[string][]string)
	seedSet := make(map[string]bool)
	for _, f := range pool {
		mem, ok := byID[f.ID]
		if !ok {
			continue
		}
		content := strings.ToLower(mem.Content)
		for _, e := range entities {
			if e.Name == "" || !strings.Contains(content, strings.ToLower(e.Name)) {
				continue
			}
			eid := e.ID.String()
			memoryToEntities[f.ID] = append(memoryToEntities[f.ID], eid)
			seedSet[eid] = true
		}
	}
	if len(seedSet) == 0 {
		return nil, nil
	}

	seeds := make([]string, 0, len(seedSet))
	seedEntityIDs := make([]ident.ID, 0, len(seedSet))
	for idStr := range seedSet {
		seeds = append(seeds, idStr)
		if id, err := ident.Parse(idStr); err == nil {
			seedEntityIDs = append(seedEntityIDs, id)
		}
	}
	sort.Strings(seeds)

	relations, err := o.store.RelationsAmong(ctx, seedEntityIDs)
	if err != nil {
		return nil, err
	}

	nodeSet := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		nodeSet[id] = true
	}
	for _, r := range relations {
		nodeSet[r.InEntity.String()] = true
		nodeSet[r.OutEntity.String()] = true
	}
	nodes := make([]string, 0, len(nodeSet))
	for id := range nodeSet {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	adj := graph.NewAdjacency(nodes)
	for _, r := range relations {
		adj.AddEdge(r.InEntity.String(), r.OutEntity.String(), r.Weight)
		adj.AddEdge(r.OutEntity.String(), r.InEntity.String(), r.Weight)
	}

	scores := graph.PPR(adj, graph.PPROptions{Seeds: seeds, HubDampen: true})

	entityScore := make(map[string]float64, len(nodes))
	for i, id := range nodes {
		entityScore[id] = scores[i]
	}

	memoryScore := make(map[string]float64, len(memoryToEntities))
	for memID, eids := range memoryToEntities {
		var best float64
		for _, eid := range eids {
			if s := entityScore[eid]; s > best {
				best = s
			}
		}
		memoryScore[memID] = best
	}
	return memoryScore, nil
}

func sortResultsDescending(results []Result) {
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
