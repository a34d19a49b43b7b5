// Package app wires memoryd's storage, embedding, recall, and indexing
// subsystems into the single set of operations the MCP server and CLI both
// call into, so both the MCP transport and CLI commands share one wiring
// point instead of duplicating it.
package app

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/config"
	"github.com/amanmcp-labs/memoryd/internal/embed"
	"github.com/amanmcp-labs/memoryd/internal/graph"
	"github.com/amanmcp-labs/memoryd/internal/ident"
	"github.com/amanmcp-labs/memoryd/internal/index"
	"github.com/amanmcp-labs/memoryd/internal/model"
	"github.com/amanmcp-labs/memoryd/internal/recall"
	"github.com/amanmcp-labs/memoryd/internal/store"
	"github.com/amanmcp-labs/memoryd/pkg/version"
)

// embedWorkers bounds the embedding service's concurrent ONNX sessions.
const embedWorkers = 4

// App is memoryd's assembled runtime: one store, one embedding service, and
// the orchestrators and pipeline built over them. Every exported method
// corresponds to one external operation.
type App struct {
	cfg      *config.Config
	store    *store.Store
	embedder *embed.Service
	orch     *recall.Orchestrator
	pipeline *index.Pipeline
	logger   *slog.Logger
}

// New opens the store, starts the embedding service loading in the
// background, and wires the recall orchestrator and indexing pipeline over
// them. It returns as soon as the store is open — it does not block on the
// embedding model finishing its load, matching spec's requirement that
// memory writes and lexical search work before the model is ready.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	spec, err := embed.Lookup(cfg.Model)
	if err != nil {
		return nil, err
	}
	dim, err := spec.EffectiveDimension(cfg.MRLDim)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Options{Path: cfg.StoreDir(), Dimension: dim})
	if err != nil {
		return nil, err
	}

	embedder, err := embed.NewService(ctx, cfg.ModelCacheDir(), cfg.Model, cfg.MRLDim, cfg.CacheSize, st, embedWorkers)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	pipeline, err := index.NewPipeline(st, embedder)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		store:    st,
		embedder: embedder,
		orch:     recall.New(st, embedder),
		pipeline: pipeline,
		logger:   logger,
	}

	go a.checkDimensionCompatibility()

	return a, nil
}

// checkDimensionCompatibility waits for the embedding model to finish
// loading, then enforces spec's dimension-mismatch policy against whatever
// vectors are already stored. It runs once per process lifetime, in the
// background, since the model can take tens of seconds to load and memory
// writes must not block on it.
func (a *App) checkDimensionCompatibility() {
	if err := a.embedder.WaitReady(context.Background()); err != nil {
		a.logger.Warn("embedding model failed to load, dimension check skipped", slog.String("error", err.Error()))
		return
	}
	cfg := model.DbConfig{ModelName: a.embedder.ModelName(), EffectiveDimension: a.embedder.Dimension()}
	if err := a.store.CheckDimensionCompatibility(context.Background(), cfg, a.cfg.ForceModel, a.cfg.ResetMemory); err != nil {
		a.logger.Error("dimension compatibility check failed", slog.String("error", err.Error()))
		return
	}

	// force_model or reset_memory may have landed on a dimension other than
	// the one the HNSW indexes were opened with; resync them against
	// whatever db_config actually says now.
	resolved, found, err := a.store.GetDbConfig(context.Background())
	if err != nil || !found {
		return
	}
	if resolved.EffectiveDimension != cfg.EffectiveDimension {
		if err := a.store.EnsureVectorIndexes(context.Background(), resolved.EffectiveDimension); err != nil {
			a.logger.Error("failed to resync vector indexes to resolved dimension", slog.String("error", err.Error()))
		}
	}
}

// Close releases the indexing pipeline's parser resources, waits for the
// embedding service to finish loading (if it hasn't already) so its ONNX
// session can be released cleanly, and closes the store.
func (a *App) Close() error {
	a.pipeline.Close()
	a.embedder.Close()
	return a.store.Close()
}

func parseID(table, s string) (ident.ID, error) {
	id, err := ident.Parse(s)
	if err != nil {
		return ident.ID{}, err
	}
	if id.Table() != table {
		return ident.ID{}, apperr.Validationf("ident_wrong_table", "expected a %s identifier, got %q", table, s)
	}
	return id, nil
}

// ---- Memory group ----

// StoreMemory creates a new memory. memoryType defaults to "episodic" when
// empty.
func (a *App) StoreMemory(ctx context.Context, content, memoryType, userID string, metadata map[string]string) (string, error) {
	if content == "" {
		return "", apperr.Validationf("memory_content_empty", "content must not be empty")
	}
	if memoryType == "" {
		memoryType = string(model.MemoryEpisodic)
	}

	id, err := a.store.CreateMemory(ctx, model.Memory{
		Content:    content,
		MemoryType: model.MemoryType(memoryType),
		UserID:     userID,
		Metadata:   metadata,
	})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GetMemory fetches a memory by id regardless of validity.
func (a *App) GetMemory(ctx context.Context, id string) (model.Memory, error) {
	mid, err := parseID("memory", id)
	if err != nil {
		return model.Memory{}, err
	}
	return a.store.GetMemory(ctx, mid)
}

// UpdateMemory merges any non-nil field into an existing memory.
func (a *App) UpdateMemory(ctx context.Context, id string, content, memoryType *string, metadata map[string]string) (model.Memory, error) {
	mid, err := parseID("memory", id)
	if err != nil {
		return model.Memory{}, err
	}

	patch := map[string]any{}
	if content != nil {
		patch["content"] = *content
	}
	if memoryType != nil {
		patch["memory_type"] = *memoryType
	}
	if metadata != nil {
		patch["metadata"] = metadata
	}
	if len(patch) == 0 {
		return a.store.GetMemory(ctx, mid)
	}
	return a.store.UpdateMemory(ctx, mid, patch)
}

// DeleteMemory removes a memory, reporting whether one existed.
func (a *App) DeleteMemory(ctx context.Context, id string) (bool, error) {
	mid, err := parseID("memory", id)
	if err != nil {
		return false, err
	}
	return a.store.DeleteMemory(ctx, mid)
}

// MemoryPage is list_memories' response shape.
type MemoryPage struct {
	Memories []model.Memory
	Total    int
	Limit    int
	Offset   int
}

// ListMemories returns a page of memories, most recently ingested first.
func (a *App) ListMemories(ctx context.Context, limit, offset int) (MemoryPage, error) {
	limit = clampPageLimit(limit)
	if offset < 0 {
		offset = 0
	}
	memories, total, err := a.store.ListMemories(ctx, limit, offset)
	if err != nil {
		return MemoryPage{}, err
	}
	return MemoryPage{Memories: memories, Total: total, Limit: limit, Offset: offset}, nil
}

func clampPageLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ---- Search group ----

// Search runs dense-only vector search over memories.
func (a *App) Search(ctx context.Context, query string, limit int) ([]recall.Result, error) {
	return a.orch.Search(ctx, query, limit)
}

// SearchText runs lexical-only BM25 search over memories.
func (a *App) SearchText(ctx context.Context, query string, limit int) ([]recall.Result, error) {
	return a.orch.SearchText(ctx, query, limit)
}

// Recall runs the full hybrid vector+BM25+PPR pipeline over memories.
func (a *App) Recall(ctx context.Context, query string, limit int, vectorWeight, bm25Weight, pprWeight float64) ([]recall.Result, error) {
	weights := recall.DefaultWeights()
	if vectorWeight != 0 {
		weights.Vector = vectorWeight
	}
	if bm25Weight != 0 {
		weights.BM25 = bm25Weight
	}
	if pprWeight != 0 {
		weights.PPR = pprWeight
	}
	return a.orch.Recall(ctx, query, limit, weights)
}

// ---- Graph group ----

// CreateEntity inserts a new entity node.
func (a *App) CreateEntity(ctx context.Context, name, entityType, description, userID string) (string, error) {
	if name == "" {
		return "", apperr.Validationf("entity_name_empty", "name must not be empty")
	}
	if entityType == "" {
		entityType = "concept"
	}
	id, err := a.store.CreateEntity(ctx, model.Entity{
		Name:        name,
		EntityType:  entityType,
		Description: description,
		UserID:      userID,
	})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CreateRelation creates a directed, weighted edge between two entities.
func (a *App) CreateRelation(ctx context.Context, from, to, relationType string, weight float64) (string, error) {
	fromID, err := parseID("entity", from)
	if err != nil {
		return "", err
	}
	toID, err := parseID("entity", to)
	if err != nil {
		return "", err
	}
	if relationType == "" {
		return "", apperr.Validationf("relation_type_empty", "relation_type must not be empty")
	}
	if weight < 0 || weight > 1 {
		return "", apperr.Validationf("relation_weight_out_of_range", "weight must be in [0, 1], got %v", weight)
	}

	id, err := a.store.RelateEntities(ctx, fromID, toID, relationType, weight)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RelatedResult is get_related's response shape.
type RelatedResult struct {
	Entities      []model.Entity
	Relations     []model.Relation
	Truncated     bool
	DeferredCount int
}

// maxRelatedNodes bounds how many entities get_related will fetch before
// deferring the remaining frontier, so a densely connected graph can't
// blow past the response budget.
const maxRelatedNodes = 200

// GetRelated walks the entity graph outward from entityID up to depth
// hops, fetching each level live from storage since relations are not kept
// in an in-memory graph between requests. direction filters which edge
// endpoint counts as "related": out (entityID is the source), in (entityID
// is the target), or both.
func (a *App) GetRelated(ctx context.Context, entityID string, depth int, direction string) (RelatedResult, error) {
	root, err := parseID("entity", entityID)
	if err != nil {
		return RelatedResult{}, err
	}
	if depth <= 0 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}
	if direction == "" {
		direction = "both"
	}

	visited := map[string]bool{root.String(): true}
	var entities []model.Entity
	var relations []model.Relation
	frontier := []ident.ID{root}
	truncated := false
	deferred := map[string]bool{}

	for level := 0; level < depth && len(frontier) > 0 && !truncated; level++ {
		var next []ident.ID
		for _, nid := range frontier {
			rels, err := a.store.Neighbors(ctx, nid)
			if err != nil {
				return RelatedResult{}, err
			}
			for _, r := range rels {
				var other ident.ID
				switch direction {
				case "out":
					if r.InEntity.String() != nid.String() {
						continue
					}
					other = r.OutEntity
				case "in":
					if r.OutEntity.String() != nid.String() {
						continue
					}
					other = r.InEntity
				default:
					if r.InEntity.String() == nid.String() {
						other = r.OutEntity
					} else {
						other = r.InEntity
					}
				}

				relations = append(relations, r)

				if visited[other.String()] {
					continue
				}
				if len(visited) >= maxRelatedNodes {
					truncated = true
					deferred[other.String()] = true
					continue
				}
				visited[other.String()] = true
				next = append(next, other)
			}
		}
		frontier = next
	}

	for idStr := range visited {
		if idStr == root.String() {
			continue
		}
		eid, err := ident.Parse(idStr)
		if err != nil {
			continue
		}
		ent, err := a.store.GetEntity(ctx, eid)
		if err != nil {
			continue
		}
		entities = append(entities, ent)
	}

	return RelatedResult{
		Entities:      entities,
		Relations:     relations,
		Truncated:     truncated,
		DeferredCount: len(deferred),
	}, nil
}

// DetectCommunities runs Louvain community detection over the whole entity
// graph and groups entity ids by community.
func (a *App) DetectCommunities(ctx context.Context, resolution float64) ([][]string, error) {
	entities, err := a.store.AllEntities(ctx)
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, nil
	}
	relations, err := a.store.AllRelations(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID.String()
	}
	adj := graph.NewAdjacency(ids)
	for _, r := range relations {
		adj.AddEdge(r.InEntity.String(), r.OutEntity.String(), r.Weight)
		adj.AddEdge(r.OutEntity.String(), r.InEntity.String(), r.Weight)
	}

	communityOf := graph.Louvain(adj, graph.LouvainOptions{Resolution: resolution})

	byCommunity := make(map[int][]string)
	var order []int
	for i, c := range communityOf {
		if _, seen := byCommunity[c]; !seen {
			order = append(order, c)
		}
		byCommunity[c] = append(byCommunity[c], ids[i])
	}
	sort.Ints(order)

	communities := make([][]string, len(order))
	for i, c := range order {
		communities[i] = byCommunity[c]
	}
	return communities, nil
}

// ---- Temporal group ----

// GetValid returns every currently-valid memory, optionally scoped to a
// user.
func (a *App) GetValid(ctx context.Context, userID string, limit int) ([]model.Memory, error) {
	return a.store.ListValidMemories(ctx, userID, clampPageLimit(limit))
}

// GetValidAt returns every memory valid at a specific point in time.
func (a *App) GetValidAt(ctx context.Context, at time.Time, userID string, limit int) ([]model.Memory, error) {
	return a.store.ListValidMemoriesAt(ctx, at, userID, clampPageLimit(limit))
}

// Invalidate closes a memory's validity window.
func (a *App) Invalidate(ctx context.Context, id, reason, supersededBy string) (bool, error) {
	mid, err := parseID("memory", id)
	if err != nil {
		return false, err
	}

	var successor *ident.ID
	if supersededBy != "" {
		sid, err := parseID("memory", supersededBy)
		if err != nil {
			return false, err
		}
		successor = &sid
	}

	if err := a.store.InvalidateMemory(ctx, mid, time.Now().UTC(), reason, successor); err != nil {
		return false, err
	}
	return true, nil
}

// ---- Code group ----

// ErrWatchNotImplemented is returned by IndexProject when watch is
// requested: the file-watcher subsystem is carried in the tree as a future
// hook but nothing wires it to a live index_project call yet.
var ErrWatchNotImplemented = apperr.Validationf("index_watch_not_implemented", "watch mode is not implemented")

// IndexProject indexes every accepted file under path. watch is rejected
// since continuous watching is not wired up.
func (a *App) IndexProject(ctx context.Context, path string, watch bool) (index.Result, error) {
	if watch {
		return index.Result{}, ErrWatchNotImplemented
	}
	return a.pipeline.IndexProject(ctx, path)
}

// SearchCode runs dense-only vector search over code chunks.
func (a *App) SearchCode(ctx context.Context, query, projectID string, limit int) ([]recall.CodeResult, error) {
	return a.orch.SearchCode(ctx, query, projectID, limit)
}

// RecallCode runs hybrid vector+BM25 search over code chunks.
func (a *App) RecallCode(ctx context.Context, query, projectID string, limit int) ([]recall.CodeResult, error) {
	return a.orch.RecallCode(ctx, query, projectID, limit)
}

// GetIndexStatus fetches a project's indexing progress record.
func (a *App) GetIndexStatus(ctx context.Context, projectID string) (model.IndexStatus, error) {
	st, found, err := a.store.GetIndexStatus(ctx, projectID)
	if err != nil {
		return model.IndexStatus{}, err
	}
	if !found {
		return model.IndexStatus{}, apperr.NotFoundf("index_status_not_found", "no index status for project %q", projectID)
	}
	return st, nil
}

// ListProjects returns every indexed project's progress record.
func (a *App) ListProjects(ctx context.Context) ([]model.IndexStatus, error) {
	return a.store.ListIndexStatuses(ctx)
}

// DeleteProject erases every chunk, symbol, and progress record for a
// project, returning the number of chunks deleted.
func (a *App) DeleteProject(ctx context.Context, projectID string) (int, error) {
	return a.pipeline.DeleteProject(ctx, projectID)
}

// SearchSymbols finds symbols whose name fuzzy-matches nameQuery, optionally
// scoped to a project.
func (a *App) SearchSymbols(ctx context.Context, nameQuery, projectID string) ([]model.Symbol, error) {
	if nameQuery == "" {
		return nil, apperr.Validationf("symbol_name_query_empty", "name_query must not be empty")
	}
	return a.store.SearchSymbolsByName(ctx, nameQuery, projectID)
}

// GetCallers returns every symbol that calls symbolID.
func (a *App) GetCallers(ctx context.Context, symbolID string) ([]model.Symbol, error) {
	sid, err := parseID("symbol", symbolID)
	if err != nil {
		return nil, err
	}
	return a.store.Callers(ctx, sid)
}

// GetCallees returns every symbol symbolID calls.
func (a *App) GetCallees(ctx context.Context, symbolID string) ([]model.Symbol, error) {
	sid, err := parseID("symbol", symbolID)
	if err != nil {
		return nil, err
	}
	return a.store.Callees(ctx, sid)
}

// GetRelatedSymbols returns every symbol_relation edge reachable from
// symbolID up to depth hops, breadth-first, mirroring GetRelated's live
// per-level fetch over the symbol_relation edge set.
func (a *App) GetRelatedSymbols(ctx context.Context, symbolID string, depth int) ([]model.SymbolRelation, error) {
	root, err := parseID("symbol", symbolID)
	if err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}

	visited := map[string]bool{root.String(): true}
	var relations []model.SymbolRelation
	frontier := []ident.ID{root}

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []ident.ID
		for _, nid := range frontier {
			rels, err := a.store.RelatedSymbols(ctx, nid)
			if err != nil {
				return nil, err
			}
			for _, r := range rels {
				relations = append(relations, r)
				other := r.Target
				if other.String() == nid.String() {
					other = r.Source
				}
				if !visited[other.String()] && len(visited) < maxRelatedNodes {
					visited[other.String()] = true
					next = append(next, other)
				}
			}
		}
		frontier = next
	}
	return relations, nil
}

// ---- System group ----

// EmbeddingStatus is get_status' embedding diagnostics block.
type EmbeddingStatus struct {
	Status     string
	Model      string
	Dimensions int
	CacheStats embed.CacheStats
}

// StatusReport is get_status' response shape.
type StatusReport struct {
	Version   string
	Status    string
	Memories  int
	Embedding EmbeddingStatus
}

// Status reports version, table counts, and embedding diagnostics.
func (a *App) Status(ctx context.Context) (StatusReport, error) {
	counts, err := a.store.Counts(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		Version:  version.Short(),
		Status:   "ok",
		Memories: counts.Memories,
		Embedding: EmbeddingStatus{
			Status:     a.embedder.Status().String(),
			Model:      a.embedder.ModelName(),
			Dimensions: a.embedder.Dimension(),
			CacheStats: a.embedder.CacheStats(),
		},
	}, nil
}

// ResetAllMemory wipes every stored memory, entity, relation, and indexed
// code chunk/symbol, and clears db_config. confirm must be true; this is
// the only operation requiring an explicit confirmation flag, since it is
// irreversible.
func (a *App) ResetAllMemory(ctx context.Context, confirm bool) (bool, error) {
	if !confirm {
		return false, apperr.Validationf("reset_requires_confirmation", "reset_all_memory requires confirm=true")
	}
	if err := a.store.ResetMemories(ctx); err != nil {
		return false, err
	}
	return true, nil
}
