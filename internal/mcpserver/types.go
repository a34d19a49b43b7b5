package mcpserver

import (
	"time"

	"github.com/amanmcp-labs/memoryd/internal/embed"
	"github.com/amanmcp-labs/memoryd/internal/model"
	"github.com/amanmcp-labs/memoryd/internal/recall"
)

// ---- Memory group ----

type StoreMemoryInput struct {
	Content    string            `json:"content" jsonschema:"the memory's text content"`
	MemoryType string            `json:"memory_type,omitempty" jsonschema:"episodic, semantic, or procedural; defaults to episodic"`
	UserID     string            `json:"user_id,omitempty" jsonschema:"optional tenancy tag"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type StoreMemoryOutput struct {
	ID string `json:"id"`
}

type GetMemoryInput struct {
	ID string `json:"id"`
}

type MemoryOutput struct {
	ID                 string            `json:"id"`
	Content            string            `json:"content"`
	MemoryType         string            `json:"memory_type"`
	UserID             string            `json:"user_id,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	EventTime          string            `json:"event_time"`
	IngestionTime      string            `json:"ingestion_time"`
	ValidFrom          string            `json:"valid_from"`
	ValidUntil         *string           `json:"valid_until,omitempty"`
	ImportanceScore    float64           `json:"importance_score"`
	InvalidationReason string            `json:"invalidation_reason,omitempty"`
	SupersededBy       string            `json:"superseded_by,omitempty"`
}

func memoryOutputFromModel(m model.Memory) MemoryOutput {
	out := MemoryOutput{
		ID:                 m.ID.String(),
		Content:            m.Content,
		MemoryType:         string(m.MemoryType),
		UserID:             m.UserID,
		Metadata:           m.Metadata,
		EventTime:          m.EventTime.Format(time.RFC3339),
		IngestionTime:      m.IngestionTime.Format(time.RFC3339),
		ValidFrom:          m.ValidFrom.Format(time.RFC3339),
		ImportanceScore:    m.ImportanceScore,
		InvalidationReason: m.InvalidationReason,
	}
	if m.ValidUntil != nil {
		s := m.ValidUntil.Format(time.RFC3339)
		out.ValidUntil = &s
	}
	if m.SupersededBy != nil {
		out.SupersededBy = m.SupersededBy.String()
	}
	return out
}

type UpdateMemoryInput struct {
	ID         string            `json:"id"`
	Content    *string           `json:"content,omitempty"`
	MemoryType *string           `json:"memory_type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type DeleteMemoryInput struct {
	ID string `json:"id"`
}

type DeleteMemoryOutput struct {
	Deleted bool `json:"deleted"`
}

type ListMemoriesInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"maximum 100, defaults to 20"`
	Offset int `json:"offset,omitempty"`
}

type ListMemoriesOutput struct {
	Memories []MemoryOutput `json:"memories"`
	Total    int            `json:"total"`
	Limit    int            `json:"limit"`
	Offset   int            `json:"offset"`
}

// ---- Search group ----

type SearchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum 50, defaults to 10"`
}

type SearchResultOutput struct {
	ID          string  `json:"id"`
	Content     string  `json:"content"`
	MemoryType  string  `json:"memory_type"`
	Score       float64 `json:"score"`
	VectorScore float64 `json:"vector_score,omitempty"`
	BM25Score   float64 `json:"bm25_score,omitempty"`
	PPRScore    float64 `json:"ppr_score,omitempty"`
}

func searchResultOutputsFromRecall(results []recall.Result) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i, r := range results {
		out[i] = SearchResultOutput{
			ID:          r.ID,
			Content:     r.Content,
			MemoryType:  string(r.MemoryType),
			Score:       r.Score,
			VectorScore: r.VectorScore,
			BM25Score:   r.BM25Score,
			PPRScore:    r.PPRScore,
		}
	}
	return out
}

type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
	Query   string               `json:"query"`
}

type RecallInput struct {
	Query        string  `json:"query"`
	Limit        int     `json:"limit,omitempty" jsonschema:"maximum 50, defaults to 10"`
	VectorWeight float64 `json:"vector_weight,omitempty"`
	BM25Weight   float64 `json:"bm25_weight,omitempty"`
	PPRWeight    float64 `json:"ppr_weight,omitempty"`
}

type WeightsOutput struct {
	Vector float64 `json:"vector"`
	BM25   float64 `json:"bm25"`
	PPR    float64 `json:"ppr"`
}

type RecallOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
	Query   string                `json:"query"`
	Weights WeightsOutput         `json:"weights"`
}

// ---- Graph group ----

type CreateEntityInput struct {
	Name        string `json:"name"`
	EntityType  string `json:"entity_type,omitempty"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

type CreateEntityOutput struct {
	ID string `json:"id"`
}

type CreateRelationInput struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	RelationType string  `json:"relation_type"`
	Weight       float64 `json:"weight,omitempty" jsonschema:"in [0, 1], defaults to 1.0"`
}

type CreateRelationOutput struct {
	ID string `json:"id"`
}

type EntityOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	EntityType  string `json:"entity_type"`
	Description string `json:"description,omitempty"`
}

type RelationOutput struct {
	ID           string  `json:"id"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	RelationType string  `json:"relation_type"`
	Weight       float64 `json:"weight"`
}

type GetRelatedInput struct {
	EntityID  string `json:"entity_id"`
	Depth     int    `json:"depth,omitempty" jsonschema:"maximum 3, defaults to 1"`
	Direction string `json:"direction,omitempty" jsonschema:"out, in, or both; defaults to both"`
}

type GetRelatedOutput struct {
	Entities      []EntityOutput   `json:"entities"`
	Relations     []RelationOutput `json:"relations"`
	Truncated     bool             `json:"truncated"`
	DeferredCount int              `json:"deferred_count"`
}

type DetectCommunitiesInput struct {
	Resolution float64 `json:"resolution,omitempty" jsonschema:"defaults to 1.0"`
}

type DetectCommunitiesOutput struct {
	Communities [][]string `json:"communities"`
}

// ---- Temporal group ----

type GetValidInput struct {
	UserID string `json:"user_id,omitempty"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum 100, defaults to 20"`
}

type GetValidOutput struct {
	Results []MemoryOutput `json:"results"`
	Count   int            `json:"count"`
}

type GetValidAtInput struct {
	Timestamp string `json:"timestamp" jsonschema:"RFC3339 timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum 100, defaults to 20"`
}

type GetValidAtOutput struct {
	Results   []MemoryOutput `json:"results"`
	Count     int            `json:"count"`
	Timestamp string         `json:"timestamp"`
}

type InvalidateInput struct {
	ID           string `json:"id"`
	Reason       string `json:"reason,omitempty"`
	SupersededBy string `json:"superseded_by,omitempty"`
}

type InvalidateOutput struct {
	Invalidated bool `json:"invalidated"`
}

// ---- Code group ----

type IndexProjectInput struct {
	Path  string `json:"path"`
	Watch bool   `json:"watch,omitempty"`
}

type IndexProjectOutput struct {
	ProjectID     string `json:"project_id"`
	FilesIndexed  int    `json:"files_indexed"`
	ChunksCreated int    `json:"chunks_created"`
}

type SearchCodeInput struct {
	Query     string `json:"query"`
	ProjectID string `json:"project_id,omitempty"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum 50, defaults to 10"`
}

type CodeResultOutput struct {
	ID          string  `json:"id"`
	FilePath    string  `json:"file_path"`
	Content     string  `json:"content"`
	Language    string  `json:"language"`
	ChunkType   string  `json:"chunk_type"`
	Name        string  `json:"name,omitempty"`
	StartLine   int     `json:"start_line"`
	EndLine     int     `json:"end_line"`
	Score       float64 `json:"score"`
	VectorScore float64 `json:"vector_score,omitempty"`
	BM25Score   float64 `json:"bm25_score,omitempty"`
}

func codeResultOutputsFromRecall(results []recall.CodeResult) []CodeResultOutput {
	out := make([]CodeResultOutput, len(results))
	for i, r := range results {
		out[i] = CodeResultOutput{
			ID:          r.ID,
			FilePath:    r.FilePath,
			Content:     r.Content,
			Language:    r.Language,
			ChunkType:   string(r.ChunkType),
			Name:        r.Name,
			StartLine:   r.StartLine,
			EndLine:     r.EndLine,
			Score:       r.Score,
			VectorScore: r.VectorScore,
			BM25Score:   r.BM25Score,
		}
	}
	return out
}

type CodeSearchOutput struct {
	Results []CodeResultOutput `json:"results"`
	Count   int                `json:"count"`
	Query   string             `json:"query"`
}

type GetIndexStatusInput struct {
	ProjectID string `json:"project_id"`
}

type IndexStatusOutput struct {
	ProjectID    string  `json:"project_id"`
	Status       string  `json:"status"`
	TotalFiles   int     `json:"total_files"`
	IndexedFiles int     `json:"indexed_files"`
	TotalChunks  int     `json:"total_chunks"`
	StartedAt    string  `json:"started_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

func indexStatusOutputFromModel(st model.IndexStatus) IndexStatusOutput {
	out := IndexStatusOutput{
		ProjectID:    st.ProjectID,
		Status:       string(st.Status),
		TotalFiles:   st.TotalFiles,
		IndexedFiles: st.IndexedFiles,
		TotalChunks:  st.TotalChunks,
		StartedAt:    st.StartedAt.Format(time.RFC3339),
		ErrorMessage: st.ErrorMessage,
	}
	if st.CompletedAt != nil {
		s := st.CompletedAt.Format(time.RFC3339)
		out.CompletedAt = &s
	}
	return out
}

type ListProjectsInput struct{}

type ListProjectsOutput struct {
	Projects []IndexStatusOutput `json:"projects"`
	Count    int                 `json:"count"`
}

type DeleteProjectInput struct {
	ProjectID string `json:"project_id"`
}

type DeleteProjectOutput struct {
	ChunksDeleted int `json:"chunks_deleted"`
}

type SearchSymbolsInput struct {
	NameQuery string `json:"name_query"`
	ProjectID string `json:"project_id,omitempty"`
}

type SymbolOutput struct {
	ID                 string `json:"id"`
	ProjectID          string `json:"project_id"`
	FilePath           string `json:"file_path"`
	Kind               string `json:"kind"`
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fully_qualified_name"`
	StartLine          int    `json:"start_line"`
	EndLine            int    `json:"end_line"`
}

func symbolOutputFromModel(sym model.Symbol) SymbolOutput {
	return SymbolOutput{
		ID:                 sym.ID.String(),
		ProjectID:          sym.ProjectID,
		FilePath:           sym.FilePath,
		Kind:               string(sym.Kind),
		Name:               sym.Name,
		FullyQualifiedName: sym.FullyQualifiedName,
		StartLine:          sym.Location.StartLine,
		EndLine:            sym.Location.EndLine,
	}
}

func symbolOutputsFromModel(syms []model.Symbol) []SymbolOutput {
	out := make([]SymbolOutput, len(syms))
	for i, s := range syms {
		out[i] = symbolOutputFromModel(s)
	}
	return out
}

type SymbolSearchOutput struct {
	Results []SymbolOutput `json:"results"`
	Count   int            `json:"count"`
}

type GetCallersInput struct {
	SymbolID string `json:"symbol_id"`
}

type GetCalleesInput struct {
	SymbolID string `json:"symbol_id"`
}

type SymbolListOutput struct {
	Symbols []SymbolOutput `json:"symbols"`
	Count   int            `json:"count"`
}

type GetRelatedSymbolsInput struct {
	SymbolID string `json:"symbol_id"`
	Depth    int    `json:"depth,omitempty" jsonschema:"maximum 3, defaults to 1"`
}

type SymbolRelationOutput struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

type GetRelatedSymbolsOutput struct {
	Relations []SymbolRelationOutput `json:"relations"`
	Count     int                    `json:"count"`
}

// ---- System group ----

type GetStatusInput struct{}

type CacheStatsOutput struct {
	L1Hits    int64   `json:"l1_hits"`
	L2Hits    int64   `json:"l2_hits"`
	Misses    int64   `json:"misses"`
	L1HitRate float64 `json:"l1_hit_rate"`
	L2HitRate float64 `json:"l2_hit_rate"`
}

func cacheStatsOutputFromModel(s embed.CacheStats) CacheStatsOutput {
	return CacheStatsOutput{
		L1Hits:    s.L1Hits,
		L2Hits:    s.L2Hits,
		Misses:    s.Misses,
		L1HitRate: s.L1HitRate(),
		L2HitRate: s.L2HitRate(),
	}
}

type EmbeddingStatusOutput struct {
	Status     string           `json:"status"`
	Model      string           `json:"model"`
	Dimensions int              `json:"dimensions"`
	CacheStats CacheStatsOutput `json:"cache_stats"`
}

type GetStatusOutput struct {
	Version       string                `json:"version"`
	Status        string                `json:"status"`
	MemoriesCount int                   `json:"memories_count"`
	Embedding     EmbeddingStatusOutput `json:"embedding"`
}

type ResetAllMemoryInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true; this operation is irreversible"`
}

type ResetAllMemoryOutput struct {
	Wiped bool `json:"wiped"`
}
