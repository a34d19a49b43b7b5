package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/ident"
	"github.com/amanmcp-labs/memoryd/internal/model"
)

type memoryRow struct {
	ID                 ident.ID          `json:"id"`
	Content            string            `json:"content"`
	MemoryType         model.MemoryType  `json:"memory_type"`
	UserID             *string           `json:"user_id,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	EventTime          time.Time         `json:"event_time"`
	IngestionTime      time.Time         `json:"ingestion_time"`
	ValidFrom          time.Time         `json:"valid_from"`
	ValidUntil         *time.Time        `json:"valid_until,omitempty"`
	ImportanceScore    float64           `json:"importance_score"`
	InvalidationReason *string           `json:"invalidation_reason,omitempty"`
	SupersededBy       *ident.ID         `json:"superseded_by,omitempty"`
	Embedding          []float32         `json:"embedding,omitempty"`
}

func (r memoryRow) toModel() model.Memory {
	m := model.Memory{
		ID:              r.ID,
		Content:         r.Content,
		MemoryType:      r.MemoryType,
		EventTime:       r.EventTime,
		IngestionTime:   r.IngestionTime,
		ValidFrom:       r.ValidFrom,
		ValidUntil:      r.ValidUntil,
		ImportanceScore: r.ImportanceScore,
		SupersededBy:    r.SupersededBy,
		Metadata:        r.Metadata,
		Embedding:       r.Embedding,
	}
	if r.UserID != nil {
		m.UserID = *r.UserID
	}
	if r.InvalidationReason != nil {
		m.InvalidationReason = *r.InvalidationReason
	}
	return m
}

const createMemoryQuery = `
CREATE memory CONTENT {
	content: $content,
	memory_type: $memory_type,
	user_id: $user_id,
	metadata: $metadata,
	event_time: $event_time,
	ingestion_time: $ingestion_time,
	valid_from: $valid_from,
	importance_score: $importance_score,
	embedding: $embedding
};`

// CreateMemory inserts a new memory and returns its assigned identifier.
func (s *Store) CreateMemory(ctx context.Context, m model.Memory) (ident.ID, error) {
	if len(m.Content) > model.MaxContentBytes {
		return ident.ID{}, apperr.Validationf("memory_content_too_large", "content exceeds %d bytes", model.MaxContentBytes)
	}

	id, err := ident.New("memory", uuid.NewString())
	if err != nil {
		return ident.ID{}, err
	}

	now := m.IngestionTime
	if now.IsZero() {
		now = time.Now().UTC()
	}
	validFrom := m.ValidFrom
	if validFrom.IsZero() {
		validFrom = now
	}

	params := map[string]any{
		"content":          m.Content,
		"memory_type":      string(m.MemoryType),
		"user_id":          nilIfEmpty(m.UserID),
		"metadata":         m.Metadata,
		"event_time":       orNow(m.EventTime),
		"ingestion_time":   now,
		"valid_from":       validFrom,
		"importance_score": m.ImportanceScore,
		"embedding":        m.Embedding,
	}

	rows, err := query[memoryRow](ctx, s, createMemoryQuery, params)
	if err != nil {
		return ident.ID{}, err
	}
	if len(rows) == 0 {
		return ident.ID{}, apperr.New(apperr.Database, "memory_create_no_row", "create returned no row", nil)
	}
	return rows[0].ID, nil
}

const getMemoryQuery = `SELECT * FROM $id;`

// GetMemory fetches a memory by identifier regardless of validity.
func (s *Store) GetMemory(ctx context.Context, id ident.ID) (model.Memory, error) {
	row, err := querySingle[memoryRow](ctx, s, "memory_not_found", getMemoryQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return model.Memory{}, err
	}
	return row.toModel(), nil
}

const getValidMemoryQuery = `
SELECT * FROM $id WHERE valid_until = NONE OR valid_until > time::now();`

// GetValidMemory fetches a memory only if it is currently valid.
func (s *Store) GetValidMemory(ctx context.Context, id ident.ID) (model.Memory, error) {
	row, err := querySingle[memoryRow](ctx, s, "memory_not_valid", getValidMemoryQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return model.Memory{}, err
	}
	return row.toModel(), nil
}

const getValidMemoryAtQuery = `
SELECT * FROM $id WHERE valid_from <= $at AND (valid_until = NONE OR valid_until > $at);`

// GetValidMemoryAt fetches a memory as it was valid at a specific point in time.
func (s *Store) GetValidMemoryAt(ctx context.Context, id ident.ID, at time.Time) (model.Memory, error) {
	row, err := querySingle[memoryRow](ctx, s, "memory_not_valid_at_time", getValidMemoryAtQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
		"at": at,
	})
	if err != nil {
		return model.Memory{}, err
	}
	return row.toModel(), nil
}

const invalidateMemoryQuery = `
UPDATE $id SET
	valid_until = $valid_until,
	invalidation_reason = $reason,
	superseded_by = $superseded_by;`

// InvalidateMemory closes a memory's validity window, optionally recording the
// successor memory that superseded it.
func (s *Store) InvalidateMemory(ctx context.Context, id ident.ID, at time.Time, reason string, supersededBy *ident.ID) error {
	var successor any
	if supersededBy != nil {
		successor = recordID(supersededBy.Table(), supersededBy.Key())
	}

	_, err := query[memoryRow](ctx, s, invalidateMemoryQuery, map[string]any{
		"id":            recordID(id.Table(), id.Key()),
		"valid_until":   at,
		"reason":        nilIfEmpty(reason),
		"superseded_by": successor,
	})
	return err
}

const searchMemoriesVectorQuery = `
SELECT *, vector::similarity::cosine(embedding, $query_vector) AS score
FROM memory
WHERE embedding != NONE
  AND ($user_id = NONE OR user_id = $user_id)
  AND (valid_until = NONE OR valid_until > time::now())
ORDER BY score DESC
LIMIT $limit;`

// VectorHit is a dense-retrieval result paired with its similarity score.
type VectorHit struct {
	Memory model.Memory
	Score  float64
}

// SearchMemoriesVector runs cosine similarity search over memory embeddings.
func (s *Store) SearchMemoriesVector(ctx context.Context, queryVector []float32, userID string, limit int) ([]VectorHit, error) {
	type row struct {
		memoryRow
		Score float64 `json:"score"`
	}

	rows, err := query[row](ctx, s, searchMemoriesVectorQuery, map[string]any{
		"query_vector": queryVector,
		"user_id":      nilIfEmpty(userID),
		"limit":        limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]VectorHit, len(rows))
	for i, r := range rows {
		hits[i] = VectorHit{Memory: r.toModel(), Score: r.Score}
	}
	return hits, nil
}

const searchMemoriesBM25Query = `
SELECT *, search::score(1) AS score
FROM memory
WHERE content @1@ $terms
  AND ($user_id = NONE OR user_id = $user_id)
  AND (valid_until = NONE OR valid_until > time::now())
ORDER BY score DESC
LIMIT $limit;`

// LexicalHit is a BM25 retrieval result paired with its score.
type LexicalHit struct {
	Memory model.Memory
	Score  float64
}

// SearchMemoriesLexical runs the BM25 full-text search over memory content.
func (s *Store) SearchMemoriesLexical(ctx context.Context, terms string, userID string, limit int) ([]LexicalHit, error) {
	type row struct {
		memoryRow
		Score float64 `json:"score"`
	}

	rows, err := query[row](ctx, s, searchMemoriesBM25Query, map[string]any{
		"terms":   terms,
		"user_id": nilIfEmpty(userID),
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]LexicalHit, len(rows))
	for i, r := range rows {
		hits[i] = LexicalHit{Memory: r.toModel(), Score: r.Score}
	}
	return hits, nil
}

const updateMemoryQuery = `UPDATE $id MERGE $patch;`

// UpdateMemory merges a partial field set into an existing memory and
// returns the updated record. Embedding is re-set by the caller when
// content changes; it is never recomputed here.
func (s *Store) UpdateMemory(ctx context.Context, id ident.ID, patch map[string]any) (model.Memory, error) {
	row, err := querySingle[memoryRow](ctx, s, "memory_not_found", updateMemoryQuery, map[string]any{
		"id":    recordID(id.Table(), id.Key()),
		"patch": patch,
	})
	if err != nil {
		return model.Memory{}, err
	}
	return row.toModel(), nil
}

const deleteMemoryQuery = `DELETE $id RETURN BEFORE;`

// DeleteMemory removes a memory and reports whether one existed.
func (s *Store) DeleteMemory(ctx context.Context, id ident.ID) (bool, error) {
	rows, err := query[memoryRow](ctx, s, deleteMemoryQuery, map[string]any{
		"id": recordID(id.Table(), id.Key()),
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

const listMemoriesQuery = `
SELECT * FROM memory ORDER BY ingestion_time DESC LIMIT $limit START $offset;`

const countMemoriesQuery = `RETURN { total: count(SELECT 1 FROM memory) };`

type memoryCountRow struct {
	Total int `json:"total"`
}

// ListMemories returns a page of memories, most recently ingested first,
// along with the total count across all pages.
func (s *Store) ListMemories(ctx context.Context, limit, offset int) ([]model.Memory, int, error) {
	rows, err := query[memoryRow](ctx, s, listMemoriesQuery, map[string]any{
		"limit":  limit,
		"offset": offset,
	})
	if err != nil {
		return nil, 0, err
	}

	counts, err := query[memoryCountRow](ctx, s, countMemoriesQuery, nil)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	if len(counts) > 0 {
		total = counts[0].Total
	}

	memories := make([]model.Memory, len(rows))
	for i, r := range rows {
		memories[i] = r.toModel()
	}
	return memories, total, nil
}

const listValidMemoriesQuery = `
SELECT * FROM memory
WHERE ($user_id = NONE OR user_id = $user_id)
  AND (valid_until = NONE OR valid_until > time::now())
ORDER BY valid_from DESC
LIMIT $limit;`

// ListValidMemories returns every currently-valid memory, optionally scoped
// to a user, for get_valid.
func (s *Store) ListValidMemories(ctx context.Context, userID string, limit int) ([]model.Memory, error) {
	rows, err := query[memoryRow](ctx, s, listValidMemoriesQuery, map[string]any{
		"user_id": nilIfEmpty(userID),
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}
	memories := make([]model.Memory, len(rows))
	for i, r := range rows {
		memories[i] = r.toModel()
	}
	return memories, nil
}

const listValidMemoriesAtQuery = `
SELECT * FROM memory
WHERE ($user_id = NONE OR user_id = $user_id)
  AND valid_from <= $at
  AND (valid_until = NONE OR valid_until > $at)
ORDER BY valid_from DESC
LIMIT $limit;`

// ListValidMemoriesAt returns every memory valid at a specific point in
// time, optionally scoped to a user, for get_valid_at.
func (s *Store) ListValidMemoriesAt(ctx context.Context, at time.Time, userID string, limit int) ([]model.Memory, error) {
	rows, err := query[memoryRow](ctx, s, listValidMemoriesAtQuery, map[string]any{
		"user_id": nilIfEmpty(userID),
		"at":      at,
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}
	memories := make([]model.Memory, len(rows))
	for i, r := range rows {
		memories[i] = r.toModel()
	}
	return memories, nil
}

// resetAllQuery wipes every table a stored embedding can reach — memories,
// entities, their relations, and the code graph — plus db_config, so a
// reset leaves no vector behind that could collide with a newly chosen
// model's dimension. Used by both the reset_memory dimension-mismatch
// recovery policy and the reset_all_memory operation.
const resetAllQuery = `
DELETE FROM memory;
DELETE FROM entity;
DELETE FROM related_to;
DELETE FROM code_chunk;
DELETE FROM symbol;
DELETE FROM symbol_relation;
DELETE FROM db_config;
`

// ResetMemories wipes memories, entities, relations, and the indexed code
// graph, and clears db_config so the next write re-establishes it against
// whatever model produces it.
func (s *Store) ResetMemories(ctx context.Context) error {
	return s.execMulti(ctx, resetAllQuery)
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
