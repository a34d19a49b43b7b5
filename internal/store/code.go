package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/ident"
	"github.com/amanmcp-labs/memoryd/internal/model"
)

type codeChunkRow struct {
	ID          ident.ID  `json:"id"`
	ProjectID   string    `json:"project_id"`
	FilePath    string    `json:"file_path"`
	Content     string    `json:"content"`
	Language    string    `json:"language"`
	StartLine   int       `json:"start_line"`
	EndLine     int       `json:"end_line"`
	ChunkType   string    `json:"chunk_type"`
	Name        *string   `json:"name,omitempty"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
	SymbolNames []string  `json:"symbol_names,omitempty"`
}

func (r codeChunkRow) toModel() model.CodeChunk {
	c := model.CodeChunk{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		FilePath:    r.FilePath,
		Content:     r.Content,
		Language:    r.Language,
		StartLine:   r.StartLine,
		EndLine:     r.EndLine,
		ChunkType:   model.ChunkType(r.ChunkType),
		ContentHash: r.ContentHash,
		Embedding:   r.Embedding,
		IndexedAt:   r.IndexedAt,
		SymbolNames: r.SymbolNames,
	}
	if r.Name != nil {
		c.Name = *r.Name
	}
	return c
}

const createCodeChunkQuery = `
CREATE code_chunk CONTENT {
	project_id: $project_id,
	file_path: $file_path,
	content: $content,
	language: $language,
	start_line: $start_line,
	end_line: $end_line,
	chunk_type: $chunk_type,
	name: $name,
	content_hash: $content_hash,
	embedding: $embedding,
	indexed_at: $indexed_at,
	symbol_names: $symbol_names
};`

// CreateCodeChunk inserts one indexed code chunk.
func (s *Store) CreateCodeChunk(ctx context.Context, c model.CodeChunk) (ident.ID, error) {
	id, err := ident.New("code_chunk", uuid.NewString())
	if err != nil {
		return ident.ID{}, err
	}

	rows, err := query[codeChunkRow](ctx, s, createCodeChunkQuery, map[string]any{
		"project_id":   c.ProjectID,
		"file_path":    c.FilePath,
		"content":      c.Content,
		"language":     c.Language,
		"start_line":   c.StartLine,
		"end_line":     c.EndLine,
		"chunk_type":   string(c.ChunkType),
		"name":         nilIfEmpty(c.Name),
		"content_hash": c.ContentHash,
		"embedding":    c.Embedding,
		"indexed_at":   orNow(c.IndexedAt),
		"symbol_names": c.SymbolNames,
	})
	if err != nil {
		return ident.ID{}, err
	}
	if len(rows) == 0 {
		return ident.ID{}, apperr.New(apperr.Database, "code_chunk_create_no_row", "create returned no row", nil)
	}
	return rows[0].ID, nil
}

// CreateCodeChunks inserts a batch of chunks sequentially, grouped under the
// same project/file. Callers in the indexing pipeline erase a file's old
// chunks first, so partial-batch failures leave at most a gap, never a
// duplicate.
func (s *Store) CreateCodeChunks(ctx context.Context, chunks []model.CodeChunk) ([]ident.ID, error) {
	ids := make([]ident.ID, 0, len(chunks))
	for _, c := range chunks {
		id, err := s.CreateCodeChunk(ctx, c)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

const chunkHashesByFileQuery = `
SELECT content_hash FROM code_chunk WHERE project_id = $project_id AND file_path = $file_path;`

// ChunkHashesByFile returns the content hashes currently stored for a
// file, letting the indexing pipeline detect an unchanged file and skip
// re-chunking and re-embedding it.
func (s *Store) ChunkHashesByFile(ctx context.Context, projectID, filePath string) ([]string, error) {
	type row struct {
		ContentHash string `json:"content_hash"`
	}
	rows, err := query[row](ctx, s, chunkHashesByFileQuery, map[string]any{
		"project_id": projectID,
		"file_path":  filePath,
	})
	if err != nil {
		return nil, err
	}
	hashes := make([]string, len(rows))
	for i, r := range rows {
		hashes[i] = r.ContentHash
	}
	return hashes, nil
}

const deleteChunksByFileQuery = `
DELETE FROM code_chunk WHERE project_id = $project_id AND file_path = $file_path;`

// DeleteChunksByFile removes every chunk for a file, used before
// re-indexing it.
func (s *Store) DeleteChunksByFile(ctx context.Context, projectID, filePath string) error {
	_, err := query[codeChunkRow](ctx, s, deleteChunksByFileQuery, map[string]any{
		"project_id": projectID,
		"file_path":  filePath,
	})
	return err
}

const deleteChunksByProjectQuery = `DELETE FROM code_chunk WHERE project_id = $project_id;`

// DeleteChunksByProject removes every chunk belonging to a project and
// reports how many were deleted, for delete_project's response.
func (s *Store) DeleteChunksByProject(ctx context.Context, projectID string) (int, error) {
	rows, err := query[codeChunkRow](ctx, s, deleteChunksByProjectQuery, map[string]any{
		"project_id": projectID,
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

const searchCodeChunksVectorQuery = `
SELECT *, vector::similarity::cosine(embedding, $query_vector) AS score
FROM code_chunk
WHERE ($project_id = NONE OR project_id = $project_id) AND embedding != NONE
ORDER BY score DESC
LIMIT $limit;`

// CodeChunkHit pairs a chunk with a similarity score.
type CodeChunkHit struct {
	Chunk model.CodeChunk
	Score float64
}

// SearchCodeChunksVector runs cosine similarity search, scoped to a
// project if projectID is non-empty, across every project otherwise.
func (s *Store) SearchCodeChunksVector(ctx context.Context, projectID string, queryVector []float32, limit int) ([]CodeChunkHit, error) {
	type row struct {
		codeChunkRow
		Score float64 `json:"score"`
	}

	rows, err := query[row](ctx, s, searchCodeChunksVectorQuery, map[string]any{
		"project_id":   nilIfEmpty(projectID),
		"query_vector": queryVector,
		"limit":        limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]CodeChunkHit, len(rows))
	for i, r := range rows {
		hits[i] = CodeChunkHit{Chunk: r.toModel(), Score: r.Score}
	}
	return hits, nil
}

const searchCodeChunksLexicalQuery = `
SELECT *, search::score(1) AS score
FROM code_chunk
WHERE ($project_id = NONE OR project_id = $project_id) AND content @1@ $terms
ORDER BY score DESC
LIMIT $limit;`

// SearchCodeChunksLexical runs BM25 full-text search, scoped to a project
// if projectID is non-empty, across every project otherwise.
func (s *Store) SearchCodeChunksLexical(ctx context.Context, projectID, terms string, limit int) ([]CodeChunkHit, error) {
	type row struct {
		codeChunkRow
		Score float64 `json:"score"`
	}

	rows, err := query[row](ctx, s, searchCodeChunksLexicalQuery, map[string]any{
		"project_id": nilIfEmpty(projectID),
		"terms":      terms,
		"limit":      limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]CodeChunkHit, len(rows))
	for i, r := range rows {
		hits[i] = CodeChunkHit{Chunk: r.toModel(), Score: r.Score}
	}
	return hits, nil
}
