package store

import (
	"context"
	"fmt"
)

// schemaDDL defines every table, field, and index memoryd depends on except
// the HNSW vector indexes (see hnswIndexDDL). It is idempotent: SurrealDB's
// DEFINE ... IF NOT EXISTS leaves an already-current schema untouched, so
// ensureSchema can run on every Open.
//
// This is the one file allowed to hold SQL keywords built outside a
// parameter-bound query, since it is a fixed DDL script with no runtime
// interpolation beyond the integer dimension baked into hnswIndexDDL;
// internal/ident's static check allowlists it.
const schemaDDL = `
DEFINE TABLE IF NOT EXISTS memory SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS content ON memory TYPE string;
DEFINE FIELD IF NOT EXISTS memory_type ON memory TYPE string;
DEFINE FIELD IF NOT EXISTS user_id ON memory TYPE option<string>;
DEFINE FIELD IF NOT EXISTS metadata ON memory TYPE option<object>;
DEFINE FIELD IF NOT EXISTS event_time ON memory TYPE datetime;
DEFINE FIELD IF NOT EXISTS ingestion_time ON memory TYPE datetime;
DEFINE FIELD IF NOT EXISTS valid_from ON memory TYPE datetime;
DEFINE FIELD IF NOT EXISTS valid_until ON memory TYPE option<datetime>;
DEFINE FIELD IF NOT EXISTS importance_score ON memory TYPE float;
DEFINE FIELD IF NOT EXISTS invalidation_reason ON memory TYPE option<string>;
DEFINE FIELD IF NOT EXISTS superseded_by ON memory TYPE option<record<memory>>;
DEFINE FIELD IF NOT EXISTS embedding ON memory TYPE option<array<float>>;
DEFINE ANALYZER IF NOT EXISTS memoryd_text TOKENIZERS class FILTERS lowercase,snowball(english);
DEFINE INDEX IF NOT EXISTS memory_bm25 ON memory FIELDS content SEARCH ANALYZER memoryd_text BM25;

DEFINE TABLE IF NOT EXISTS entity SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS name ON entity TYPE string;
DEFINE FIELD IF NOT EXISTS entity_type ON entity TYPE string;
DEFINE FIELD IF NOT EXISTS description ON entity TYPE option<string>;
DEFINE FIELD IF NOT EXISTS user_id ON entity TYPE option<string>;
DEFINE FIELD IF NOT EXISTS created_at ON entity TYPE datetime;
DEFINE FIELD IF NOT EXISTS embedding ON entity TYPE option<array<float>>;
DEFINE FIELD IF NOT EXISTS alias_of ON entity TYPE option<record<entity>>;
DEFINE INDEX IF NOT EXISTS entity_name_idx ON entity FIELDS name;

DEFINE TABLE IF NOT EXISTS related_to SCHEMAFULL TYPE RELATION IN entity OUT entity;
DEFINE FIELD IF NOT EXISTS relation_type ON related_to TYPE string;
DEFINE FIELD IF NOT EXISTS weight ON related_to TYPE float;
DEFINE FIELD IF NOT EXISTS valid_from ON related_to TYPE datetime;
DEFINE FIELD IF NOT EXISTS valid_until ON related_to TYPE option<datetime>;

DEFINE TABLE IF NOT EXISTS code_chunk SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS project_id ON code_chunk TYPE string;
DEFINE FIELD IF NOT EXISTS file_path ON code_chunk TYPE string;
DEFINE FIELD IF NOT EXISTS content ON code_chunk TYPE string;
DEFINE FIELD IF NOT EXISTS language ON code_chunk TYPE string;
DEFINE FIELD IF NOT EXISTS start_line ON code_chunk TYPE int;
DEFINE FIELD IF NOT EXISTS end_line ON code_chunk TYPE int;
DEFINE FIELD IF NOT EXISTS chunk_type ON code_chunk TYPE string;
DEFINE FIELD IF NOT EXISTS name ON code_chunk TYPE option<string>;
DEFINE FIELD IF NOT EXISTS content_hash ON code_chunk TYPE string;
DEFINE FIELD IF NOT EXISTS embedding ON code_chunk TYPE option<array<float>>;
DEFINE FIELD IF NOT EXISTS indexed_at ON code_chunk TYPE datetime;
DEFINE FIELD IF NOT EXISTS symbol_names ON code_chunk TYPE option<array<string>>;
DEFINE INDEX IF NOT EXISTS code_chunk_project_idx ON code_chunk FIELDS project_id, file_path;
DEFINE ANALYZER IF NOT EXISTS memoryd_code TOKENIZERS class FILTERS lowercase;
DEFINE INDEX IF NOT EXISTS code_chunk_bm25 ON code_chunk FIELDS content SEARCH ANALYZER memoryd_code BM25;

DEFINE TABLE IF NOT EXISTS symbol SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS project_id ON symbol TYPE string;
DEFINE FIELD IF NOT EXISTS file_path ON symbol TYPE string;
DEFINE FIELD IF NOT EXISTS kind ON symbol TYPE string;
DEFINE FIELD IF NOT EXISTS name ON symbol TYPE string;
DEFINE FIELD IF NOT EXISTS fully_qualified_name ON symbol TYPE string;
DEFINE FIELD IF NOT EXISTS start_line ON symbol TYPE int;
DEFINE FIELD IF NOT EXISTS end_line ON symbol TYPE int;
DEFINE INDEX IF NOT EXISTS symbol_fqn_idx ON symbol FIELDS project_id, fully_qualified_name UNIQUE;
DEFINE INDEX IF NOT EXISTS symbol_name_idx ON symbol FIELDS project_id, name;

DEFINE TABLE IF NOT EXISTS symbol_relation SCHEMAFULL TYPE RELATION IN symbol OUT symbol;
DEFINE FIELD IF NOT EXISTS kind ON symbol_relation TYPE string;

DEFINE TABLE IF NOT EXISTS index_status SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS project_id ON index_status TYPE string;
DEFINE FIELD IF NOT EXISTS status ON index_status TYPE string;
DEFINE FIELD IF NOT EXISTS total_files ON index_status TYPE int;
DEFINE FIELD IF NOT EXISTS indexed_files ON index_status TYPE int;
DEFINE FIELD IF NOT EXISTS total_chunks ON index_status TYPE int;
DEFINE FIELD IF NOT EXISTS started_at ON index_status TYPE datetime;
DEFINE FIELD IF NOT EXISTS completed_at ON index_status TYPE option<datetime>;
DEFINE FIELD IF NOT EXISTS error_message ON index_status TYPE option<string>;
DEFINE INDEX IF NOT EXISTS index_status_project_idx ON index_status FIELDS project_id UNIQUE;

DEFINE TABLE IF NOT EXISTS db_config SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS model_name ON db_config TYPE string;
DEFINE FIELD IF NOT EXISTS effective_dimension ON db_config TYPE int;

DEFINE TABLE IF NOT EXISTS embedding_cache SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS cache_key ON embedding_cache TYPE string;
DEFINE FIELD IF NOT EXISTS vector ON embedding_cache TYPE array<float>;
DEFINE FIELD IF NOT EXISTS created_at ON embedding_cache TYPE datetime;
DEFINE INDEX IF NOT EXISTS embedding_cache_key_idx ON embedding_cache FIELDS cache_key UNIQUE;
`

// ensureSchema applies schemaDDL. SurrealDB executes a multi-statement body
// as a single transaction, so a failure midway leaves no partial schema.
func (s *Store) ensureSchema(ctx context.Context) error {
	return s.execDDL(ctx, schemaDDL)
}

// hnswIndexDDL returns the vector index definitions for memory, entity, and
// code_chunk, parameterized by dim, the active embedding model's effective
// dimension (spec's "active effective dimension", post-MRL-truncation).
// SurrealDB's HNSW index requires every stored vector to match the declared
// DIMENSION exactly, and memoryd's supported models span 384 to 1024 native
// dims plus arbitrary Matryoshka truncations, so this cannot be a constant.
// OVERWRITE lets EnsureVectorIndexes re-issue it safely if the effective
// dimension changes after a force_model or reset_memory resolution.
func hnswIndexDDL(dim int) string {
	return fmt.Sprintf(`
DEFINE INDEX OVERWRITE memory_hnsw ON memory FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
DEFINE INDEX OVERWRITE entity_hnsw ON entity FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
DEFINE INDEX OVERWRITE code_chunk_hnsw ON code_chunk FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
`, dim, dim, dim)
}

// EnsureVectorIndexes (re)defines the HNSW vector indexes for dim. Called at
// store-open time with the configured model's effective dimension, and again
// whenever dimension-mismatch reconciliation lands on a different one.
func (s *Store) EnsureVectorIndexes(ctx context.Context, dim int) error {
	return s.execDDL(ctx, hnswIndexDDL(dim))
}
