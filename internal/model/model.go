// Package model defines the persisted data model shared across memoryd:
// memories, entities, relations, code chunks, symbols, symbol relations,
// index status, and the singleton database configuration record.
//
// Every field holding a cross-record reference is an ident.ID, never a bare
// string formatted by hand, and never a pointer — ownership of each record
// is exclusive per spec §3.
package model

import (
	"time"

	"github.com/amanmcp-labs/memoryd/internal/ident"
)

// MemoryType classifies a Memory by its cognitive role.
type MemoryType string

const (
	MemoryEpisodic   MemoryType = "episodic"
	MemorySemantic   MemoryType = "semantic"
	MemoryProcedural MemoryType = "procedural"
)

// Memory is a single stored recollection. Its embedding is owned solely by
// the record and is never exposed outside the store layer.
type Memory struct {
	ID                ident.ID
	Content           string
	MemoryType        MemoryType
	UserID            string // optional tenancy tag, empty if unset
	Metadata          map[string]string
	EventTime         time.Time
	IngestionTime     time.Time
	ValidFrom         time.Time
	ValidUntil        *time.Time
	ImportanceScore   float64 // in [0, 10]
	InvalidationReason string
	SupersededBy      *ident.ID
	Embedding         []float32 `json:"-"`
}

// MaxContentBytes bounds Memory.Content per spec §3.
const MaxContentBytes = 100 * 1024

// Entity is a named node in the knowledge graph. Never mutated after
// creation except via the reset operation.
type Entity struct {
	ID          ident.ID
	Name        string
	EntityType  string
	Description string
	UserID      string
	CreatedAt   time.Time
	Embedding   []float32 `json:"-"` // embedding of Name, optional

	// AliasOf, if set, points at the canonical entity this one was merged
	// into. Set once at create time; never updated afterward.
	AliasOf *ident.ID
}

// Relation is a directed, typed, weighted edge between two entities.
type Relation struct {
	ID           ident.ID
	InEntity     ident.ID
	OutEntity    ident.ID
	RelationType string
	Weight       float64 // in [0, 1], default 1.0
	ValidFrom    time.Time
	ValidUntil   *time.Time
}

// DefaultRelationWeight is applied when a caller does not specify one.
const DefaultRelationWeight = 1.0

// ChunkType classifies the syntactic unit a CodeChunk was extracted from.
type ChunkType string

const (
	ChunkFunction ChunkType = "function"
	ChunkClass    ChunkType = "class"
	ChunkStruct   ChunkType = "struct"
	ChunkModule   ChunkType = "module"
	ChunkImpl     ChunkType = "impl"
	ChunkOther    ChunkType = "other"
)

// CodeChunk is a retrievable, content-addressed slice of a source file.
type CodeChunk struct {
	ID          ident.ID
	ProjectID   string
	FilePath    string // repo-relative
	Content     string // may carry a parent-scope context prefix
	Language    string
	StartLine   int // 1-based, inclusive
	EndLine     int // 1-based, inclusive
	ChunkType   ChunkType
	Name        string
	ContentHash string // blake3 hex of the raw (unprefixed) content
	Embedding   []float32 `json:"-"`
	IndexedAt   time.Time

	// SymbolNames denormalizes the FQNs of symbols defined within this
	// chunk's line range, so search_code hits can jump to
	// get_related_symbols without a second lookup.
	SymbolNames []string
}

// SymbolKind classifies a Symbol.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolClassKind SymbolKind = "class"
	SymbolMethod    SymbolKind = "method"
	SymbolInterface SymbolKind = "interface"
	SymbolTypeDecl  SymbolKind = "type"
	SymbolVariable  SymbolKind = "variable"
	SymbolConstant  SymbolKind = "constant"
)

// Location is a 1-based, inclusive line range within a file.
type Location struct {
	FilePath  string
	StartLine int
	EndLine   int
}

// Symbol is a named, addressable unit extracted during code indexing.
// (ProjectID, FullyQualifiedName) is unique.
type Symbol struct {
	ID                 ident.ID
	ProjectID          string
	FilePath           string
	Kind               SymbolKind
	Name               string
	FullyQualifiedName string
	Location           Location
}

// SymbolRelationKind classifies a directed edge between two Symbols.
type SymbolRelationKind string

const (
	RelCalls      SymbolRelationKind = "calls"
	RelImports    SymbolRelationKind = "imports"
	RelExtends    SymbolRelationKind = "extends"
	RelImplements SymbolRelationKind = "implements"
	RelMixesIn    SymbolRelationKind = "mixes_in"
)

// SymbolRelation is a directed edge between two symbols within one project.
type SymbolRelation struct {
	ID     ident.ID
	Source ident.ID
	Target ident.ID
	Kind   SymbolRelationKind
}

// IndexingStatus is the lifecycle state of a project's code index.
type IndexingStatus string

const (
	StatusIndexing IndexingStatus = "indexing"
	StatusComplete IndexingStatus = "completed"
	StatusFailed   IndexingStatus = "failed"
)

// IndexStatus is the single progress record for a project's code index.
// Exactly one record exists per ProjectID, UPSERT-updated during indexing.
type IndexStatus struct {
	ProjectID     string
	Status        IndexingStatus
	TotalFiles    int
	IndexedFiles  int
	TotalChunks   int
	StartedAt     time.Time
	CompletedAt   *time.Time
	ErrorMessage  string
}

// DbConfig is the singleton record recording which embedding model produced
// the currently-stored vectors. Written on first start, and rewritten only
// when a force_model or reset_memory policy resolves a dimension mismatch.
type DbConfig struct {
	ModelName        string
	EffectiveDimension int
}
