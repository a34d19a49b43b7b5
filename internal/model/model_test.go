package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanmcp-labs/memoryd/internal/ident"
)

func TestMaxContentBytes(t *testing.T) {
	assert.Equal(t, 100*1024, MaxContentBytes)
}

func TestDefaultRelationWeight(t *testing.T) {
	assert.Equal(t, 1.0, DefaultRelationWeight)
}

func TestMemory_ZeroValueIsWellFormed(t *testing.T) {
	var m Memory
	assert.Empty(t, m.Content)
	assert.True(t, m.ValidFrom.IsZero())
	assert.Nil(t, m.ValidUntil)
}

func TestRelation_EndpointsAreValidatedIdentifiers(t *testing.T) {
	in, err := ident.New("entity", "e1")
	require.NoError(t, err)
	out, err := ident.New("entity", "e2")
	require.NoError(t, err)

	rel := Relation{
		InEntity:     in,
		OutEntity:    out,
		RelationType: "related_to",
		Weight:       DefaultRelationWeight,
		ValidFrom:    time.Now(),
	}

	assert.Equal(t, "entity:e1", rel.InEntity.String())
	assert.Equal(t, "entity:e2", rel.OutEntity.String())
}

func TestCodeChunk_LineRangeInvariant(t *testing.T) {
	chunk := CodeChunk{
		StartLine: 10,
		EndLine:   25,
	}
	assert.LessOrEqual(t, chunk.StartLine, chunk.EndLine)
}

func TestIndexStatus_DefaultsToIndexing(t *testing.T) {
	status := IndexStatus{
		ProjectID: "my-project",
		Status:    StatusIndexing,
		StartedAt: time.Now(),
	}
	assert.Equal(t, StatusIndexing, status.Status)
	assert.Nil(t, status.CompletedAt)
}

func TestSymbolRelationKinds(t *testing.T) {
	kinds := []SymbolRelationKind{RelCalls, RelImports, RelExtends, RelImplements, RelMixesIn}
	assert.Len(t, kinds, 5)
}

func TestChunkTypes(t *testing.T) {
	types := []ChunkType{ChunkFunction, ChunkClass, ChunkStruct, ChunkModule, ChunkImpl, ChunkOther}
	assert.Len(t, types, 6)
}
