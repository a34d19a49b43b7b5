package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/amanmcp-labs/memoryd/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_EnsuresSchemaIdempotently(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s1, err := Open(ctx, Options{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, Options{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestOpen_WithDimensionDefinesVectorIndexes(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Path: t.TempDir(), Dimension: 384})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.EnsureVectorIndexes(ctx, 768))
}

func TestCreateAndGetMemory_RoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateMemory(ctx, model.Memory{
		Content:         "met Alice at the conference",
		MemoryType:      model.MemoryEpisodic,
		ImportanceScore: 5,
		Embedding:       []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	require.False(t, id.IsZero())

	got, err := s.GetMemory(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "met Alice at the conference", got.Content)
	require.Equal(t, model.MemoryEpisodic, got.MemoryType)
}

func TestInvalidateMemory_ExcludesFromGetValid(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateMemory(ctx, model.Memory{Content: "stale fact", MemoryType: model.MemorySemantic})
	require.NoError(t, err)

	require.NoError(t, s.InvalidateMemory(ctx, id, time.Now().UTC(), "superseded", nil))

	_, err = s.GetValidMemory(ctx, id)
	require.Error(t, err)
}

func TestCreateEntityAndRelate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	alice, err := s.CreateEntity(ctx, model.Entity{Name: "Alice", EntityType: "person"})
	require.NoError(t, err)
	bob, err := s.CreateEntity(ctx, model.Entity{Name: "Bob", EntityType: "person"})
	require.NoError(t, err)

	_, err = s.RelateEntities(ctx, alice, bob, "knows", 1.0)
	require.NoError(t, err)

	neighbors, err := s.Neighbors(ctx, alice)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	require.Equal(t, "knows", neighbors[0].RelationType)
}

func TestMergeEntity_SetsAliasOf(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dup, err := s.CreateEntity(ctx, model.Entity{Name: "Bob Smith", EntityType: "person"})
	require.NoError(t, err)
	canonical, err := s.CreateEntity(ctx, model.Entity{Name: "Bob", EntityType: "person"})
	require.NoError(t, err)

	require.NoError(t, s.MergeEntity(ctx, dup, canonical))

	got, err := s.GetEntity(ctx, dup)
	require.NoError(t, err)
	require.NotNil(t, got.AliasOf)
	require.Equal(t, canonical.String(), got.AliasOf.String())
}

func TestCodeChunkLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreateCodeChunk(ctx, model.CodeChunk{
		ProjectID:   "proj1",
		FilePath:    "main.go",
		Content:     "func main() {}",
		Language:    "go",
		StartLine:   1,
		EndLine:     1,
		ChunkType:   model.ChunkFunction,
		ContentHash: "deadbeef",
	})
	require.NoError(t, err)
	require.False(t, id.IsZero())

	require.NoError(t, s.DeleteChunksByFile(ctx, "proj1", "main.go"))

	hits, err := s.SearchCodeChunksVector(ctx, "proj1", []float32{0.1}, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestIndexStatus_UpsertIsIdempotentPerProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertIndexStatus(ctx, model.IndexStatus{
		ProjectID: "proj1",
		Status:    model.StatusIndexing,
		StartedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.UpsertIndexStatus(ctx, model.IndexStatus{
		ProjectID:    "proj1",
		Status:       model.StatusComplete,
		IndexedFiles: 10,
		StartedAt:    time.Now().UTC(),
	}))

	st, found, err := s.GetIndexStatus(ctx, "proj1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, model.StatusComplete, st.Status)
	require.Equal(t, 10, st.IndexedFiles)
}

func TestCheckDimensionCompatibility_FirstWriteSeedsConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.CheckDimensionCompatibility(ctx, model.DbConfig{ModelName: "bge-small-en-v1.5", EffectiveDimension: 384}, false, false)
	require.NoError(t, err)

	cfg, found, err := s.GetDbConfig(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 384, cfg.EffectiveDimension)
}

func TestCheckDimensionCompatibility_MismatchWithoutPolicyErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDbConfig(ctx, model.DbConfig{ModelName: "bge-small-en-v1.5", EffectiveDimension: 384}))

	err := s.CheckDimensionCompatibility(ctx, model.DbConfig{ModelName: "qwen3-0.6b", EffectiveDimension: 1024}, false, false)
	require.Error(t, err)
}

func TestCheckDimensionCompatibility_ResetMemoryClearsAndAdopts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDbConfig(ctx, model.DbConfig{ModelName: "bge-small-en-v1.5", EffectiveDimension: 384}))
	_, err := s.CreateMemory(ctx, model.Memory{Content: "old", MemoryType: model.MemorySemantic})
	require.NoError(t, err)

	err = s.CheckDimensionCompatibility(ctx, model.DbConfig{ModelName: "qwen3-0.6b", EffectiveDimension: 1024}, false, true)
	require.NoError(t, err)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, counts.Memories)

	cfg, found, err := s.GetDbConfig(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "qwen3-0.6b", cfg.ModelName)
	require.Equal(t, 1024, cfg.EffectiveDimension)
}

func TestCheckDimensionCompatibility_ForceModelAdoptsMatchingRegistryModel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDbConfig(ctx, model.DbConfig{ModelName: "e5_small", EffectiveDimension: 384}))

	err := s.CheckDimensionCompatibility(ctx, model.DbConfig{ModelName: "bge_m3", EffectiveDimension: 1024}, true, false)
	require.NoError(t, err)

	cfg, found, err := s.GetDbConfig(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "e5_small", cfg.ModelName)
	require.Equal(t, 384, cfg.EffectiveDimension)
}

func TestCheckDimensionCompatibility_ForceModelFailsWhenNoRegistryModelMatches(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDbConfig(ctx, model.DbConfig{ModelName: "legacy", EffectiveDimension: 99}))

	err := s.CheckDimensionCompatibility(ctx, model.DbConfig{ModelName: "bge_m3", EffectiveDimension: 1024}, true, false)
	require.Error(t, err)
}

func TestResetMemories_WipesEntitiesRelationsAndDbConfig(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateMemory(ctx, model.Memory{Content: "x", MemoryType: model.MemorySemantic})
	require.NoError(t, err)
	aliceID, err := s.CreateEntity(ctx, model.Entity{Name: "Alice", EntityType: "person"})
	require.NoError(t, err)
	bobID, err := s.CreateEntity(ctx, model.Entity{Name: "Bob", EntityType: "person"})
	require.NoError(t, err)
	_, err = s.RelateEntities(ctx, aliceID, bobID, "knows", 1.0)
	require.NoError(t, err)
	require.NoError(t, s.SetDbConfig(ctx, model.DbConfig{ModelName: "e5_small", EffectiveDimension: 384}))

	require.NoError(t, s.ResetMemories(ctx))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, counts.Memories)
	require.Equal(t, 0, counts.Entities)
	require.Equal(t, 0, counts.Relations)

	_, found, err := s.GetDbConfig(ctx)
	require.NoError(t, err)
	require.False(t, found)
}

func TestEmbeddingCache_PutThenGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCachedEmbedding(ctx, "bge-small-en-v1.5:abc123", []float32{0.5, 0.6}))

	vec, found, err := s.GetCachedEmbedding(ctx, "bge-small-en-v1.5:abc123")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []float32{0.5, 0.6}, vec)
}
