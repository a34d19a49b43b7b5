package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanmcp-labs/memoryd/internal/apperr"
	"github.com/amanmcp-labs/memoryd/internal/store"
)

// newTestApp builds an App over a real embedded store with no embedder,
// recall orchestrator, or indexing pipeline wired in, mirroring the rest of
// this module's convention of never instantiating embed.NewService in
// tests (it loads a real ONNX model). Every method exercised here only
// touches a.store.
func newTestApp(t *testing.T) *App {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return &App{store: st}
}

func TestClampPageLimit(t *testing.T) {
	assert.Equal(t, 20, clampPageLimit(0))
	assert.Equal(t, 20, clampPageLimit(-3))
	assert.Equal(t, 5, clampPageLimit(5))
	assert.Equal(t, 100, clampPageLimit(500))
}

func TestParseID_RejectsWrongTable(t *testing.T) {
	_, err := parseID("memory", "entity:abc")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestParseID_AcceptsMatchingTable(t *testing.T) {
	id, err := parseID("memory", "memory:abc123")
	require.NoError(t, err)
	assert.Equal(t, "memory", id.Table())
}

func TestStoreGetUpdateDeleteMemory(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	id, err := a.StoreMemory(ctx, "remember the deploy window", "", "user-1", map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	m, err := a.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "remember the deploy window", m.Content)
	assert.Equal(t, "episodic", string(m.MemoryType))

	newContent := "updated content"
	updated, err := a.UpdateMemory(ctx, id, &newContent, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, newContent, updated.Content)

	deleted, err := a.DeleteMemory(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = a.GetMemory(ctx, id)
	assert.Error(t, err)
}

func TestStoreMemory_RejectsEmptyContent(t *testing.T) {
	a := newTestApp(t)
	_, err := a.StoreMemory(context.Background(), "", "", "", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestListMemories_Paginates(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := a.StoreMemory(ctx, "note", "", "", nil)
		require.NoError(t, err)
	}

	page, err := a.ListMemories(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Memories, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Limit)
}

func TestCreateEntityAndRelation(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	alice, err := a.CreateEntity(ctx, "alice", "person", "", "")
	require.NoError(t, err)
	bob, err := a.CreateEntity(ctx, "bob", "person", "", "")
	require.NoError(t, err)

	relID, err := a.CreateRelation(ctx, alice, bob, "knows", 1.0)
	require.NoError(t, err)
	assert.NotEmpty(t, relID)
}

func TestCreateEntity_RejectsEmptyName(t *testing.T) {
	a := newTestApp(t)
	_, err := a.CreateEntity(context.Background(), "", "", "", "")
	require.Error(t, err)
}

func TestCreateRelation_RejectsWeightOutOfRange(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	alice, err := a.CreateEntity(ctx, "alice", "", "", "")
	require.NoError(t, err)
	bob, err := a.CreateEntity(ctx, "bob", "", "", "")
	require.NoError(t, err)

	_, err = a.CreateRelation(ctx, alice, bob, "knows", 1.5)
	require.Error(t, err)
}

func TestGetRelated_WalksOneHop(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	alice, err := a.CreateEntity(ctx, "alice", "", "", "")
	require.NoError(t, err)
	bob, err := a.CreateEntity(ctx, "bob", "", "", "")
	require.NoError(t, err)
	_, err = a.CreateRelation(ctx, alice, bob, "knows", 1.0)
	require.NoError(t, err)

	result, err := a.GetRelated(ctx, alice, 1, "both")
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, bob, result.Entities[0].ID.String())
	assert.Len(t, result.Relations, 1)
	assert.False(t, result.Truncated)
}

func TestDetectCommunities_EmptyGraphReturnsNil(t *testing.T) {
	a := newTestApp(t)
	communities, err := a.DetectCommunities(context.Background(), 1.0)
	require.NoError(t, err)
	assert.Nil(t, communities)
}

func TestGetValidAndInvalidate(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	id, err := a.StoreMemory(ctx, "still true", "", "user-1", nil)
	require.NoError(t, err)

	valid, err := a.GetValid(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, valid, 1)

	ok, err := a.Invalidate(ctx, id, "superseded", "")
	require.NoError(t, err)
	assert.True(t, ok)

	valid, err = a.GetValid(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, valid, 0)
}

func TestGetValidAt_PointInTime(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, err := a.StoreMemory(ctx, "note", "", "user-1", nil)
	require.NoError(t, err)

	memories, err := a.GetValidAt(ctx, time.Now().UTC().Add(time.Hour), "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, memories, 1)
}

func TestIndexProject_RejectsWatch(t *testing.T) {
	a := newTestApp(t)
	_, err := a.IndexProject(context.Background(), "/tmp/some-project", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWatchNotImplemented)
}

func TestSearchSymbols_RejectsEmptyQuery(t *testing.T) {
	a := newTestApp(t)
	_, err := a.SearchSymbols(context.Background(), "", "")
	require.Error(t, err)
}

func TestResetAllMemory_RequiresConfirmation(t *testing.T) {
	a := newTestApp(t)
	_, err := a.ResetAllMemory(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	ok, err := a.ResetAllMemory(context.Background(), true)
	require.NoError(t, err)
	assert.True(t, ok)
}
