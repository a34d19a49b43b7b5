package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLouvain_TwoDenseCliquesSplitIntoTwoCommunities(t *testing.T) {
	g := NewAdjacency([]string{"a1", "a2", "a3", "b1", "b2", "b3"})
	clique := func(ids ...string) {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				g.AddEdge(ids[i], ids[j], 1)
				g.AddEdge(ids[j], ids[i], 1)
			}
		}
	}
	clique("a1", "a2", "a3")
	clique("b1", "b2", "b3")
	// one thin bridge edge between the cliques
	g.AddEdge("a1", "b1", 0.01)
	g.AddEdge("b1", "a1", 0.01)

	communities := Louvain(g, LouvainOptions{})
	require.Len(t, communities, 6)

	aIdx := []int{g.Index("a1"), g.Index("a2"), g.Index("a3")}
	bIdx := []int{g.Index("b1"), g.Index("b2"), g.Index("b3")}

	for _, i := range aIdx[1:] {
		assert.Equal(t, communities[aIdx[0]], communities[i])
	}
	for _, i := range bIdx[1:] {
		assert.Equal(t, communities[bIdx[0]], communities[i])
	}
	assert.NotEqual(t, communities[aIdx[0]], communities[bIdx[0]])
}

func TestLouvain_EmptyGraphReturnsNil(t *testing.T) {
	g := NewAdjacency(nil)
	communities := Louvain(g, LouvainOptions{})
	assert.Nil(t, communities)
}

func TestLouvain_IsolatedNodesGetOwnCommunity(t *testing.T) {
	g := NewAdjacency([]string{"a", "b"})
	communities := Louvain(g, LouvainOptions{})
	assert.NotEqual(t, communities[0], communities[1])
}

func TestRenumberCommunities_ProducesDenseZeroBasedLabels(t *testing.T) {
	out := renumberCommunities([]int{7, 7, 3, 9})
	assert.Equal(t, out[0], out[1])
	seen := map[int]bool{}
	for _, c := range out {
		seen[c] = true
	}
	for c := range seen {
		assert.Less(t, c, len(seen))
	}
}
