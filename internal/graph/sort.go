package graph

import (
	"math"
	"sort"
)

// Scored is anything with an id and a final score, ready for the shared
// descending sort used by both the recall orchestrator and the graph MCP
// operations.
type Scored struct {
	ID    string
	Score float64
}

// SortDescending orders scored by Score descending, NaN treated as the
// lowest possible value (never floats a NaN to the top from an uninitialized
// or divide-by-zero field), ties broken by ID ascending for determinism.
func SortDescending(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := scored[i].Score, scored[j].Score
		iNaN, jNaN := math.IsNaN(si), math.IsNaN(sj)
		switch {
		case iNaN && jNaN:
			return scored[i].ID < scored[j].ID
		case iNaN:
			return false
		case jNaN:
			return true
		case si != sj:
			return si > sj
		default:
			return scored[i].ID < scored[j].ID
		}
	})
}
