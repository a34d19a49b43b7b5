package graph

import "sort"

// DefaultRRFConstant is the standard RRF smoothing parameter (k=60),
// empirically validated across domains.
const DefaultRRFConstant = 60

// RankedList is one source's ranked results, in descending score order.
// The Score field is carried through for tie-breaking and diagnostics but
// plays no role in the RRF formula itself — only rank position does.
type RankedList struct {
	Source string
	IDs    []string
	Scores []float64
}

// FusedResult is one candidate's outcome after RRF across every input list.
type FusedResult struct {
	ID         string
	RRFScore   float64
	PerSource  map[string]float64 // raw score from each source that ranked this id
	SourceRank map[string]int     // 1-indexed rank in each source that ranked this id
}

// Fuse combines N ranked lists with Reciprocal Rank Fusion:
// score(x) = Σ_i 1 / (k + rank_i(x) + 1), where rank_i(x) is x's 0-indexed
// position in list i, and lists that never rank x contribute 0. Results
// are sorted descending by RRFScore, ties broken by id for determinism.
func Fuse(lists []RankedList, k int) []FusedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	agg := make(map[string]*FusedResult)
	order := func(id string) *FusedResult {
		if r, ok := agg[id]; ok {
			return r
		}
		r := &FusedResult{ID: id, PerSource: map[string]float64{}, SourceRank: map[string]int{}}
		agg[id] = r
		return r
	}

	for _, list := range lists {
		for rank, id := range list.IDs {
			r := order(id)
			r.RRFScore += 1.0 / float64(k+rank+1)
			if rank < len(list.Scores) {
				r.PerSource[list.Source] = list.Scores[rank]
			}
			r.SourceRank[list.Source] = rank + 1
		}
	}

	results := make([]FusedResult, 0, len(agg))
	for _, r := range agg {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		return results[i].ID < results[j].ID
	})

	return results
}
