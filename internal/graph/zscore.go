package graph

import "math"

// ZScoreGroup is one source's raw scores to be normalized together, e.g.
// every memory candidate's vector score versus every code candidate's.
type ZScoreGroup struct {
	Key    string
	Scores []float64
}

// Normalize replaces each group's scores with (s - mean) / stddev, or all
// zeros when stddev <= 1e-6 (a degenerate group where every score is
// effectively identical). This keeps a source with a naturally tight score
// distribution (code BM25, say) from dominating a wider one (memory BM25)
// purely because of scale.
func Normalize(groups []ZScoreGroup) map[string][]float64 {
	out := make(map[string][]float64, len(groups))
	for _, g := range groups {
		out[g.Key] = normalizeOne(g.Scores)
	}
	return out
}

func normalizeOne(scores []float64) []float64 {
	result := make([]float64, len(scores))
	if len(scores) == 0 {
		return result
	}

	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))

	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))
	stddev := math.Sqrt(variance)

	if stddev <= 1e-6 {
		return result // all zeros
	}

	for i, s := range scores {
		result[i] = (s - mean) / stddev
	}
	return result
}
