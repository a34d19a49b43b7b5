package graph

// LouvainOptions configures community detection.
type LouvainOptions struct {
	// Resolution scales the null-model penalty term; values above 1 favor
	// more, smaller communities, below 1 favor fewer, larger ones.
	Resolution float64
	MaxIter    int
}

const (
	defaultResolution    = 1.0
	defaultLouvainMaxIter = 20
	moveGainThreshold    = 1e-10
)

// Louvain runs a single-level greedy Louvain pass over g and returns a
// community id per node index. It repeatedly moves each node into whichever
// neighboring community yields the largest modularity gain, stopping when a
// full pass produces no move or MaxIter passes have run. This is the
// single-level variant (no recursive community-graph contraction), which is
// sufficient for the subgraph sizes the recall orchestrator builds.
func Louvain(g *Adjacency, opts LouvainOptions) []int {
	n := g.N()
	if n == 0 {
		return nil
	}

	resolution := opts.Resolution
	if resolution <= 0 {
		resolution = defaultResolution
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = defaultLouvainMaxIter
	}

	community := make([]int, n)
	for i := range community {
		community[i] = i
	}

	// sigmaTot[c] is the total (in+out) edge weight incident to community c.
	sigmaTot := make([]float64, n)
	for i := 0; i < n; i++ {
		sigmaTot[i] = nodeWeight(g, i)
	}

	m2 := g.TotalWeight() * 2
	if m2 <= 0 {
		return community
	}

	for iter := 0; iter < maxIter; iter++ {
		moved := false

		for i := 0; i < n; i++ {
			current := community[i]
			ki := nodeWeight(g, i)

			neighborWeight := make(map[int]float64)
			for _, e := range g.OutEdges(i) {
				if e.To != i {
					neighborWeight[community[e.To]] += e.Weight
				}
			}
			for _, e := range g.InEdges(i) {
				if e.To != i {
					neighborWeight[community[e.To]] += e.Weight
				}
			}

			sigmaTot[current] -= ki

			bestCommunity := current
			bestGain := 0.0
			for c, kIn := range neighborWeight {
				gain := modularityGain(kIn, sigmaTot[c], ki, m2, resolution)
				if gain > bestGain+moveGainThreshold {
					bestGain = gain
					bestCommunity = c
				}
			}

			sigmaTot[bestCommunity] += ki
			if bestCommunity != current {
				community[i] = bestCommunity
				moved = true
			}
		}

		if !moved {
			break
		}
	}

	return renumberCommunities(community)
}

// modularityGain computes ΔQ = (k_in / 2m) - resolution * (Σ_tot * k) / (2m)^2
// for moving a node with degree k and kIn edge weight into a community with
// total incident weight Σ_tot.
func modularityGain(kIn, sigmaTot, k, m2, resolution float64) float64 {
	return kIn/m2 - resolution*(sigmaTot*k)/(m2*m2)
}

func nodeWeight(g *Adjacency, i int) float64 {
	var w float64
	for _, e := range g.OutEdges(i) {
		w += e.Weight
	}
	for _, e := range g.InEdges(i) {
		w += e.Weight
	}
	return w
}

// renumberCommunities maps whatever community ids survived into a dense
// [0, k) range so callers get stable, compact labels.
func renumberCommunities(community []int) []int {
	relabel := make(map[int]int)
	out := make([]int, len(community))
	next := 0
	for i, c := range community {
		id, ok := relabel[c]
		if !ok {
			id = next
			relabel[c] = id
			next++
		}
		out[i] = id
	}
	return out
}
