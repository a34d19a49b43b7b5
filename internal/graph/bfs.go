package graph

// BFSOptions bounds a traversal so a densely connected subgraph can't blow
// past the caller's response budget.
type BFSOptions struct {
	// MaxPerLevel caps how many nodes from a single BFS level are expanded
	// before the rest of that level is deferred to a later round of the
	// same traversal rather than dropped.
	MaxPerLevel int
	// MaxTotal caps the number of nodes visited across the whole
	// traversal. Reaching it sets BFSResult.Truncated.
	MaxTotal int
	MaxDepth int
}

// BFSResult reports what a bounded BFS actually covered.
type BFSResult struct {
	// Order is the visited node indices in traversal order.
	Order []int
	// Depth maps node index -> distance from the nearest start node.
	Depth map[int]int
	// Truncated is true when MaxTotal was reached before the frontier was
	// exhausted.
	Truncated bool
	// DeferredCount is the number of discovered-but-unvisited nodes left
	// in the frontier when traversal stopped — nodes that were seen but
	// never got to expand, whether from a per-level excess or the total
	// cap. Every node is accounted for: visited + deferred covers
	// everything discovered.
	DeferredCount int
}

// BoundedBFS traverses g breadth-first from starts, re-enqueuing any excess
// beyond MaxPerLevel to later levels instead of discarding it, and stopping
// once MaxTotal nodes have been visited.
func BoundedBFS(g *Adjacency, starts []int, opts BFSOptions) BFSResult {
	maxPerLevel := opts.MaxPerLevel
	if maxPerLevel <= 0 {
		maxPerLevel = g.N()
	}
	maxTotal := opts.MaxTotal
	if maxTotal <= 0 {
		maxTotal = g.N()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 1<<31 - 1
	}

	visited := make(map[int]bool)
	depth := make(map[int]int)
	var order []int

	frontier := make([]int, 0, len(starts))
	for _, s := range starts {
		if s < 0 || s >= g.N() || visited[s] {
			continue
		}
		visited[s] = true
		depth[s] = 0
		frontier = append(frontier, s)
	}

	truncated := false

	for len(frontier) > 0 {
		if len(order)+len(frontier) > maxTotal && len(order) >= maxTotal {
			truncated = true
			break
		}

		level := frontier
		frontier = nil

		if len(level) > maxPerLevel {
			// Expand the first maxPerLevel now, re-enqueue the rest for
			// the next round at the same depth.
			carry := level[maxPerLevel:]
			level = level[:maxPerLevel]
			frontier = append(frontier, carry...)
		}

		var next []int
		for li, u := range level {
			if len(order) >= maxTotal {
				truncated = true
				frontier = append(frontier, level[li:]...)
				break
			}
			order = append(order, u)

			if depth[u] >= maxDepth {
				continue
			}
			for _, e := range g.OutEdges(u) {
				if !visited[e.To] {
					visited[e.To] = true
					depth[e.To] = depth[u] + 1
					next = append(next, e.To)
				}
			}
			for _, e := range g.InEdges(u) {
				if !visited[e.To] {
					visited[e.To] = true
					depth[e.To] = depth[u] + 1
					next = append(next, e.To)
				}
			}
		}

		if truncated {
			// Whatever remains in this level plus whatever was discovered
			// this round is deferred, not lost.
			frontier = append(frontier, next...)
			break
		}

		frontier = append(frontier, next...)
	}

	return BFSResult{
		Order:         order,
		Depth:         depth,
		Truncated:     truncated || len(frontier) > 0,
		DeferredCount: len(frontier),
	}
}
