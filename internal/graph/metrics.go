package graph

// CountByKind tallies edges per kind. Every known kind is present.
func CountByKind(edges []Edge) map[EdgeKind]int {
	counts := make(map[EdgeKind]int, len(EdgeKinds))
	for _, k := range EdgeKinds {
		counts[k] = 0
	}
	for _, e := range edges {
		counts[e.Kind]++
	}
	return counts
}

func (g *Graph) EdgeCountsByKind() map[EdgeKind]int {
	if g == nil {
		return CountByKind(nil)
	}
	return CountByKind(g.Edges.Sorted())
}
