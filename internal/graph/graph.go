package graph

import (
	"fmt"
	"sort"
	"sync"
)

// EdgeSet is a concurrency-safe set of edges. Presence only, no counters.
type EdgeSet struct {
	mu    sync.Mutex
	edges map[Edge]struct{}
}

func NewEdgeSet() *EdgeSet {
	return &EdgeSet{edges: make(map[Edge]struct{})}
}

// Add inserts e and reports whether it was new.
func (s *EdgeSet) Add(e Edge) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[e]; ok {
		return false
	}
	s.edges[e] = struct{}{}
	return true
}

func (s *EdgeSet) Has(e Edge) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[e]
	return ok
}

func (s *EdgeSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

// Sorted returns the edges ordered by (src, tgt, kind).
func (s *EdgeSet) Sorted() []Edge {
	s.mu.Lock()
	out := make([]Edge, 0, len(s.edges))
	for e := range s.edges {
		out = append(out, e)
	}
	s.mu.Unlock()
	SortEdges(out)
	return out
}

func SortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		if a.Tgt != b.Tgt {
			return a.Tgt < b.Tgt
		}
		return a.Kind < b.Kind
	})
}

// Graph pairs the immutable forest with the monotonically growing edge set.
type Graph struct {
	Forest *Forest
	Edges  *EdgeSet

	// ClassUse admits Use edges that target classes (isinstance checks).
	ClassUse bool
}

func NewGraph(forest *Forest) *Graph {
	return &Graph{
		Forest: forest,
		Edges:  NewEdgeSet(),
	}
}

// AddEdge checks that both endpoints exist and that their kinds are allowed
// for the edge kind, then inserts it. Self-edges are dropped.
func (g *Graph) AddEdge(e Edge) (bool, error) {
	if e.Src == e.Tgt {
		return false, nil
	}
	src, ok := g.Forest.Get(e.Src)
	if !ok {
		return false, fmt.Errorf("%w: edge source %q not in forest", ErrInvalidEntity, e.Src)
	}
	tgt, ok := g.Forest.Get(e.Tgt)
	if !ok {
		return false, fmt.Errorf("%w: edge target %q not in forest", ErrInvalidEntity, e.Tgt)
	}
	if !EndpointsAllowed(e.Kind, src.Kind, tgt.Kind, g.ClassUse) {
		return false, fmt.Errorf("%s edge %s(%s) -> %s(%s) violates endpoint kinds", e.Kind, src.Name, src.Kind, tgt.Name, tgt.Kind)
	}
	return g.Edges.Add(e), nil
}

// GetDependencies returns the entities the given entity points at.
func (g *Graph) GetDependencies(id EntityID) []*Entity {
	var deps []*Entity
	for _, e := range g.Edges.Sorted() {
		if e.Src == id {
			if ent, ok := g.Forest.Get(e.Tgt); ok {
				deps = append(deps, ent)
			}
		}
	}
	return deps
}

// GetDependents returns the entities that point at the given entity.
func (g *Graph) GetDependents(id EntityID) []*Entity {
	var deps []*Entity
	for _, e := range g.Edges.Sorted() {
		if e.Tgt == id {
			if ent, ok := g.Forest.Get(e.Src); ok {
				deps = append(deps, ent)
			}
		}
	}
	return deps
}
