// Package hierarchy resolves class inheritance over project-local classes and
// answers member lookups along it. The raw relation may contain cycles; every
// traversal is guarded by a visited set.
package hierarchy

import (
	"depgraph/internal/graph"
	"depgraph/internal/index"
)

// Resolver holds the inheritance adjacency and its closures. It is read-only
// after Build and safe for concurrent use.
type Resolver struct {
	ix          *index.Index
	parents     map[graph.EntityID][]graph.EntityID
	children    map[graph.EntityID][]graph.EntityID
	ancestors   map[graph.EntityID][]graph.EntityID
	descendants map[graph.EntityID][]graph.EntityID
}

// Build resolves each class's base names against project-local classes.
// Unresolvable bases and self references are dropped.
func Build(ix *index.Index) *Resolver {
	r := &Resolver{
		ix:          ix,
		parents:     make(map[graph.EntityID][]graph.EntityID),
		children:    make(map[graph.EntityID][]graph.EntityID),
		ancestors:   make(map[graph.EntityID][]graph.EntityID),
		descendants: make(map[graph.EntityID][]graph.EntityID),
	}
	for _, cls := range ix.Classes() {
		file := ix.FileOf(cls)
		seen := make(map[graph.EntityID]bool)
		for _, base := range ix.BaseNames(cls) {
			parent, ok := ix.ResolveClass(base, file)
			if !ok || parent == cls || seen[parent] {
				continue
			}
			seen[parent] = true
			r.parents[cls] = append(r.parents[cls], parent)
			r.children[parent] = append(r.children[parent], cls)
		}
	}
	for _, cls := range ix.Classes() {
		r.ancestors[cls] = bfs(cls, r.parents)
		r.descendants[cls] = bfs(cls, r.children)
	}
	return r
}

// bfs returns every node reachable from start, nearest first, excluding start.
func bfs(start graph.EntityID, adj map[graph.EntityID][]graph.EntityID) []graph.EntityID {
	visited := map[graph.EntityID]bool{start: true}
	queue := append([]graph.EntityID(nil), adj[start]...)
	var out []graph.EntityID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		queue = append(queue, adj[cur]...)
	}
	return out
}

// Parents returns direct bases in declaration order.
func (r *Resolver) Parents(cls graph.EntityID) []graph.EntityID { return r.parents[cls] }

// Ancestors returns the transitive bases in breadth-first declaration order.
func (r *Resolver) Ancestors(cls graph.EntityID) []graph.EntityID { return r.ancestors[cls] }

func (r *Resolver) Descendants(cls graph.EntityID) []graph.EntityID { return r.descendants[cls] }

// LookupMethod finds name on cls itself, else on the nearest ancestor.
func (r *Resolver) LookupMethod(cls graph.EntityID, name string) (graph.EntityID, bool) {
	return r.lookup(cls, name, r.ix.Method)
}

// LookupField finds a field the same way LookupMethod finds methods.
func (r *Resolver) LookupField(cls graph.EntityID, name string) (graph.EntityID, bool) {
	return r.lookup(cls, name, r.ix.Field)
}

func (r *Resolver) lookup(cls graph.EntityID, name string, own func(graph.EntityID, string) (graph.EntityID, bool)) (graph.EntityID, bool) {
	if id, ok := own(cls, name); ok {
		return id, true
	}
	for _, anc := range r.ancestors[cls] {
		if id, ok := own(anc, name); ok {
			return id, true
		}
	}
	return "", false
}

// LookupSuper resolves super().name: the first direct base, in declaration
// order, whose own-then-ancestor lookup finds the method.
func (r *Resolver) LookupSuper(cls graph.EntityID, name string) (graph.EntityID, bool) {
	for _, p := range r.parents[cls] {
		if id, ok := r.LookupMethod(p, name); ok {
			return id, true
		}
	}
	return "", false
}

// UniqueDescendantMethod accepts a descendant definition only when exactly
// one descendant defines name.
func (r *Resolver) UniqueDescendantMethod(cls graph.EntityID, name string) (graph.EntityID, bool) {
	var found graph.EntityID
	n := 0
	for _, d := range r.descendants[cls] {
		if id, ok := r.ix.Method(d, name); ok {
			found = id
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return found, true
}

// ResolveInHierarchy is the lookup used for typed receivers: the class and its
// ancestors, then a unique defining descendant.
func (r *Resolver) ResolveInHierarchy(cls graph.EntityID, name string) (graph.EntityID, bool) {
	if id, ok := r.LookupMethod(cls, name); ok {
		return id, true
	}
	return r.UniqueDescendantMethod(cls, name)
}

// ExtendEdges returns one Extend edge per resolved direct base.
func (r *Resolver) ExtendEdges() []graph.Edge {
	var out []graph.Edge
	for _, cls := range r.ix.Classes() {
		for _, p := range r.parents[cls] {
			out = append(out, graph.Edge{Src: cls, Tgt: p, Kind: graph.EdgeExtend})
		}
	}
	return out
}
