package resolver

import (
	"depgraph/internal/facts"
	"depgraph/internal/graph"
	"depgraph/internal/hierarchy"
	"depgraph/internal/index"
)

// FieldTypes records the classes assigned to each field of each class, from
// `self.f = Cls(...)` in any method and from class-level annotations.
type FieldTypes struct {
	ix    *index.Index
	h     *hierarchy.Resolver
	types map[graph.EntityID]map[string]map[graph.EntityID]struct{}
}

// NewFieldTypes aggregates the field types of every class. bags maps
// callable ids to their fact bags.
func NewFieldTypes(ix *index.Index, h *hierarchy.Resolver, bags map[graph.EntityID]*facts.Bag) *FieldTypes {
	ft := &FieldTypes{
		ix:    ix,
		h:     h,
		types: make(map[graph.EntityID]map[string]map[graph.EntityID]struct{}),
	}
	for _, cls := range ix.Classes() {
		for field, t := range ix.DeclaredFieldTypes(cls) {
			ft.add(cls, field, t)
		}
	}
	for _, id := range ix.Callables() {
		cls, ok := ix.OwnerClass(id)
		if !ok {
			continue
		}
		bag := bags[id]
		if bag == nil {
			continue
		}
		for _, b := range bag.FieldTypes {
			ft.add(cls, b.Name, b.Class)
		}
	}
	return ft
}

func (ft *FieldTypes) add(cls graph.EntityID, field, className string) {
	target, ok := ft.ix.ResolveClass(className, ft.ix.FileOf(cls))
	if !ok {
		return
	}
	fields := ft.types[cls]
	if fields == nil {
		fields = make(map[string]map[graph.EntityID]struct{})
		ft.types[cls] = fields
	}
	set := fields[field]
	if set == nil {
		set = make(map[graph.EntityID]struct{})
		fields[field] = set
	}
	set[target] = struct{}{}
}

func (ft *FieldTypes) own(cls graph.EntityID, field string) (graph.EntityID, bool) {
	set := ft.types[cls][field]
	if len(set) != 1 {
		return "", false
	}
	for t := range set {
		return t, true
	}
	return "", false
}

// TypeOf returns the single class a field of cls holds: recorded on cls
// itself, else on its nearest ancestor, else agreed by every descendant that
// records one.
func (ft *FieldTypes) TypeOf(cls graph.EntityID, field string) (graph.EntityID, bool) {
	if t, ok := ft.own(cls, field); ok {
		return t, true
	}
	if len(ft.types[cls][field]) > 1 {
		return "", false
	}
	for _, anc := range ft.h.Ancestors(cls) {
		if t, ok := ft.own(anc, field); ok {
			return t, true
		}
	}
	found := make(map[graph.EntityID]struct{})
	for _, d := range ft.h.Descendants(cls) {
		for t := range ft.types[d][field] {
			found[t] = struct{}{}
		}
	}
	if len(found) != 1 {
		return "", false
	}
	for t := range found {
		return t, true
	}
	return "", false
}
