package resolver

import (
	"strings"

	"depgraph/internal/facts"
	"depgraph/internal/graph"
	"depgraph/internal/hierarchy"
	"depgraph/internal/index"
)

// BodyResolver turns one callable's fact bag into edges. It only reads the
// index, the hierarchy and the field types, so one instance serves every
// worker.
type BodyResolver struct {
	ix     *index.Index
	h      *hierarchy.Resolver
	fields *FieldTypes
	opts   Options
}

func NewBodyResolver(ix *index.Index, h *hierarchy.Resolver, fields *FieldTypes, opts Options) *BodyResolver {
	if opts.Profile == "" {
		opts.Profile = Strict
	}
	return &BodyResolver{ix: ix, h: h, fields: fields, opts: opts}
}

type edgeList struct {
	seen map[graph.Edge]bool
	out  []graph.Edge
}

func (l *edgeList) add(src, tgt graph.EntityID, kind graph.EdgeKind) {
	if src == tgt {
		return
	}
	e := graph.Edge{Src: src, Tgt: tgt, Kind: kind}
	if l.seen[e] {
		return
	}
	l.seen[e] = true
	l.out = append(l.out, e)
}

// Resolve emits the edges of src. The result is ordered by rule and then by
// the bag's own order, so it is deterministic for a given bag.
func (r *BodyResolver) Resolve(src graph.EntityID, bag *facts.Bag) []graph.Edge {
	if bag == nil {
		return nil
	}
	l := &edgeList{seen: make(map[graph.Edge]bool)}
	file := r.ix.FileOf(src)
	owner, inClass := r.ix.OwnerClass(src)
	env := bag.Env()

	for _, ca := range bag.ClassAttrs {
		if cls, ok := r.ix.ResolveClass(ca.A, file); ok {
			if f, ok := r.h.LookupField(cls, ca.B); ok {
				l.add(src, f, graph.EdgeUse)
			}
		}
	}

	if r.opts.TypeCheckUses {
		for _, name := range bag.TypeChecks {
			if cls, ok := r.ix.ResolveClass(name, file); ok {
				l.add(src, cls, graph.EdgeUse)
			}
		}
	}

	if inClass {
		for _, attr := range bag.SelfAttrs {
			if f, ok := r.h.LookupField(owner, attr); ok {
				l.add(src, f, graph.EdgeUse)
			}
		}
		for _, p := range bag.FieldAssigns {
			target, ok := r.h.LookupField(owner, p.A)
			if !ok {
				continue
			}
			if source, ok := r.h.LookupField(owner, p.B); ok {
				l.add(target, source, graph.EdgeUse)
			}
		}

		// rule 1
		for _, m := range bag.SelfCalls {
			if id, ok := r.h.LookupMethod(owner, m); ok {
				l.add(src, id, graph.EdgeCall)
			}
		}
		// rule 2
		for _, m := range bag.SuperCalls {
			if id, ok := r.h.LookupSuper(owner, m); ok {
				l.add(src, id, graph.EdgeCall)
			}
		}
	}

	// rule 3
	for _, c := range bag.ClassCalls {
		if cls, ok := r.ix.ResolveClass(c.A, file); ok {
			if id, ok := r.h.LookupMethod(cls, c.B); ok {
				l.add(src, id, graph.EdgeCall)
			}
		}
	}

	// rule 5
	if inClass {
		for _, c := range bag.FieldCalls {
			if cls, ok := r.fields.TypeOf(owner, c.A); ok {
				if id, ok := r.h.ResolveInHierarchy(cls, c.B); ok {
					l.add(src, id, graph.EdgeCall)
				}
			}
		}
	}

	// rules 4 and 6
	for _, c := range bag.VarCalls {
		if id, ok := r.resolveVarCall(env, file, c.A, c.B); ok {
			l.add(src, id, graph.EdgeCall)
		}
	}

	// rule 7
	for _, name := range bag.FuncCalls {
		if r.ix.KnownClass(name) {
			continue
		}
		if id, ok := r.ix.ResolveFunction(name, file); ok {
			l.add(src, id, graph.EdgeCall)
		}
	}

	for _, name := range bag.Creates {
		if cls, ok := r.ix.ResolveClass(name, file); ok {
			l.add(src, cls, graph.EdgeCreate)
		}
	}
	if bag.ClsCreate && inClass {
		l.add(src, owner, graph.EdgeCreate)
	}
	return l.out
}

func (r *BodyResolver) resolveVarCall(env facts.Env, file graph.EntityID, variable, method string) (graph.EntityID, bool) {
	if className, ok := env.Lookup(variable); ok {
		cls, ok := r.ix.ResolveClass(className, file)
		if !ok {
			return "", false
		}
		return r.h.ResolveInHierarchy(cls, method)
	}
	if r.opts.Profile != Heuristic {
		return "", false
	}
	if guess := PascalCase(variable); guess != "" {
		if cls, ok := r.ix.ResolveClass(guess, file); ok {
			if id, ok := r.h.ResolveInHierarchy(cls, method); ok {
				return id, true
			}
		}
	}
	if cls, ok := r.ix.UniqueMethodOwner(method); ok {
		return r.ix.Method(cls, method)
	}
	return "", false
}

// PascalCase converts snake_case to PascalCase: ticket_office -> TicketOffice.
func PascalCase(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
