package index

import (
	"depgraph/internal/graph"
	"depgraph/internal/syntax"
)

// Bind wraps a forest read from an entity store. modules maps file entity ids
// to the trees parsed from the stored contents. Classes and callables are
// matched to declarations by name and row span; entities with no matching
// declaration stay in the forest without a body.
func Bind(forest *graph.Forest, modules map[graph.EntityID]*syntax.Module) (*Index, error) {
	if err := forest.Validate(); err != nil {
		return nil, err
	}
	ix := newIndex(forest)

	decls := make(map[graph.EntityID]*fileDecls, len(modules))
	for file, mod := range modules {
		ix.modules[file] = mod
		decls[file] = collectDecls(mod)
	}

	entities := forest.Entities()
	for _, e := range entities {
		d := decls[e.File]
		switch e.Kind {
		case graph.KindClass:
			if d == nil {
				continue
			}
			if c := d.class(e); c != nil {
				ix.classes[e.ID] = c
				for _, f := range c.Fields {
					ix.addFieldType(e.ID, f.Name, f.Annotation)
				}
			}
		case graph.KindMethod, graph.KindConstructor, graph.KindFunction:
			if d != nil {
				if fn := d.function(e); fn != nil {
					ix.funcs[e.ID] = fn
				}
			}
		}
	}

	for _, e := range entities {
		switch e.Kind {
		case graph.KindMethod, graph.KindConstructor:
			if cls, ok := ownerByForestOrSpan(ix, e); ok {
				ix.owner[e.ID] = cls
			}
		}
	}

	for _, e := range entities {
		if e.Kind != graph.KindField {
			continue
		}
		parent, ok := forest.Get(e.ParentID)
		if !ok {
			continue
		}
		switch parent.Kind {
		case graph.KindClass:
			ix.addField(parent.ID, e.Name, e.ID)
		case graph.KindMethod, graph.KindConstructor:
			// misplaced field: still resolvable through the method's class
			if cls, ok := ix.owner[parent.ID]; ok {
				ix.addField(cls, e.Name, e.ID)
			}
		}
	}

	ix.finish()
	return ix, nil
}

func ownerByForestOrSpan(ix *Index, e *graph.Entity) (graph.EntityID, bool) {
	if cls, ok := ix.Forest.Ancestor(e.ID, graph.KindClass); ok {
		return cls.ID, true
	}
	// Some producers parent decorated methods under the file. Take the
	// innermost class of the same file whose span contains the method.
	var best *graph.Entity
	for _, c := range ix.Forest.Entities() {
		if c.Kind != graph.KindClass || c.File != e.File || !c.Span.Contains(e.Span) {
			continue
		}
		if best == nil || best.Span.Contains(c.Span) {
			best = c
		}
	}
	if best == nil {
		return "", false
	}
	return best.ID, true
}

type namedClass struct {
	dotted string
	decl   *syntax.ClassDef
}

type fileDecls struct {
	classes []namedClass
	funcs   []*syntax.FuncDef
}

func collectDecls(mod *syntax.Module) *fileDecls {
	d := &fileDecls{}
	var walk func(prefix string, cls *syntax.ClassDef)
	walk = func(prefix string, cls *syntax.ClassDef) {
		name := cls.Name
		if prefix != "" {
			name = prefix + "." + cls.Name
		}
		d.classes = append(d.classes, namedClass{dotted: name, decl: cls})
		d.funcs = append(d.funcs, cls.Methods...)
		for _, inner := range cls.Classes {
			walk(name, inner)
		}
	}
	for _, cls := range mod.Classes {
		walk("", cls)
	}
	d.funcs = append(d.funcs, mod.Functions...)
	return d
}

// class finds the declaration whose name matches the entity (dotted or leaf)
// and whose span sits inside the entity's span, closest start row first.
func (d *fileDecls) class(e *graph.Entity) *syntax.ClassDef {
	var best *syntax.ClassDef
	for _, c := range d.classes {
		if c.dotted != e.Name && c.decl.Name != e.Name {
			continue
		}
		if !spanMatches(e.Span, c.decl.Span) {
			continue
		}
		if best == nil || closer(e.Span, c.decl.Span, best.Span) {
			best = c.decl
		}
	}
	return best
}

func (d *fileDecls) function(e *graph.Entity) *syntax.FuncDef {
	var best *syntax.FuncDef
	for _, fn := range d.funcs {
		if fn.Name != e.Name || !spanMatches(e.Span, fn.Span) {
			continue
		}
		if best == nil || closer(e.Span, fn.Span, best.Span) {
			best = fn
		}
	}
	return best
}

// spanMatches accepts declarations inside the entity span, or starting on
// the entity's first row for producers that record only the header.
func spanMatches(entity, decl syntax.Span) bool {
	return entity.Contains(decl) || entity.StartRow == decl.StartRow
}

func closer(target, a, b syntax.Span) bool {
	da := a.StartRow - target.StartRow
	db := b.StartRow - target.StartRow
	if da < 0 {
		da = -da
	}
	if db < 0 {
		db = -db
	}
	return da < db
}
