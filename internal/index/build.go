package index

import (
	"fmt"
	"sort"

	"depgraph/internal/graph"
	"depgraph/internal/syntax"
)

// Build creates a fresh entity forest from parsed modules. Modules are
// processed in path order so ids and table order are deterministic.
func Build(modules []*syntax.Module) (*Index, error) {
	sorted := append([]*syntax.Module(nil), modules...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	b := &builder{ix: newIndex(graph.NewForest())}
	for _, mod := range sorted {
		if err := b.module(mod); err != nil {
			return nil, err
		}
	}
	b.ix.finish()
	return b.ix, nil
}

type builder struct {
	ix *Index
}

func (b *builder) add(e *graph.Entity) error {
	base := e.ID
	for n := 2; ; n++ {
		if _, taken := b.ix.Forest.Get(e.ID); !taken {
			break
		}
		e.ID = graph.EntityID(fmt.Sprintf("%s@%d", base, n))
	}
	return b.ix.Forest.Add(e)
}

func (b *builder) module(mod *syntax.Module) error {
	if mod.Path == "" {
		return fmt.Errorf("%w: module without a path", graph.ErrInvalidEntity)
	}
	file := &graph.Entity{
		ID:   graph.EntityID(mod.Path),
		Kind: graph.KindFile,
		Name: mod.Path,
		Span: mod.Span,
	}
	if err := b.add(file); err != nil {
		return err
	}
	b.ix.modules[file.ID] = mod

	for _, cls := range mod.Classes {
		if err := b.class(file.ID, mod.Path, "", cls); err != nil {
			return err
		}
	}
	for _, fn := range mod.Functions {
		e := &graph.Entity{
			ID:       graph.EntityID(mod.Path + "::" + fn.Name + "()"),
			Kind:     graph.KindFunction,
			Name:     fn.Name,
			ParentID: file.ID,
			Span:     fn.Span,
		}
		if err := b.add(e); err != nil {
			return fmt.Errorf("%s: %w", mod.Path, err)
		}
		b.ix.funcs[e.ID] = fn
	}
	return nil
}

func (b *builder) class(parent graph.EntityID, path, prefix string, cls *syntax.ClassDef) error {
	name := cls.Name
	if prefix != "" && name != "" {
		name = prefix + "." + cls.Name
	}
	e := &graph.Entity{
		ID:       graph.EntityID(path + "::" + name),
		Kind:     graph.KindClass,
		Name:     name,
		ParentID: parent,
		Span:     cls.Span,
	}
	if err := b.add(e); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	b.ix.classes[e.ID] = cls

	methodNames := make(map[string]bool, len(cls.Methods))
	for _, fn := range cls.Methods {
		methodNames[fn.Name] = true
		kind := graph.KindMethod
		if fn.Name == "__init__" {
			kind = graph.KindConstructor
		}
		m := &graph.Entity{
			ID:       graph.EntityID(string(e.ID) + "." + fn.Name + "()"),
			Kind:     kind,
			Name:     fn.Name,
			ParentID: e.ID,
			Span:     fn.Span,
		}
		if err := b.add(m); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		b.ix.funcs[m.ID] = fn
		b.ix.owner[m.ID] = e.ID
	}

	for _, f := range classFields(cls, methodNames) {
		fe := &graph.Entity{
			ID:       graph.EntityID(string(e.ID) + "#" + f.Name),
			Kind:     graph.KindField,
			Name:     f.Name,
			ParentID: e.ID,
			Span:     syntax.Span{StartRow: f.Row, EndRow: f.Row},
		}
		if err := b.add(fe); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		b.ix.addField(e.ID, f.Name, fe.ID)
		b.ix.addFieldType(e.ID, f.Name, f.Annotation)
	}

	for _, inner := range cls.Classes {
		if err := b.class(e.ID, path, name, inner); err != nil {
			return err
		}
	}
	return nil
}

// classFields collects the fields a class declares: class-level assignments
// and annotations, then `self.x` assignment targets in its methods, then
// self attributes read on the right of such assignments that are not methods.
func classFields(cls *syntax.ClassDef, methodNames map[string]bool) []syntax.FieldDecl {
	var out []syntax.FieldDecl
	seen := make(map[string]bool)
	add := func(f syntax.FieldDecl) {
		if f.Name == "" || seen[f.Name] || methodNames[f.Name] {
			return
		}
		seen[f.Name] = true
		out = append(out, f)
	}

	for _, f := range cls.Fields {
		add(f)
	}

	var sources []syntax.FieldDecl
	for _, fn := range cls.Methods {
		syntax.InspectBody(fn.Body, func(n syntax.Node) bool {
			a, ok := n.(*syntax.Assign)
			if !ok {
				return true
			}
			assigned := false
			for _, t := range syntax.FlattenTargets(a.Targets) {
				if attr, ok := syntax.SelfAttr(t); ok {
					add(syntax.FieldDecl{Name: attr, Annotation: a.Annotation, Row: a.Row})
					assigned = true
				}
			}
			if assigned && a.Value != nil {
				syntax.Inspect(a.Value, func(v syntax.Node) bool {
					if e, ok := v.(syntax.Expr); ok {
						if attr, ok := syntax.SelfAttr(e); ok {
							sources = append(sources, syntax.FieldDecl{Name: attr, Row: a.Row})
						}
					}
					return true
				})
			}
			return true
		})
	}
	for _, f := range sources {
		add(f)
	}
	return out
}
