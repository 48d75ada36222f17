// Package override finds methods that implement an abstract method inherited
// through any number of intermediate classes.
package override

import (
	"depgraph/internal/graph"
	"depgraph/internal/hierarchy"
	"depgraph/internal/index"
	"depgraph/internal/syntax"
)

// IsAbstractMethod reports an explicit @abstractmethod marker, or a body
// whose only effect is raising NotImplementedError.
func IsAbstractMethod(fn *syntax.FuncDef) bool {
	if fn == nil {
		return false
	}
	if fn.HasDecorator("abstractmethod") {
		return true
	}
	var effect syntax.Stmt
	for i, s := range fn.Body {
		if isInert(s, i == 0) {
			continue
		}
		if effect != nil {
			return false
		}
		effect = s
	}
	r, ok := effect.(*syntax.Raise)
	if !ok || r.Exc == nil {
		return false
	}
	exc := r.Exc
	if call, ok := exc.(*syntax.Call); ok {
		exc = call.Func
	}
	return syntax.LeafName(exc) == "NotImplementedError"
}

// isInert matches pass, `...` and a leading docstring.
func isInert(s syntax.Stmt, first bool) bool {
	switch v := s.(type) {
	case *syntax.Pass:
		return true
	case *syntax.ExprStmt:
		c, ok := v.X.(*syntax.Const)
		if !ok {
			return false
		}
		return c.Kind == syntax.ConstEllipsis || (first && c.Kind == syntax.ConstString)
	}
	return false
}

// IsAbstractClass reports an ABC base or an ABCMeta metaclass.
func IsAbstractClass(cls *syntax.ClassDef) bool {
	if cls == nil {
		return false
	}
	for _, b := range cls.Bases {
		if syntax.LeafName(b) == "ABC" {
			return true
		}
	}
	for _, kw := range cls.Keywords {
		if kw.Name == "metaclass" && syntax.LeafName(kw.Value) == "ABCMeta" {
			return true
		}
	}
	return false
}

type Detector struct {
	ix *index.Index
	h  *hierarchy.Resolver
}

func NewDetector(ix *index.Index, h *hierarchy.Resolver) *Detector {
	return &Detector{ix: ix, h: h}
}

func (d *Detector) abstract(method graph.EntityID) bool {
	fn, ok := d.ix.FuncDecl(method)
	return ok && IsAbstractMethod(fn)
}

// stillAbstract reports a class marked abstract that leaves at least one
// abstract method, its own or inherited, without a concrete definition.
func (d *Detector) stillAbstract(cls graph.EntityID) bool {
	decl, ok := d.ix.ClassDecl(cls)
	if !ok || !IsAbstractClass(decl) {
		return false
	}
	names := map[string]bool{}
	for _, name := range d.ix.MethodNames(cls) {
		names[name] = true
	}
	for _, anc := range d.h.Ancestors(cls) {
		for _, name := range d.ix.MethodNames(anc) {
			names[name] = true
		}
	}
	for name := range names {
		if own, ok := d.ix.Method(cls, name); ok {
			if d.abstract(own) {
				return true
			}
			continue
		}
		for _, target := range d.reachableDefinitions(cls, name) {
			if d.abstract(target) {
				return true
			}
		}
	}
	return false
}

// Detect emits child.m -> ancestor.m for every method m of a class that is
// not still abstract when m reaches an abstract ancestor m through classes
// that do not define m.
func (d *Detector) Detect() []graph.Edge {
	var out []graph.Edge
	for _, cls := range d.ix.Classes() {
		if d.stillAbstract(cls) {
			continue
		}
		for _, name := range d.ix.MethodNames(cls) {
			own, _ := d.ix.Method(cls, name)
			ownEntity, _ := d.ix.Forest.Get(own)
			if ownEntity.Kind != graph.KindMethod {
				continue
			}
			for _, target := range d.reachableDefinitions(cls, name) {
				if d.abstract(target) {
					out = append(out, graph.Edge{Src: own, Tgt: target, Kind: graph.EdgeOverride})
				}
			}
		}
	}
	return out
}

// reachableDefinitions walks up from cls breadth first and returns the first
// definition of name on every path. A class that defines name stops the walk
// along that path.
func (d *Detector) reachableDefinitions(cls graph.EntityID, name string) []graph.EntityID {
	visited := map[graph.EntityID]bool{cls: true}
	queue := append([]graph.EntityID(nil), d.h.Parents(cls)...)
	var found []graph.EntityID
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if m, ok := d.ix.Method(cur, name); ok {
			found = append(found, m)
			continue
		}
		queue = append(queue, d.h.Parents(cur)...)
	}
	return found
}
