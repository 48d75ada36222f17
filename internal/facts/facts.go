// Package facts extracts the syntactic facts of one function body that the
// edge resolver needs. Extraction is a pure function of its input.
package facts

import (
	"sort"

	"depgraph/internal/syntax"
)

// Pair is an ordered (receiver, member) or (target, source) couple.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Binding maps a local variable or field to a class name.
type Binding struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

// Bag is the fact set of one body. Every slice is sorted and de-duplicated
// so identical input marshals to identical bytes.
type Bag struct {
	SelfAttrs    []string  `json:"self_attrs,omitempty"`
	FieldAssigns []Pair    `json:"field_assigns,omitempty"`
	FieldTypes   []Binding `json:"field_types,omitempty"`
	Locals       []Binding `json:"locals,omitempty"`
	SelfCalls    []string  `json:"self_calls,omitempty"`
	SuperCalls   []string  `json:"super_calls,omitempty"`
	ClassCalls   []Pair    `json:"class_calls,omitempty"`
	FieldCalls   []Pair    `json:"field_calls,omitempty"`
	VarCalls     []Pair    `json:"var_calls,omitempty"`
	FuncCalls    []string  `json:"func_calls,omitempty"`
	Creates      []string  `json:"creates,omitempty"`
	ClsCreate    bool      `json:"cls_create,omitempty"`
	TypeChecks   []string  `json:"type_checks,omitempty"`
	ClassAttrs   []Pair    `json:"class_attrs,omitempty"`
}

// Env is the local type environment of one body: variable name to class name.
// It is immutable once returned.
type Env struct {
	vars map[string]string
}

func (e Env) Lookup(name string) (string, bool) {
	c, ok := e.vars[name]
	return c, ok
}

// Env rebuilds the environment recorded in the bag.
func (b *Bag) Env() Env {
	vars := make(map[string]string, len(b.Locals))
	for _, l := range b.Locals {
		vars[l.Name] = l.Class
	}
	return Env{vars: vars}
}

type Input struct {
	Func *syntax.FuncDef
	// InClass is set for methods and constructors.
	InClass bool
	// KnownClasses holds project-local class names. It is read, never written.
	KnownClasses map[string]struct{}
}

func (in Input) known(name string) bool {
	_, ok := in.KnownClasses[name]
	return ok
}

// IsClassMethod reports whether fn receives the class as its first argument.
func IsClassMethod(fn *syntax.FuncDef) bool {
	if fn.HasDecorator("classmethod") {
		return true
	}
	return len(fn.Params) > 0 && fn.Params[0].Name == "cls"
}

// Extract computes the fact bag of in.Func in one pass over its body.
func Extract(in Input) *Bag {
	x := &extraction{in: in, env: make(map[string]string), bag: &Bag{}}
	if in.Func == nil {
		return x.bag
	}
	for _, p := range in.Func.Params {
		if p.Name == "self" || p.Name == "cls" {
			continue
		}
		if in.known(p.Annotation) {
			x.env[p.Name] = p.Annotation
		}
	}
	classMethod := in.InClass && IsClassMethod(in.Func)
	x.classMethod = classMethod
	syntax.InspectBody(in.Func.Body, x.visit)
	x.finish()
	return x.bag
}

type extraction struct {
	in          Input
	classMethod bool
	env         map[string]string
	bag         *Bag
}

func (x *extraction) visit(n syntax.Node) bool {
	switch v := n.(type) {
	case *syntax.Assign:
		x.assign(v)
	case *syntax.Attribute:
		x.attribute(v)
	case *syntax.Call:
		x.call(v)
	}
	return true
}

func (x *extraction) assign(a *syntax.Assign) {
	for _, tv := range pairTargets(a.Targets, a.Value) {
		annotation := ""
		if tv.whole {
			annotation = a.Annotation
		}
		if field, ok := syntax.SelfAttr(tv.target); ok {
			if tv.value != nil {
				for _, src := range selfAttrsIn(tv.value) {
					if src != field {
						x.bag.FieldAssigns = append(x.bag.FieldAssigns, Pair{A: field, B: src})
					}
				}
			}
			if !tv.whole {
				continue
			}
			if cls := x.constructedClass(tv.value); cls != "" {
				x.bag.FieldTypes = append(x.bag.FieldTypes, Binding{Name: field, Class: cls})
			} else if x.in.known(annotation) {
				x.bag.FieldTypes = append(x.bag.FieldTypes, Binding{Name: field, Class: annotation})
			}
			continue
		}
		name, ok := tv.target.(*syntax.Name)
		if !ok || !tv.whole {
			continue
		}
		if cls := x.constructedClass(tv.value); cls != "" {
			x.env[name.ID] = cls
		} else if x.in.known(annotation) {
			x.env[name.ID] = annotation
		}
	}
}

// targetValue is one assignment leaf. whole is false when a tuple target
// could not be matched element-wise, so value is the entire right side.
type targetValue struct {
	target syntax.Expr
	value  syntax.Expr
	whole  bool
}

// pairTargets matches tuple targets to tuple values of the same length:
// `self.a, self.b = self.x, 1` pairs a with self.x and b with 1.
func pairTargets(targets []syntax.Expr, value syntax.Expr) []targetValue {
	var out []targetValue
	var zip func(t, v syntax.Expr)
	zip = func(t, v syntax.Expr) {
		ts, ok := t.(*syntax.Seq)
		if !ok {
			out = append(out, targetValue{target: t, value: v, whole: true})
			return
		}
		if vs, ok := v.(*syntax.Seq); ok && len(vs.Elts) == len(ts.Elts) {
			for i := range ts.Elts {
				zip(ts.Elts[i], vs.Elts[i])
			}
			return
		}
		for _, leaf := range syntax.FlattenTargets(ts.Elts) {
			out = append(out, targetValue{target: leaf, value: v})
		}
	}
	for _, t := range targets {
		zip(t, value)
	}
	return out
}

// constructedClass matches `Cls(...)` and `Cls.factory(...)` on a known class.
func (x *extraction) constructedClass(e syntax.Expr) string {
	call, ok := e.(*syntax.Call)
	if !ok {
		return ""
	}
	switch fn := call.Func.(type) {
	case *syntax.Name:
		if x.in.known(fn.ID) {
			return fn.ID
		}
	case *syntax.Attribute:
		if recv, ok := fn.Value.(*syntax.Name); ok && x.in.known(recv.ID) {
			return recv.ID
		}
	}
	return ""
}

func (x *extraction) attribute(a *syntax.Attribute) {
	if attr, ok := syntax.SelfAttr(a); ok {
		x.bag.SelfAttrs = append(x.bag.SelfAttrs, attr)
		return
	}
	if recv, ok := a.Value.(*syntax.Name); ok && x.in.known(recv.ID) {
		x.bag.ClassAttrs = append(x.bag.ClassAttrs, Pair{A: recv.ID, B: a.Attr})
	}
}

func (x *extraction) call(c *syntax.Call) {
	switch fn := c.Func.(type) {
	case *syntax.Name:
		switch {
		case fn.ID == "isinstance":
			if len(c.Args) >= 2 {
				x.typeChecks(c.Args[1])
			}
		case x.in.known(fn.ID):
			x.bag.Creates = append(x.bag.Creates, fn.ID)
		case fn.ID == "cls":
			if x.classMethod {
				x.bag.ClsCreate = true
			}
		default:
			x.bag.FuncCalls = append(x.bag.FuncCalls, fn.ID)
		}
	case *syntax.Attribute:
		method := fn.Attr
		if field, ok := syntax.SelfAttr(fn.Value); ok {
			x.bag.FieldCalls = append(x.bag.FieldCalls, Pair{A: field, B: method})
			return
		}
		switch recv := fn.Value.(type) {
		case *syntax.Name:
			switch {
			case recv.ID == "self" || (recv.ID == "cls" && x.classMethod):
				if x.in.InClass {
					x.bag.SelfCalls = append(x.bag.SelfCalls, method)
				}
			case x.in.known(recv.ID):
				x.bag.ClassCalls = append(x.bag.ClassCalls, Pair{A: recv.ID, B: method})
			case x.in.known(method):
				// module-qualified construction: models.Ticket(...)
				x.bag.Creates = append(x.bag.Creates, method)
			default:
				x.bag.VarCalls = append(x.bag.VarCalls, Pair{A: recv.ID, B: method})
			}
		case *syntax.Call:
			if name, ok := recv.Func.(*syntax.Name); ok && name.ID == "super" {
				x.bag.SuperCalls = append(x.bag.SuperCalls, method)
			}
		}
	}
}

func (x *extraction) typeChecks(e syntax.Expr) {
	if seq, ok := e.(*syntax.Seq); ok {
		for _, el := range seq.Elts {
			x.typeChecks(el)
		}
		return
	}
	if name := syntax.LeafName(e); x.in.known(name) {
		x.bag.TypeChecks = append(x.bag.TypeChecks, name)
	}
}

func (x *extraction) finish() {
	b := x.bag
	for name, cls := range x.env {
		b.Locals = append(b.Locals, Binding{Name: name, Class: cls})
	}
	b.SelfAttrs = uniqStrings(b.SelfAttrs)
	b.SelfCalls = uniqStrings(b.SelfCalls)
	b.SuperCalls = uniqStrings(b.SuperCalls)
	b.FuncCalls = uniqStrings(b.FuncCalls)
	b.Creates = uniqStrings(b.Creates)
	b.TypeChecks = uniqStrings(b.TypeChecks)
	b.FieldAssigns = uniqPairs(b.FieldAssigns)
	b.ClassCalls = uniqPairs(b.ClassCalls)
	b.FieldCalls = uniqPairs(b.FieldCalls)
	b.VarCalls = uniqPairs(b.VarCalls)
	b.ClassAttrs = uniqPairs(b.ClassAttrs)
	b.FieldTypes = uniqBindings(b.FieldTypes)
	b.Locals = uniqBindings(b.Locals)
}

func selfAttrsIn(e syntax.Expr) []string {
	var out []string
	syntax.Inspect(e, func(n syntax.Node) bool {
		if ex, ok := n.(syntax.Expr); ok {
			if attr, ok := syntax.SelfAttr(ex); ok {
				out = append(out, attr)
			}
		}
		return true
	})
	return out
}

func uniqStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}

func uniqPairs(in []Pair) []Pair {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].A != in[j].A {
			return in[i].A < in[j].A
		}
		return in[i].B < in[j].B
	})
	out := in[:1]
	for _, p := range in[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

func uniqBindings(in []Binding) []Binding {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool {
		if in[i].Name != in[j].Name {
			return in[i].Name < in[j].Name
		}
		return in[i].Class < in[j].Class
	})
	out := in[:1]
	for _, b := range in[1:] {
		if b != out[len(out)-1] {
			out = append(out, b)
		}
	}
	return out
}
