package syntax

// Inspect traverses n depth-first in source order, calling fn for each node.
// Returning false from fn skips the node's children.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Assign:
		for _, t := range v.Targets {
			Inspect(t, fn)
		}
		if v.Value != nil {
			Inspect(v.Value, fn)
		}
	case *ExprStmt:
		Inspect(v.X, fn)
	case *Raise:
		if v.Exc != nil {
			Inspect(v.Exc, fn)
		}
	case *Return:
		if v.Value != nil {
			Inspect(v.Value, fn)
		}
	case *Compound:
		for _, e := range v.Exprs {
			Inspect(e, fn)
		}
		for _, body := range v.Bodies {
			InspectBody(body, fn)
		}
	case *Attribute:
		Inspect(v.Value, fn)
	case *Call:
		Inspect(v.Func, fn)
		for _, a := range v.Args {
			Inspect(a, fn)
		}
		for _, k := range v.Keywords {
			Inspect(k.Value, fn)
		}
	case *Seq:
		for _, e := range v.Elts {
			Inspect(e, fn)
		}
	case *Other:
		for _, e := range v.Children {
			Inspect(e, fn)
		}
	}
}

// InspectBody runs Inspect over every statement of a block.
func InspectBody(body []Stmt, fn func(Node) bool) {
	for _, s := range body {
		Inspect(s, fn)
	}
}
