package extractor

import (
	"strings"

	"depgraph/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonExtractor converts tree-sitter Python trees into syntax modules.
type PythonExtractor struct{}

func (p *PythonExtractor) GetLanguage() *sitter.Language {
	return python.GetLanguage()
}

func (p *PythonExtractor) Extensions() []string {
	return []string{".py"}
}

func (p *PythonExtractor) Convert(root *sitter.Node, sourceCode []byte, path string) (*syntax.Module, error) {
	c := &pyConverter{
		src: sourceCode,
		mod: &syntax.Module{
			Path: path,
			Span: span(root),
		},
	}
	c.moduleBlock(root)
	return c.mod, nil
}

type pyConverter struct {
	src []byte
	mod *syntax.Module
}

func span(n *sitter.Node) syntax.Span {
	return syntax.Span{StartRow: int(n.StartPoint().Row), EndRow: int(n.EndPoint().Row)}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func row(n *sitter.Node) int {
	return int(n.StartPoint().Row)
}

func (c *pyConverter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// moduleBlock handles module-level statements, descending into compound
// statements (try/if guards) so guarded definitions and imports are kept.
func (c *pyConverter) moduleBlock(n *sitter.Node) {
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "class_definition":
			c.mod.Classes = append(c.mod.Classes, c.classDef(child, nil))
		case "function_definition":
			c.mod.Functions = append(c.mod.Functions, c.funcDef(child, nil))
		case "decorated_definition":
			decorators, def := c.decorated(child)
			if def == nil {
				continue
			}
			switch def.Type() {
			case "class_definition":
				c.mod.Classes = append(c.mod.Classes, c.classDef(def, decorators))
			case "function_definition":
				c.mod.Functions = append(c.mod.Functions, c.funcDef(def, decorators))
			}
		case "import_statement", "import_from_statement", "future_import_statement":
			c.importStmt(child)
		case "block", "if_statement", "try_statement", "with_statement", "else_clause",
			"elif_clause", "except_clause", "finally_clause":
			c.moduleBlock(child)
		}
	}
}

func (c *pyConverter) decorated(n *sitter.Node) ([]syntax.Expr, *sitter.Node) {
	var decorators []syntax.Expr
	for _, child := range namedChildren(n) {
		if child.Type() != "decorator" {
			continue
		}
		kids := namedChildren(child)
		if len(kids) > 0 {
			decorators = append(decorators, c.expr(kids[0]))
		}
	}
	return decorators, n.ChildByFieldName("definition")
}

func (c *pyConverter) classDef(n *sitter.Node, decorators []syntax.Expr) *syntax.ClassDef {
	cls := &syntax.ClassDef{
		Decorators: decorators,
		Span:       span(n),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		cls.Name = c.text(name)
	}
	if supers := n.ChildByFieldName("superclasses"); supers != nil {
		for _, arg := range namedChildren(supers) {
			if arg.Type() == "keyword_argument" {
				cls.Keywords = append(cls.Keywords, c.keyword(arg))
				continue
			}
			cls.Bases = append(cls.Bases, c.expr(arg))
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		c.classBody(cls, body)
	}
	return cls
}

func (c *pyConverter) classBody(cls *syntax.ClassDef, body *sitter.Node) {
	for _, child := range namedChildren(body) {
		switch child.Type() {
		case "function_definition":
			cls.Methods = append(cls.Methods, c.funcDef(child, nil))
		case "class_definition":
			cls.Classes = append(cls.Classes, c.classDef(child, nil))
		case "decorated_definition":
			decorators, def := c.decorated(child)
			if def == nil {
				continue
			}
			switch def.Type() {
			case "function_definition":
				cls.Methods = append(cls.Methods, c.funcDef(def, decorators))
			case "class_definition":
				cls.Classes = append(cls.Classes, c.classDef(def, decorators))
			}
		case "expression_statement":
			for _, inner := range namedChildren(child) {
				if inner.Type() == "assignment" {
					cls.Fields = append(cls.Fields, c.fieldDecls(inner)...)
				}
			}
		case "import_statement", "import_from_statement":
			c.importStmt(child)
		}
	}
}

func (c *pyConverter) fieldDecls(n *sitter.Node) []syntax.FieldDecl {
	left := n.ChildByFieldName("left")
	if left == nil {
		return nil
	}
	decl := syntax.FieldDecl{Row: row(n)}
	if t := n.ChildByFieldName("type"); t != nil {
		decl.Annotation = c.annotation(t)
	}
	if right := n.ChildByFieldName("right"); right != nil {
		decl.Value = c.expr(right)
	}
	switch left.Type() {
	case "identifier":
		decl.Name = c.text(left)
		return []syntax.FieldDecl{decl}
	case "pattern_list", "tuple_pattern":
		var out []syntax.FieldDecl
		for _, el := range namedChildren(left) {
			if el.Type() == "identifier" {
				out = append(out, syntax.FieldDecl{Name: c.text(el), Row: decl.Row})
			}
		}
		return out
	}
	return nil
}

func (c *pyConverter) funcDef(n *sitter.Node, decorators []syntax.Expr) *syntax.FuncDef {
	fn := &syntax.FuncDef{
		Decorators: decorators,
		Span:       span(n),
	}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = c.text(name)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Params = c.params(params)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Body = c.block(body)
	}
	return fn
}

func (c *pyConverter) params(n *sitter.Node) []syntax.Param {
	var out []syntax.Param
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "identifier":
			out = append(out, syntax.Param{Name: c.text(child)})
		case "typed_parameter":
			p := syntax.Param{}
			for _, k := range namedChildren(child) {
				if k.Type() == "identifier" {
					p.Name = c.text(k)
					break
				}
				if k.Type() == "list_splat_pattern" || k.Type() == "dictionary_splat_pattern" {
					p.Name = c.splatName(k)
					break
				}
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Annotation = c.annotation(t)
			}
			out = append(out, p)
		case "default_parameter", "typed_default_parameter":
			p := syntax.Param{}
			if name := child.ChildByFieldName("name"); name != nil {
				p.Name = c.text(name)
			}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Annotation = c.annotation(t)
			}
			out = append(out, p)
		case "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, syntax.Param{Name: c.splatName(child)})
		}
	}
	return out
}

func (c *pyConverter) splatName(n *sitter.Node) string {
	for _, k := range namedChildren(n) {
		if k.Type() == "identifier" {
			return c.text(k)
		}
	}
	return ""
}

// annotation reduces a type annotation to a simple class name: `Ticket`,
// `models.Ticket`, `"Ticket"` and `Optional[Ticket]` all yield "Ticket".
func (c *pyConverter) annotation(n *sitter.Node) string {
	if n.Type() == "type" {
		kids := namedChildren(n)
		if len(kids) == 0 {
			return ""
		}
		n = kids[0]
	}
	switch n.Type() {
	case "identifier":
		return c.text(n)
	case "attribute":
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			return c.text(attr)
		}
	case "string":
		s := strings.Trim(c.text(n), `"'`)
		if i := strings.LastIndex(s, "."); i >= 0 {
			s = s[i+1:]
		}
		return s
	case "subscript", "generic_type":
		kids := namedChildren(n)
		if len(kids) >= 2 && c.text(kids[0]) == "Optional" {
			inner := kids[1]
			if inner.Type() == "type_parameter" {
				if args := namedChildren(inner); len(args) > 0 {
					inner = args[0]
				}
			}
			return c.annotation(inner)
		}
	}
	return ""
}

func (c *pyConverter) importStmt(n *sitter.Node) {
	imp := syntax.Import{Row: row(n)}
	switch n.Type() {
	case "import_statement":
		for _, child := range namedChildren(n) {
			name := c.importName(child)
			if name != "" {
				c.mod.Imports = append(c.mod.Imports, syntax.Import{Module: name, Row: imp.Row})
			}
		}
		return
	case "future_import_statement":
		return
	}

	imp.From = true
	if mod := n.ChildByFieldName("module_name"); mod != nil {
		if mod.Type() == "relative_import" {
			for _, k := range namedChildren(mod) {
				switch k.Type() {
				case "import_prefix":
					imp.Level = strings.Count(c.text(k), ".")
				case "dotted_name":
					imp.Module = c.text(k)
				}
			}
		} else {
			imp.Module = c.text(mod)
		}
	}
	for _, child := range namedChildren(n) {
		if sameNode(child, n.ChildByFieldName("module_name")) {
			continue
		}
		switch child.Type() {
		case "dotted_name", "aliased_import":
			imp.Names = append(imp.Names, c.importName(child))
		case "wildcard_import":
			imp.Names = append(imp.Names, "*")
		}
	}
	c.mod.Imports = append(c.mod.Imports, imp)
}

func (c *pyConverter) importName(n *sitter.Node) string {
	switch n.Type() {
	case "dotted_name":
		return c.text(n)
	case "aliased_import":
		if name := n.ChildByFieldName("name"); name != nil {
			return c.text(name)
		}
	}
	return ""
}

func (c *pyConverter) keyword(n *sitter.Node) syntax.Keyword {
	kw := syntax.Keyword{}
	if name := n.ChildByFieldName("name"); name != nil {
		kw.Name = c.text(name)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		kw.Value = c.expr(value)
	}
	return kw
}

func (c *pyConverter) block(n *sitter.Node) []syntax.Stmt {
	var out []syntax.Stmt
	for _, child := range namedChildren(n) {
		if s := c.stmt(child); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *pyConverter) stmt(n *sitter.Node) syntax.Stmt {
	switch n.Type() {
	case "expression_statement":
		kids := namedChildren(n)
		if len(kids) == 1 {
			switch kids[0].Type() {
			case "assignment":
				return c.assign(kids[0])
			case "augmented_assignment":
				a := &syntax.Assign{Augmented: true, Row: row(n)}
				if left := kids[0].ChildByFieldName("left"); left != nil {
					a.Targets = []syntax.Expr{c.expr(left)}
				}
				if right := kids[0].ChildByFieldName("right"); right != nil {
					a.Value = c.expr(right)
				}
				return a
			}
			return &syntax.ExprStmt{X: c.expr(kids[0]), Row: row(n)}
		}
		return &syntax.ExprStmt{X: c.seq(kids), Row: row(n)}
	case "return_statement":
		r := &syntax.Return{Row: row(n)}
		if kids := namedChildren(n); len(kids) > 0 {
			r.Value = c.expr(kids[0])
		}
		return r
	case "raise_statement":
		r := &syntax.Raise{Row: row(n)}
		cause := n.ChildByFieldName("cause")
		for _, k := range namedChildren(n) {
			if sameNode(k, cause) {
				continue
			}
			r.Exc = c.expr(k)
			break
		}
		return r
	case "pass_statement":
		return &syntax.Pass{Row: row(n)}
	case "import_statement", "import_from_statement", "future_import_statement":
		c.importStmt(n)
		return nil
	case "decorated_definition":
		decorators, def := c.decorated(n)
		if def == nil {
			return nil
		}
		s := c.compound(def)
		s.Exprs = append(decorators, s.Exprs...)
		return s
	}
	return c.compound(n)
}

func (c *pyConverter) assign(n *sitter.Node) *syntax.Assign {
	a := &syntax.Assign{Row: row(n)}
	if t := n.ChildByFieldName("type"); t != nil {
		a.Annotation = c.annotation(t)
	}
	// a = b = value nests assignments on the right.
	for cur := n; cur != nil; {
		if left := cur.ChildByFieldName("left"); left != nil {
			a.Targets = append(a.Targets, c.expr(left))
		}
		right := cur.ChildByFieldName("right")
		if right != nil && right.Type() == "assignment" {
			cur = right
			continue
		}
		if right != nil {
			a.Value = c.expr(right)
		}
		cur = nil
	}
	return a
}

// compound flattens any block-carrying statement. Clause children (elif, else,
// except, finally, case, with) are merged into the parent.
func (c *pyConverter) compound(n *sitter.Node) *syntax.Compound {
	s := &syntax.Compound{Kind: n.Type(), Row: row(n)}
	c.collect(s, n)
	return s
}

func (c *pyConverter) collect(s *syntax.Compound, n *sitter.Node) {
	for _, child := range namedChildren(n) {
		t := child.Type()
		switch {
		case t == "block":
			s.Bodies = append(s.Bodies, c.block(child))
		case strings.HasSuffix(t, "_clause"):
			c.collect(s, child)
		case t == "function_definition" || t == "class_definition":
			s.Bodies = append(s.Bodies, []syntax.Stmt{c.compound(child)})
		case t == "identifier" && (n.Type() == "function_definition" || n.Type() == "class_definition"):
			// the definition's own name
		default:
			s.Exprs = append(s.Exprs, c.expr(child))
		}
	}
}

func (c *pyConverter) seq(kids []*sitter.Node) *syntax.Seq {
	s := &syntax.Seq{}
	for _, k := range kids {
		s.Elts = append(s.Elts, c.expr(k))
	}
	return s
}

func (c *pyConverter) expr(n *sitter.Node) syntax.Expr {
	switch n.Type() {
	case "identifier":
		return &syntax.Name{ID: c.text(n)}
	case "attribute":
		a := &syntax.Attribute{}
		if obj := n.ChildByFieldName("object"); obj != nil {
			a.Value = c.expr(obj)
		} else {
			a.Value = &syntax.Other{Kind: "missing"}
		}
		if attr := n.ChildByFieldName("attribute"); attr != nil {
			a.Attr = c.text(attr)
		}
		return a
	case "call":
		call := &syntax.Call{}
		if fn := n.ChildByFieldName("function"); fn != nil {
			call.Func = c.expr(fn)
		} else {
			call.Func = &syntax.Other{Kind: "missing"}
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			if args.Type() != "argument_list" {
				call.Args = append(call.Args, c.expr(args))
				return call
			}
			for _, arg := range namedChildren(args) {
				if arg.Type() == "keyword_argument" {
					call.Keywords = append(call.Keywords, c.keyword(arg))
					continue
				}
				call.Args = append(call.Args, c.expr(arg))
			}
		}
		return call
	case "parenthesized_expression":
		if kids := namedChildren(n); len(kids) == 1 {
			return c.expr(kids[0])
		}
	case "tuple", "list", "expression_list", "pattern_list", "tuple_pattern", "list_pattern":
		return c.seq(namedChildren(n))
	case "string":
		var interps []syntax.Expr
		for _, k := range namedChildren(n) {
			if k.Type() == "interpolation" {
				for _, e := range namedChildren(k) {
					interps = append(interps, c.expr(e))
				}
			}
		}
		if len(interps) > 0 {
			return &syntax.Other{Kind: "fstring", Children: interps}
		}
		return &syntax.Const{Kind: syntax.ConstString, Value: c.text(n)}
	case "integer", "float":
		return &syntax.Const{Kind: syntax.ConstNumber, Value: c.text(n)}
	case "ellipsis":
		return &syntax.Const{Kind: syntax.ConstEllipsis, Value: "..."}
	case "true", "false", "none":
		return &syntax.Const{Kind: syntax.ConstOther, Value: c.text(n)}
	}

	o := &syntax.Other{Kind: n.Type()}
	for _, k := range namedChildren(n) {
		o.Children = append(o.Children, c.expr(k))
	}
	return o
}
