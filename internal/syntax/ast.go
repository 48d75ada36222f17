// Package syntax is the source tree the analysis engine consumes. It models only
// what dependency extraction needs from a Python module: declarations, assignments,
// calls, attribute access and raise statements. Everything else collapses into
// Compound statements and Other expressions so walkers still reach nested nodes.
package syntax

import "fmt"

// Span is a zero-based, inclusive row range.
type Span struct {
	StartRow int `json:"start_row"`
	EndRow   int `json:"end_row"`
}

func (s Span) Valid() bool {
	return s.StartRow >= 0 && s.EndRow >= s.StartRow
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return o.StartRow >= s.StartRow && o.EndRow <= s.EndRow
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.StartRow, s.EndRow)
}

// Module is one parsed source file. Path is project-relative with forward slashes.
type Module struct {
	Path      string
	Span      Span
	Imports   []Import
	Classes   []*ClassDef
	Functions []*FuncDef
}

// Import is a single import statement. Level counts leading dots of a relative
// import. For `import a.b` Module is "a.b" and Names is empty.
type Import struct {
	Module string
	Names  []string
	Level  int
	From   bool
	Row    int
}

type ClassDef struct {
	Name       string
	Bases      []Expr
	Keywords   []Keyword
	Decorators []Expr
	Fields     []FieldDecl
	Methods    []*FuncDef
	Classes    []*ClassDef
	Span       Span
}

// FieldDecl is a class-level assignment or annotation.
type FieldDecl struct {
	Name       string
	Annotation string
	Value      Expr
	Row        int
}

type Param struct {
	Name       string
	Annotation string
}

type FuncDef struct {
	Name       string
	Params     []Param
	Decorators []Expr
	Body       []Stmt
	Span       Span
}

// HasDecorator matches a decorator by its trailing name, so `abc.abstractmethod`
// and `abstractmethod` both match "abstractmethod".
func (f *FuncDef) HasDecorator(name string) bool {
	for _, d := range f.Decorators {
		if c, ok := d.(*Call); ok {
			d = c.Func
		}
		if LeafName(d) == name {
			return true
		}
	}
	return false
}

type Node interface {
	node()
}

type Stmt interface {
	Node
	stmt()
}

type Expr interface {
	Node
	expr()
}

// Assign covers plain, augmented and annotated assignment.
type Assign struct {
	Targets    []Expr
	Value      Expr
	Annotation string
	Augmented  bool
	Row        int
}

type ExprStmt struct {
	X   Expr
	Row int
}

type Raise struct {
	Exc Expr
	Row int
}

type Return struct {
	Value Expr
	Row   int
}

type Pass struct {
	Row int
}

// Compound is any statement with nested blocks (if, for, while, try, with,
// match, nested def). Exprs holds its header expressions.
type Compound struct {
	Kind   string
	Exprs  []Expr
	Bodies [][]Stmt
	Row    int
}

type Name struct {
	ID string
}

type Attribute struct {
	Value Expr
	Attr  string
}

type Keyword struct {
	Name  string
	Value Expr
}

type Call struct {
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

type ConstKind int

const (
	ConstOther ConstKind = iota
	ConstString
	ConstNumber
	ConstEllipsis
)

type Const struct {
	Kind  ConstKind
	Value string
}

// Seq is a tuple or list literal.
type Seq struct {
	Elts []Expr
}

type Other struct {
	Kind     string
	Children []Expr
}

func (*Assign) node()    {}
func (*ExprStmt) node()  {}
func (*Raise) node()     {}
func (*Return) node()    {}
func (*Pass) node()      {}
func (*Compound) node()  {}
func (*Name) node()      {}
func (*Attribute) node() {}
func (*Call) node()      {}
func (*Const) node()     {}
func (*Seq) node()       {}
func (*Other) node()     {}

func (*Assign) stmt()   {}
func (*ExprStmt) stmt() {}
func (*Raise) stmt()    {}
func (*Return) stmt()   {}
func (*Pass) stmt()     {}
func (*Compound) stmt() {}

func (*Name) expr()      {}
func (*Attribute) expr() {}
func (*Call) expr()      {}
func (*Const) expr()     {}
func (*Seq) expr()       {}
func (*Other) expr()     {}

// LeafName returns the identifier of a Name or the attribute of an Attribute.
func LeafName(e Expr) string {
	switch v := e.(type) {
	case *Name:
		return v.ID
	case *Attribute:
		return v.Attr
	}
	return ""
}

// SelfAttr reports whether e is `self.<attr>` and returns attr.
func SelfAttr(e Expr) (string, bool) {
	a, ok := e.(*Attribute)
	if !ok {
		return "", false
	}
	n, ok := a.Value.(*Name)
	if !ok || n.ID != "self" {
		return "", false
	}
	return a.Attr, true
}

// FlattenTargets expands tuple and list targets (`a, (b, c) = ...`) into
// their leaves.
func FlattenTargets(targets []Expr) []Expr {
	var out []Expr
	for _, t := range targets {
		if s, ok := t.(*Seq); ok {
			out = append(out, FlattenTargets(s.Elts)...)
			continue
		}
		out = append(out, t)
	}
	return out
}
