// Package index builds the entity forest and the name indices the resolvers
// read. An Index is immutable once built.
package index

import (
	"sort"

	"depgraph/internal/graph"
	"depgraph/internal/syntax"
)

// Index is the fully built entity forest plus lookup tables. It binds
// forest entities to the declarations they were built from.
type Index struct {
	Forest *graph.Forest

	modules map[graph.EntityID]*syntax.Module
	classes map[graph.EntityID]*syntax.ClassDef
	funcs   map[graph.EntityID]*syntax.FuncDef

	files      []graph.EntityID
	classOrder []graph.EntityID
	callables  []graph.EntityID

	classNames  map[string][]graph.EntityID
	functions   map[string][]graph.EntityID
	methods     map[graph.EntityID]map[string]graph.EntityID
	fields      map[graph.EntityID]map[string]graph.EntityID
	fieldTypes  map[graph.EntityID]map[string]string
	owner       map[graph.EntityID]graph.EntityID
	uniqueOwner map[string]graph.EntityID
	knownNames  map[string]struct{}
}

func newIndex(forest *graph.Forest) *Index {
	return &Index{
		Forest:      forest,
		modules:     make(map[graph.EntityID]*syntax.Module),
		classes:     make(map[graph.EntityID]*syntax.ClassDef),
		funcs:       make(map[graph.EntityID]*syntax.FuncDef),
		classNames:  make(map[string][]graph.EntityID),
		functions:   make(map[string][]graph.EntityID),
		methods:     make(map[graph.EntityID]map[string]graph.EntityID),
		fields:      make(map[graph.EntityID]map[string]graph.EntityID),
		fieldTypes:  make(map[graph.EntityID]map[string]string),
		owner:       make(map[graph.EntityID]graph.EntityID),
		uniqueOwner: make(map[string]graph.EntityID),
		knownNames:  make(map[string]struct{}),
	}
}

// finish derives the name tables from the forest once every entity and
// declaration binding is in place.
func (ix *Index) finish() {
	owners := make(map[string]map[graph.EntityID]struct{})
	for _, e := range ix.Forest.Entities() {
		switch e.Kind {
		case graph.KindFile:
			ix.files = append(ix.files, e.ID)
		case graph.KindClass:
			ix.classOrder = append(ix.classOrder, e.ID)
			ix.addClassName(e.Name, e.ID)
			if leaf := leafName(e.Name); leaf != e.Name {
				ix.addClassName(leaf, e.ID)
			}
		case graph.KindFunction:
			ix.callables = append(ix.callables, e.ID)
			if _, nested := ix.Forest.Ancestor(e.ID, graph.KindClass); !nested {
				ix.functions[e.Name] = append(ix.functions[e.Name], e.ID)
			}
		case graph.KindMethod, graph.KindConstructor:
			ix.callables = append(ix.callables, e.ID)
			cls, ok := ix.owner[e.ID]
			if !ok {
				continue
			}
			table := ix.methods[cls]
			if table == nil {
				table = make(map[string]graph.EntityID)
				ix.methods[cls] = table
			}
			if _, seen := table[e.Name]; !seen {
				table[e.Name] = e.ID
			}
			if owners[e.Name] == nil {
				owners[e.Name] = make(map[graph.EntityID]struct{})
			}
			owners[e.Name][cls] = struct{}{}
		}
	}
	for name, set := range owners {
		if len(set) != 1 {
			continue
		}
		for cls := range set {
			ix.uniqueOwner[name] = cls
		}
	}
}

func (ix *Index) addClassName(name string, id graph.EntityID) {
	for _, existing := range ix.classNames[name] {
		if existing == id {
			return
		}
	}
	ix.classNames[name] = append(ix.classNames[name], id)
	ix.knownNames[name] = struct{}{}
}

func (ix *Index) addField(cls graph.EntityID, name string, id graph.EntityID) {
	table := ix.fields[cls]
	if table == nil {
		table = make(map[string]graph.EntityID)
		ix.fields[cls] = table
	}
	if _, seen := table[name]; !seen {
		table[name] = id
	}
}

func (ix *Index) addFieldType(cls graph.EntityID, field, typeName string) {
	if typeName == "" {
		return
	}
	table := ix.fieldTypes[cls]
	if table == nil {
		table = make(map[string]string)
		ix.fieldTypes[cls] = table
	}
	if _, seen := table[field]; !seen {
		table[field] = typeName
	}
}

func leafName(dotted string) string {
	for i := len(dotted) - 1; i >= 0; i-- {
		if dotted[i] == '.' {
			return dotted[i+1:]
		}
	}
	return dotted
}

// Files returns file entities in forest order.
func (ix *Index) Files() []graph.EntityID { return ix.files }

// Classes returns class entities in forest order.
func (ix *Index) Classes() []graph.EntityID { return ix.classOrder }

// Callables returns every method, constructor and function in forest order.
func (ix *Index) Callables() []graph.EntityID { return ix.callables }

func (ix *Index) Module(file graph.EntityID) (*syntax.Module, bool) {
	m, ok := ix.modules[file]
	return m, ok
}

func (ix *Index) ClassDecl(id graph.EntityID) (*syntax.ClassDef, bool) {
	c, ok := ix.classes[id]
	return c, ok
}

func (ix *Index) FuncDecl(id graph.EntityID) (*syntax.FuncDef, bool) {
	f, ok := ix.funcs[id]
	return f, ok
}

// OwnerClass returns the class a method or constructor belongs to.
func (ix *Index) OwnerClass(callable graph.EntityID) (graph.EntityID, bool) {
	c, ok := ix.owner[callable]
	return c, ok
}

func (ix *Index) FileOf(id graph.EntityID) graph.EntityID {
	if e, ok := ix.Forest.Get(id); ok {
		return e.File
	}
	return ""
}

// Method looks up a method or constructor defined directly on cls.
func (ix *Index) Method(cls graph.EntityID, name string) (graph.EntityID, bool) {
	id, ok := ix.methods[cls][name]
	return id, ok
}

// MethodNames returns the sorted names defined directly on cls.
func (ix *Index) MethodNames(cls graph.EntityID) []string {
	names := make([]string, 0, len(ix.methods[cls]))
	for n := range ix.methods[cls] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Field looks up a field defined directly on cls.
func (ix *Index) Field(cls graph.EntityID, name string) (graph.EntityID, bool) {
	id, ok := ix.fields[cls][name]
	return id, ok
}

// DeclaredFieldTypes returns field name to annotated class name for cls.
// Callers must not mutate it.
func (ix *Index) DeclaredFieldTypes(cls graph.EntityID) map[string]string {
	return ix.fieldTypes[cls]
}

// classIDs returns every class registered under name (dotted or leaf).
func (ix *Index) classIDs(name string) []graph.EntityID {
	return ix.classNames[name]
}

// KnownClass reports whether name is a project-local class name.
func (ix *Index) KnownClass(name string) bool {
	_, ok := ix.knownNames[name]
	return ok
}

// KnownClassNames exposes the name set for fact extraction. Callers must not
// mutate it.
func (ix *Index) KnownClassNames() map[string]struct{} {
	return ix.knownNames
}

// ResolveClass picks a class for a name referenced from file. A single
// candidate wins, as do duplicate rows of one declaration (the first row is
// taken). Otherwise the only candidate in the referencing file wins. Anything
// else declines.
func (ix *Index) ResolveClass(name string, file graph.EntityID) (graph.EntityID, bool) {
	return ix.pick(ix.classIDs(name), file)
}

// ResolveFunction applies the ResolveClass policy to module-level functions.
func (ix *Index) ResolveFunction(name string, file graph.EntityID) (graph.EntityID, bool) {
	return ix.pick(ix.functions[name], file)
}

func (ix *Index) pick(ids []graph.EntityID, file graph.EntityID) (graph.EntityID, bool) {
	switch len(ids) {
	case 0:
		return "", false
	case 1:
		return ids[0], true
	}
	if ix.sameDeclaration(ids) {
		return ids[0], true
	}
	var local []graph.EntityID
	for _, id := range ids {
		if ix.FileOf(id) == file {
			local = append(local, id)
		}
	}
	if len(local) == 1 {
		return local[0], true
	}
	return "", false
}

// sameDeclaration reports whether every id is a row for one declaration:
// same file, same dotted name and same span.
func (ix *Index) sameDeclaration(ids []graph.EntityID) bool {
	first, ok := ix.Forest.Get(ids[0])
	if !ok {
		return false
	}
	for _, id := range ids[1:] {
		e, ok := ix.Forest.Get(id)
		if !ok || e.File != first.File || e.Name != first.Name || e.Span != first.Span {
			return false
		}
	}
	return true
}

// UniqueMethodOwner returns the class defining name when exactly one class does.
func (ix *Index) UniqueMethodOwner(name string) (graph.EntityID, bool) {
	c, ok := ix.uniqueOwner[name]
	return c, ok
}

// BaseNames returns the simple names of a class's declared bases.
func (ix *Index) BaseNames(cls graph.EntityID) []string {
	decl, ok := ix.classes[cls]
	if !ok {
		return nil
	}
	var names []string
	for _, b := range decl.Bases {
		if n := syntax.LeafName(b); n != "" {
			names = append(names, n)
		}
	}
	return names
}
