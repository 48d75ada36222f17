package resolver

import (
	"path"
	"strings"

	"depgraph/internal/graph"
	"depgraph/internal/index"
	"depgraph/internal/syntax"
)

// moduleFiles maps project files to the module names that reach them.
type moduleFiles struct {
	byPath map[string]graph.EntityID
	paths  []string
}

func newModuleFiles(ix *index.Index) *moduleFiles {
	m := &moduleFiles{byPath: make(map[string]graph.EntityID)}
	for _, id := range ix.Files() {
		e, _ := ix.Forest.Get(id)
		m.byPath[e.Name] = id
		m.paths = append(m.paths, e.Name)
	}
	return m
}

// lookup maps a dotted module under dir to a.b.py or a/b/__init__.py. When
// dir is empty and nothing matches at the root, a unique suffix match is
// accepted so projects nested below the scan root still link.
func (m *moduleFiles) lookup(dir, module string) (graph.EntityID, bool) {
	rel := strings.ReplaceAll(module, ".", "/")
	if dir != "" {
		if rel == "" {
			rel = dir
		} else {
			rel = dir + "/" + rel
		}
	}
	if rel == "" {
		return "", false
	}
	for _, cand := range []string{rel + ".py", rel + "/__init__.py"} {
		if id, ok := m.byPath[cand]; ok {
			return id, true
		}
	}
	if dir != "" {
		return "", false
	}
	for _, suffix := range []string{"/" + rel + ".py", "/" + rel + "/__init__.py"} {
		var found graph.EntityID
		n := 0
		for _, p := range m.paths {
			if strings.HasSuffix(p, suffix) {
				found = m.byPath[p]
				n++
			}
		}
		if n == 1 {
			return found, true
		}
	}
	return "", false
}

// baseDir returns the package a relative import of the given level starts from.
func baseDir(filePath string, level int) (string, bool) {
	dir := path.Dir(filePath)
	if dir == "." {
		dir = ""
	}
	for i := 1; i < level; i++ {
		if dir == "" {
			return "", false
		}
		dir = path.Dir(dir)
		if dir == "." {
			dir = ""
		}
	}
	return dir, true
}

// importTargets resolves one import statement of file to project files.
// `from pkg import sub` prefers the submodule pkg/sub.py over pkg itself.
func (m *moduleFiles) importTargets(filePath string, imp syntax.Import) []graph.EntityID {
	dir := ""
	if imp.Level > 0 {
		d, ok := baseDir(filePath, imp.Level)
		if !ok {
			return nil
		}
		dir = d
	}
	if !imp.From {
		if id, ok := m.lookup(dir, imp.Module); ok {
			return []graph.EntityID{id}
		}
		return nil
	}

	var out []graph.EntityID
	baseResolved := false
	for _, name := range imp.Names {
		if name != "" && name != "*" {
			sub := name
			if imp.Module != "" {
				sub = imp.Module + "." + name
			}
			if id, ok := m.lookup(dir, sub); ok {
				out = append(out, id)
				continue
			}
		}
		if !baseResolved {
			baseResolved = true
			if id, ok := m.lookup(dir, imp.Module); ok {
				out = append(out, id)
			}
		}
	}
	if len(imp.Names) == 0 {
		if id, ok := m.lookup(dir, imp.Module); ok {
			out = append(out, id)
		}
	}
	return out
}

// ImportEdges resolves every import of every file. Self-imports are dropped.
func ImportEdges(ix *index.Index) []graph.Edge {
	files := newModuleFiles(ix)
	var out []graph.Edge
	for _, id := range ix.Files() {
		mod, ok := ix.Module(id)
		if !ok {
			continue
		}
		e, _ := ix.Forest.Get(id)
		for _, imp := range mod.Imports {
			for _, tgt := range files.importTargets(e.Name, imp) {
				if tgt != id {
					out = append(out, graph.Edge{Src: id, Tgt: tgt, Kind: graph.EdgeImport})
				}
			}
		}
	}
	return out
}
