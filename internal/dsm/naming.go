package dsm

import (
	"fmt"
	"sort"
	"strings"

	"depgraph/internal/canon"
	"depgraph/internal/graph"
)

// Triple is one edge with both endpoints rendered as names.
type Triple = canon.Triple

type Style string

const (
	// Canonical is the grammar documented in package canon.
	Canonical Style = "canonical"
	// Structured mirrors the ownership tree: file.py/C/methods/m (Method).
	Structured Style = "structured"
)

func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", Canonical:
		return Canonical, nil
	case Structured:
		return Structured, nil
	}
	return "", fmt.Errorf("unknown naming style %q", s)
}

// Namer renders entities of one forest as names. It is not safe for
// concurrent use.
type Namer struct {
	forest  *graph.Forest
	style   Style
	classes map[graph.EntityID]string
}

func NewNamer(forest *graph.Forest, style Style) *Namer {
	return &Namer{forest: forest, style: style, classes: make(map[graph.EntityID]string)}
}

// Name returns the rendered name of id, or false when the entity is unknown.
func (n *Namer) Name(id graph.EntityID) (string, bool) {
	e, ok := n.forest.Get(id)
	if !ok {
		return "", false
	}
	file, ok := n.forest.Get(e.File)
	if !ok {
		return "", false
	}
	path := file.Name

	switch e.Kind {
	case graph.KindFile:
		if n.style == Structured {
			return path + "/self (File)", true
		}
		return path + "/module (Module)", true
	case graph.KindFunction:
		if n.style == Structured {
			return path + "/functions/" + e.Name + " (Function)", true
		}
		return path + "/FUNCTIONS/" + e.Name + " (Function)", true
	case graph.KindClass:
		cls := n.classPath(e)
		if n.style == Structured {
			return path + "/" + strings.ReplaceAll(cls, ".", "/") + "/self (Class)", true
		}
		return path + "/CLASSES/" + cls + " (Class)", true
	}

	owner, ok := n.forest.Ancestor(id, graph.KindClass)
	if !ok {
		return path + "/" + e.Name + " (" + string(e.Kind) + ")", true
	}
	group := map[graph.Kind]string{
		graph.KindConstructor: "constructors",
		graph.KindMethod:      "methods",
		graph.KindField:       "fields",
	}[e.Kind]
	cls := n.classPath(owner)
	if n.style == Structured {
		return fmt.Sprintf("%s/%s/%s/%s (%s)", path, strings.ReplaceAll(cls, ".", "/"), group, e.Name, e.Kind), true
	}
	return fmt.Sprintf("%s/CLASSES/%s/%s/%s (%s)", path, cls, strings.ToUpper(group), e.Name, e.Kind), true
}

// classPath is the dotted nesting path of a class. Entities may carry either
// the leaf name or the already-dotted one.
func (n *Namer) classPath(e *graph.Entity) string {
	if p, ok := n.classes[e.ID]; ok {
		return p
	}
	p := e.Name
	if parent, ok := n.forest.Get(e.ParentID); ok && parent.Kind == graph.KindClass {
		leaf := e.Name
		if i := strings.LastIndex(leaf, "."); i >= 0 {
			leaf = leaf[i+1:]
		}
		p = n.classPath(parent) + "." + leaf
	}
	n.classes[e.ID] = p
	return p
}

// Triples renders edges whose kind is in kinds (all kinds when empty).
// Edges with an unknown endpoint are skipped. The result is sorted.
func Triples(edges []graph.Edge, namer *Namer, kinds []graph.EdgeKind) []Triple {
	keep := make(map[graph.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		keep[k] = true
	}
	seen := make(map[Triple]bool, len(edges))
	out := make([]Triple, 0, len(edges))
	for _, e := range edges {
		if len(keep) > 0 && !keep[e.Kind] {
			continue
		}
		src, ok := namer.Name(e.Src)
		if !ok {
			continue
		}
		tgt, ok := namer.Name(e.Tgt)
		if !ok {
			continue
		}
		t := Triple{Src: src, Tgt: tgt, Kind: string(e.Kind)}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	SortTriples(out)
	return out
}

// SortTriples orders triples by the variable order of their endpoints, then kind.
func SortTriples(ts []Triple) {
	sort.SliceStable(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.Src != b.Src {
			return Less(a.Src, b.Src)
		}
		if a.Tgt != b.Tgt {
			return Less(a.Tgt, b.Tgt)
		}
		return a.Kind < b.Kind
	})
}

// Key is the ordering key of a variable name.
type Key struct {
	FileGroup int
	File      string
	Rank      int
	Class     string
	Member    string
	Name      string
}

// KeyOf computes the key of a canonical name: package-relative files before
// root-level files, then file path, then kind rank, class and member.
func KeyOf(name string) Key {
	if strings.HasPrefix(name, "(External ") {
		return Key{FileGroup: 9, File: name, Rank: 9, Member: name, Name: name}
	}

	file := name
	if before, _, ok := strings.Cut(name, ".py/"); ok {
		file = before + ".py"
	}

	k := Key{FileGroup: 1, File: file, Rank: 8, Name: name}
	if strings.Contains(file, "/") {
		k.FileGroup = 0
	}

	switch {
	case strings.HasSuffix(name, "/module (Module)"):
		k.Rank = 0
	case strings.Contains(name, "/FUNCTIONS/"):
		k.Rank = 1
	case strings.Contains(name, "/CONSTRUCTORS/"):
		k.Rank = 3
	case strings.Contains(name, "/METHODS/"):
		k.Rank = 4
	case strings.Contains(name, "/FIELDS/"):
		k.Rank = 5
	case strings.Contains(name, "/CLASSES/") && strings.HasSuffix(name, " (Class)"):
		k.Rank = 2
	}

	if _, after, ok := strings.Cut(name, "/CLASSES/"); ok {
		cls, _, _ := strings.Cut(after, "/")
		k.Class = strings.TrimSuffix(cls, " (Class)")
	}
	leaf := name[strings.LastIndex(name, "/")+1:]
	k.Member, _, _ = strings.Cut(leaf, " (")
	return k
}

// Less reports whether variable a sorts before b. Full names break ties so
// the order is total.
func Less(a, b string) bool {
	ka, kb := KeyOf(a), KeyOf(b)
	switch {
	case ka.FileGroup != kb.FileGroup:
		return ka.FileGroup < kb.FileGroup
	case ka.File != kb.File:
		return ka.File < kb.File
	case ka.Rank != kb.Rank:
		return ka.Rank < kb.Rank
	case ka.Class != kb.Class:
		return ka.Class < kb.Class
	case ka.Member != kb.Member:
		return ka.Member < kb.Member
	}
	return ka.Name < kb.Name
}
