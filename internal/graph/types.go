package graph

import (
	"depgraph/internal/syntax"
)

type EntityID string

type Kind string

const (
	KindFile        Kind = "File"
	KindClass       Kind = "Class"
	KindMethod      Kind = "Method"
	KindConstructor Kind = "Constructor"
	KindField       Kind = "Field"
	KindFunction    Kind = "Function"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFile, KindClass, KindMethod, KindConstructor, KindField, KindFunction:
		return true
	}
	return false
}

// Callable reports whether entities of this kind have bodies that emit edges.
func (k Kind) Callable() bool {
	return k == KindMethod || k == KindConstructor || k == KindFunction
}

// Entity is a node of the ownership forest.
type Entity struct {
	ID       EntityID    `json:"id"`
	Kind     Kind        `json:"kind"`
	Name     string      `json:"name"`
	ParentID EntityID    `json:"parent_id,omitempty"`
	Span     syntax.Span `json:"span"`
	File     EntityID    `json:"file"`
}

type EdgeKind string

const (
	EdgeImport   EdgeKind = "Import"
	EdgeExtend   EdgeKind = "Extend"
	EdgeCreate   EdgeKind = "Create"
	EdgeCall     EdgeKind = "Call"
	EdgeUse      EdgeKind = "Use"
	EdgeOverride EdgeKind = "Override"
)

// EdgeKinds lists every kind in output order.
var EdgeKinds = []EdgeKind{EdgeImport, EdgeExtend, EdgeCreate, EdgeCall, EdgeUse, EdgeOverride}

func ParseEdgeKind(s string) (EdgeKind, bool) {
	for _, k := range EdgeKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Edge is a typed dependency. Edges are values so they can key a set.
type Edge struct {
	Src  EntityID `json:"src"`
	Tgt  EntityID `json:"tgt"`
	Kind EdgeKind `json:"kind"`
}

// EndpointsAllowed checks the source and target kinds an edge kind permits.
// classUse widens Use to accept Class targets (type-check uses).
func EndpointsAllowed(kind EdgeKind, src, tgt Kind, classUse bool) bool {
	switch kind {
	case EdgeImport:
		return src == KindFile && tgt == KindFile
	case EdgeExtend:
		return src == KindClass && tgt == KindClass
	case EdgeCreate:
		return src.Callable() && tgt == KindClass
	case EdgeCall:
		return src.Callable() && tgt.Callable()
	case EdgeUse:
		if src == KindField {
			return tgt == KindField
		}
		if !src.Callable() {
			return false
		}
		return tgt == KindField || (classUse && tgt == KindClass)
	case EdgeOverride:
		return src == KindMethod && tgt == KindMethod
	}
	return false
}
