package storage

import (
	"context"

	"depgraph/internal/graph"
)

// EntityStore is the persisted form of an entity forest and its edges.
type EntityStore interface {
	EntityReader
	DepWriter
	Close() error
}

// EntityReader loads what a store-mode run binds against. Entities and
// contents are read-only.
type EntityReader interface {
	// LoadForest returns the forest and the source text of every file entity.
	LoadForest(ctx context.Context) (*graph.Forest, map[graph.EntityID]string, error)

	// LoadEdges returns the distinct (src, tgt, kind) triples in the deps table.
	LoadEdges(ctx context.Context) ([]graph.Edge, error)
}

// DepWriter appends edges and applies the field re-parenting correction.
type DepWriter interface {
	// AppendEdges inserts edges not already present and returns how many were added.
	AppendEdges(ctx context.Context, edges []graph.Edge) (int, error)

	// FixFieldParents moves fields parented under a method to the owning class.
	FixFieldParents(ctx context.Context) (*FieldFixReport, error)
}

// FieldFixReport counts what FixFieldParents changed. A second run reports zeros.
type FieldFixReport struct {
	Moved             int `json:"moved"`
	Merged            int `json:"merged"`
	Repointed         int `json:"repointed"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	SiblingUses       int `json:"sibling_uses"`
}

func (r *FieldFixReport) Changed() bool {
	return r.Moved+r.Merged+r.Repointed+r.DuplicatesRemoved > 0
}
