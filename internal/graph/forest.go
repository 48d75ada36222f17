package graph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidEntity reports a malformed entity record (missing name, bad span,
// dangling parent). It is a contract violation of the producer, not an
// ambiguity.
var ErrInvalidEntity = errors.New("invalid entity")

// Forest is the entity ownership forest. It is built once per run and read
// concurrently afterwards; it has no locks.
type Forest struct {
	entities map[EntityID]*Entity
	order    []EntityID
	children map[EntityID][]EntityID
	byName   map[Kind]map[string][]EntityID
}

func NewForest() *Forest {
	return &Forest{
		entities: make(map[EntityID]*Entity),
		children: make(map[EntityID][]EntityID),
		byName:   make(map[Kind]map[string][]EntityID),
	}
}

// Add validates and inserts an entity. Parents must be added before children.
// File is derived from the parent chain and overwritten.
func (f *Forest) Add(e *Entity) error {
	if e == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidEntity)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: %s %q has no id", ErrInvalidEntity, e.Kind, e.Name)
	}
	if _, dup := f.entities[e.ID]; dup {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidEntity, e.ID)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidEntity, e.ID, e.Kind)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: %s %s has no name", ErrInvalidEntity, e.Kind, e.ID)
	}
	if !e.Span.Valid() {
		return fmt.Errorf("%w: %s %q has bad span %s", ErrInvalidEntity, e.Kind, e.Name, e.Span)
	}

	if e.Kind == KindFile {
		if e.ParentID != "" {
			return fmt.Errorf("%w: file %q has a parent", ErrInvalidEntity, e.Name)
		}
		e.File = e.ID
	} else {
		parent, ok := f.entities[e.ParentID]
		if !ok {
			return fmt.Errorf("%w: %s %q has unknown parent %q", ErrInvalidEntity, e.Kind, e.Name, e.ParentID)
		}
		e.File = parent.File
	}

	f.entities[e.ID] = e
	f.order = append(f.order, e.ID)
	if e.ParentID != "" {
		f.children[e.ParentID] = append(f.children[e.ParentID], e.ID)
	}
	names := f.byName[e.Kind]
	if names == nil {
		names = make(map[string][]EntityID)
		f.byName[e.Kind] = names
	}
	names[e.Name] = append(names[e.Name], e.ID)
	return nil
}

// AddAll inserts records in an order that places parents first. Records whose
// parent never appears fail with ErrInvalidEntity.
func (f *Forest) AddAll(records []*Entity) error {
	pending := make(map[EntityID][]*Entity)
	var ready []*Entity
	for _, r := range records {
		if r.Kind == KindFile || r.ParentID == "" {
			ready = append(ready, r)
			continue
		}
		pending[r.ParentID] = append(pending[r.ParentID], r)
	}
	for len(ready) > 0 {
		r := ready[0]
		ready = ready[1:]
		if err := f.Add(r); err != nil {
			return err
		}
		ready = append(ready, pending[r.ID]...)
		delete(pending, r.ID)
	}
	if len(pending) > 0 {
		var orphans []string
		for _, rs := range pending {
			for _, r := range rs {
				orphans = append(orphans, fmt.Sprintf("%s %q (%s)", r.Kind, r.Name, r.ID))
			}
		}
		sort.Strings(orphans)
		return fmt.Errorf("%w: unreachable from any file: %s", ErrInvalidEntity, orphans[0])
	}
	return nil
}

func (f *Forest) Get(id EntityID) (*Entity, bool) {
	e, ok := f.entities[id]
	return e, ok
}

func (f *Forest) Len() int {
	return len(f.order)
}

// Entities returns all entities in insertion order.
func (f *Forest) Entities() []*Entity {
	out := make([]*Entity, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.entities[id])
	}
	return out
}

func (f *Forest) Children(id EntityID) []*Entity {
	ids := f.children[id]
	out := make([]*Entity, 0, len(ids))
	for _, c := range ids {
		out = append(out, f.entities[c])
	}
	return out
}

// ByName is multi-valued: names are not unique.
func (f *Forest) ByName(kind Kind, name string) []EntityID {
	return f.byName[kind][name]
}

// Ancestor returns the nearest ancestor of the given kind.
func (f *Forest) Ancestor(id EntityID, kind Kind) (*Entity, bool) {
	e, ok := f.entities[id]
	for hops := 0; ok && hops <= len(f.order); hops++ {
		p, found := f.entities[e.ParentID]
		if !found {
			return nil, false
		}
		if p.Kind == kind {
			return p, true
		}
		e = p
	}
	return nil, false
}

// Validate checks that every non-file entity has a parent and that each
// parent chain reaches a file in finitely many hops.
func (f *Forest) Validate() error {
	for _, id := range f.order {
		e := f.entities[id]
		cur := e
		for hops := 0; cur.Kind != KindFile; hops++ {
			if hops > len(f.order) {
				return fmt.Errorf("%w: %s %q is on a parent cycle", ErrInvalidEntity, e.Kind, e.Name)
			}
			p, ok := f.entities[cur.ParentID]
			if !ok {
				return fmt.Errorf("%w: %s %q has unknown parent %q", ErrInvalidEntity, cur.Kind, cur.Name, cur.ParentID)
			}
			cur = p
		}
	}
	return nil
}
