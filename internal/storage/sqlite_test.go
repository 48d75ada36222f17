package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"depgraph/internal/graph"
	"depgraph/internal/syntax"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "deps.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleGraph(t *testing.T) *graph.Graph {
	t.Helper()
	f := graph.NewForest()
	require.NoError(t, f.AddAll([]*graph.Entity{
		{ID: "a.py", Kind: graph.KindFile, Name: "a.py", Span: syntax.Span{StartRow: 0, EndRow: 9}},
		{ID: "a.py::A", Kind: graph.KindClass, Name: "A", ParentID: "a.py", Span: syntax.Span{StartRow: 0, EndRow: 5}},
		{ID: "a.py::A.m()", Kind: graph.KindMethod, Name: "m", ParentID: "a.py::A", Span: syntax.Span{StartRow: 1, EndRow: 2}},
		{ID: "a.py::A#x", Kind: graph.KindField, Name: "x", ParentID: "a.py::A", Span: syntax.Span{StartRow: 2, EndRow: 2}},
	}))
	g := graph.NewGraph(f)
	_, err := g.AddEdge(graph.Edge{Src: "a.py::A.m()", Tgt: "a.py::A#x", Kind: graph.EdgeUse})
	require.NoError(t, err)
	return g
}

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src := "class A:\n    def m(self):\n        self.x = 1\n"
	require.NoError(t, store.SaveGraph(ctx, sampleGraph(t), map[graph.EntityID]string{"a.py": src}))

	forest, contents, err := store.LoadForest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, forest.Len())
	require.NoError(t, forest.Validate())

	files := forest.ByName(graph.KindFile, "a.py")
	require.Len(t, files, 1)
	assert.Equal(t, src, contents[files[0]])

	fields := forest.ByName(graph.KindField, "x")
	require.Len(t, fields, 1)
	owner, ok := forest.Ancestor(fields[0], graph.KindClass)
	require.True(t, ok)
	assert.Equal(t, "A", owner.Name)

	edges, err := store.LoadEdges(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, fields[0], edges[0].Tgt)
	assert.Equal(t, graph.EdgeUse, edges[0].Kind)

	t.Run("Snapshot replaces previous contents", func(t *testing.T) {
		empty := graph.NewGraph(graph.NewForest())
		require.NoError(t, store.SaveGraph(ctx, empty, nil))
		forest, contents, err := store.LoadForest(ctx)
		require.NoError(t, err)
		assert.Zero(t, forest.Len())
		assert.Empty(t, contents)
	})
}

func TestSQLiteStore_AppendEdgesSkipsPresent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveGraph(ctx, sampleGraph(t), nil))

	forest, _, err := store.LoadForest(ctx)
	require.NoError(t, err)
	existing, err := store.LoadEdges(ctx)
	require.NoError(t, err)

	cls := forest.ByName(graph.KindClass, "A")[0]
	method := forest.ByName(graph.KindMethod, "m")[0]
	extra := graph.Edge{Src: method, Tgt: cls, Kind: graph.EdgeCreate}

	added, err := store.AppendEdges(ctx, append(existing, extra))
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = store.AppendEdges(ctx, append(existing, extra))
	require.NoError(t, err)
	assert.Zero(t, added)

	all, err := store.LoadEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func insertEntity(t *testing.T, s *SQLiteStore, id, parent byte, name, kind string) {
	t.Helper()
	var parentID []byte
	if parent != 0 {
		parentID = []byte{parent}
	}
	_, err := s.db.Exec(`INSERT INTO entities (id, parent_id, name, kind, start_row, end_row) VALUES (?, ?, ?, ?, 0, 10)`,
		[]byte{id}, parentID, name, kind)
	require.NoError(t, err)
}

func insertDep(t *testing.T, s *SQLiteStore, src, tgt byte, kind string) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO deps (src, tgt, kind, row) VALUES (?, ?, ?, 0)`, []byte{src}, []byte{tgt}, kind)
	require.NoError(t, err)
}

func TestSQLiteStore_FixFieldParents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertEntity(t, store, 1, 0, "shop.py", "File")
	insertEntity(t, store, 2, 1, "Cart", "Class")
	insertEntity(t, store, 3, 2, "set_total", "Method")
	insertEntity(t, store, 4, 2, "total", "Field")
	insertEntity(t, store, 5, 3, "total", "Field")
	insertEntity(t, store, 6, 3, "discount", "Field")
	insertEntity(t, store, 7, 2, "__init__", "Constructor")

	insertDep(t, store, 3, 5, "Use")
	insertDep(t, store, 3, 4, "Use")
	insertDep(t, store, 7, 5, "Use")
	insertDep(t, store, 4, 5, "Use")
	insertDep(t, store, 3, 6, "Use")

	report, err := store.FixFieldParents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Moved)
	assert.Equal(t, 1, report.Merged)
	assert.Equal(t, 3, report.Repointed)
	assert.Equal(t, 2, report.DuplicatesRemoved, "one duplicate and one self-loop")
	assert.Equal(t, 3, report.SiblingUses)
	assert.True(t, report.Changed())

	forest, _, err := store.LoadForest(ctx)
	require.NoError(t, err)
	require.Len(t, forest.ByName(graph.KindField, "total"), 1)
	for _, name := range []string{"total", "discount"} {
		id := forest.ByName(graph.KindField, name)[0]
		e, _ := forest.Get(id)
		parent, _ := forest.Get(e.ParentID)
		assert.Equal(t, graph.KindClass, parent.Kind, name)
	}

	edges, err := store.LoadEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, edges, 3)

	t.Run("Second run is a no-op", func(t *testing.T) {
		again, err := store.FixFieldParents(ctx)
		require.NoError(t, err)
		assert.False(t, again.Changed())
		assert.Equal(t, report.SiblingUses, again.SiblingUses)

		after, err := store.LoadEdges(ctx)
		require.NoError(t, err)
		assert.Equal(t, edges, after)
	})
}

func TestSQLiteStore_LoadForestNormalizesKinds(t *testing.T) {
	store := newTestStore(t)
	insertEntity(t, store, 1, 0, "main.py", "File")
	insertEntity(t, store, 2, 1, "run", "Method")
	insertEntity(t, store, 3, 1, "CONFIG", "Variable")
	insertEntity(t, store, 4, 3, "inner", "Field")

	forest, _, err := store.LoadForest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, forest.Len())
	assert.Len(t, forest.ByName(graph.KindFunction, "run"), 1)

	t.Run("Dangling parent fails", func(t *testing.T) {
		insertEntity(t, store, 9, 42, "lost", "Class")
		_, _, err := store.LoadForest(context.Background())
		assert.ErrorIs(t, err, graph.ErrInvalidEntity)
	})
}
