package dsm

import (
	"bytes"
	"strings"
	"testing"

	"depgraph/internal/canon"
	"depgraph/internal/graph"
	"depgraph/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForest(t *testing.T) *graph.Forest {
	t.Helper()
	span := syntax.Span{StartRow: 1, EndRow: 20}
	f := graph.NewForest()
	require.NoError(t, f.AddAll([]*graph.Entity{
		{ID: "f1", Kind: graph.KindFile, Name: "tts/office.py", Span: span},
		{ID: "f2", Kind: graph.KindFile, Name: "main.py", Span: span},
		{ID: "c1", Kind: graph.KindClass, Name: "Office", ParentID: "f1", Span: span},
		{ID: "c2", Kind: graph.KindClass, Name: "Desk", ParentID: "c1", Span: span},
		{ID: "m1", Kind: graph.KindConstructor, Name: "__init__", ParentID: "c1", Span: span},
		{ID: "m2", Kind: graph.KindMethod, Name: "sell", ParentID: "c1", Span: span},
		{ID: "m3", Kind: graph.KindMethod, Name: "clean", ParentID: "c2", Span: span},
		{ID: "x1", Kind: graph.KindField, Name: "desk", ParentID: "c1", Span: span},
		{ID: "fn", Kind: graph.KindFunction, Name: "main", ParentID: "f2", Span: span},
	}))
	return f
}

func TestNamer(t *testing.T) {
	f := sampleForest(t)
	canonical := NewNamer(f, Canonical)
	structured := NewNamer(f, Structured)

	want := map[graph.EntityID]string{
		"f1": "tts/office.py/module (Module)",
		"c1": "tts/office.py/CLASSES/Office (Class)",
		"c2": "tts/office.py/CLASSES/Office.Desk (Class)",
		"m1": "tts/office.py/CLASSES/Office/CONSTRUCTORS/__init__ (Constructor)",
		"m2": "tts/office.py/CLASSES/Office/METHODS/sell (Method)",
		"m3": "tts/office.py/CLASSES/Office.Desk/METHODS/clean (Method)",
		"x1": "tts/office.py/CLASSES/Office/FIELDS/desk (Field)",
		"fn": "main.py/FUNCTIONS/main (Function)",
	}
	for id, name := range want {
		got, ok := canonical.Name(id)
		require.True(t, ok)
		assert.Equal(t, name, got)

		t.Run("structured round trip "+string(id), func(t *testing.T) {
			s, ok := structured.Name(id)
			require.True(t, ok)
			assert.NotEqual(t, name, s)
			assert.Equal(t, name, canon.Python(s))
		})
	}

	_, ok := canonical.Name("missing")
	assert.False(t, ok)
}

func TestNamer_StructuredRoundTripUnderMarkerDirectories(t *testing.T) {
	span := syntax.Span{StartRow: 1, EndRow: 20}
	f := graph.NewForest()
	require.NoError(t, f.AddAll([]*graph.Entity{
		{ID: "f1", Kind: graph.KindFile, Name: "app/functions/methods/util.py", Span: span},
		{ID: "c1", Kind: graph.KindClass, Name: "Helper", ParentID: "f1", Span: span},
		{ID: "m1", Kind: graph.KindMethod, Name: "run", ParentID: "c1", Span: span},
		{ID: "x1", Kind: graph.KindField, Name: "fields", ParentID: "c1", Span: span},
		{ID: "fn", Kind: graph.KindFunction, Name: "load", ParentID: "f1", Span: span},
	}))
	canonical := NewNamer(f, Canonical)
	structured := NewNamer(f, Structured)

	for _, id := range []graph.EntityID{"f1", "c1", "m1", "x1", "fn"} {
		want, ok := canonical.Name(id)
		require.True(t, ok)
		s, ok := structured.Name(id)
		require.True(t, ok)
		assert.Equal(t, want, canon.Python(s), s)
	}
}

func TestKeyOrder(t *testing.T) {
	vars := []string{
		"main.py/FUNCTIONS/main (Function)",
		"tts/office.py/CLASSES/Office/FIELDS/desk (Field)",
		"tts/office.py/CLASSES/Office/METHODS/sell (Method)",
		"tts/office.py/CLASSES/Office/CONSTRUCTORS/__init__ (Constructor)",
		"tts/office.py/CLASSES/Office (Class)",
		"tts/office.py/module (Module)",
		"main.py/module (Module)",
		"tts/a.py/CLASSES/Z (Class)",
	}
	m := Build("t", []Triple{
		{Src: vars[0], Tgt: vars[1], Kind: "Use"},
		{Src: vars[2], Tgt: vars[3], Kind: "Call"},
		{Src: vars[4], Tgt: vars[5], Kind: "Extend"},
		{Src: vars[6], Tgt: vars[7], Kind: "Import"},
	})
	assert.Equal(t, []string{
		"tts/a.py/CLASSES/Z (Class)",
		"tts/office.py/module (Module)",
		"tts/office.py/CLASSES/Office (Class)",
		"tts/office.py/CLASSES/Office/CONSTRUCTORS/__init__ (Constructor)",
		"tts/office.py/CLASSES/Office/METHODS/sell (Method)",
		"tts/office.py/CLASSES/Office/FIELDS/desk (Field)",
		"main.py/module (Module)",
		"main.py/FUNCTIONS/main (Function)",
	}, m.Variables)
}

func TestMatrix_RoundTripAndValidate(t *testing.T) {
	f := sampleForest(t)
	edges := []graph.Edge{
		{Src: "m2", Tgt: "c2", Kind: graph.EdgeCreate},
		{Src: "m2", Tgt: "m3", Kind: graph.EdgeCall},
		{Src: "m2", Tgt: "x1", Kind: graph.EdgeUse},
		{Src: "m1", Tgt: "x1", Kind: graph.EdgeUse},
		{Src: "fn", Tgt: "m2", Kind: graph.EdgeCall},
		{Src: "f2", Tgt: "f1", Kind: graph.EdgeImport},
		{Src: "m2", Tgt: "ghost", Kind: graph.EdgeCall},
	}
	triples := Triples(edges, NewNamer(f, Canonical), nil)
	require.Len(t, triples, 6)

	m := Build("office", triples)
	require.NoError(t, m.Validate())

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))
	assert.Contains(t, buf.String(), `"@schemaVersion": "1.0"`)

	back, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, triples, back)

	t.Run("Kind filter", func(t *testing.T) {
		calls := Triples(edges, NewNamer(f, Canonical), []graph.EdgeKind{graph.EdgeCall})
		assert.Len(t, calls, 2)
	})

	t.Run("Deterministic bytes", func(t *testing.T) {
		var a, b bytes.Buffer
		require.NoError(t, Build("office", triples).Write(&a))
		require.NoError(t, Build("office", triples).Write(&b))
		assert.Equal(t, a.String(), b.String())
	})
}

func TestMatrix_ValidateRejectsBadCells(t *testing.T) {
	m := &Matrix{SchemaVersion: SchemaVersion, Name: "x", Variables: []string{"a", "a"}, Cells: []Cell{}}
	assert.ErrorIs(t, m.Validate(), ErrInvalidMatrix)

	m = &Matrix{SchemaVersion: SchemaVersion, Name: "x", Variables: []string{"a"}, Cells: []Cell{{Src: 0, Dest: 3, Values: map[string]float64{"Call": 1}}}}
	_, err := m.Triples()
	assert.ErrorIs(t, err, ErrInvalidMatrix)
}

func TestFileLevel(t *testing.T) {
	m := FileLevel("files", []Triple{
		{Src: "a/x.py/CLASSES/A/METHODS/m (Method)", Tgt: "a/y.py/CLASSES/B (Class)", Kind: "Create"},
		{Src: "a/x.py/CLASSES/A/METHODS/m (Method)", Tgt: "a/y.py/CLASSES/B/METHODS/n (Method)", Kind: "Call"},
		{Src: "a/x.py/module (Module)", Tgt: "other.py/module (Module)", Kind: "Import"},
	}, []string{"a/y.py", "a/x.py"})

	assert.Equal(t, []string{"a/x.py/module (Module)", "a/y.py/module (Module)"}, m.Variables)
	require.Len(t, m.Cells, 1)
	assert.Equal(t, map[string]float64{"Create": 1, "Call": 1}, m.Cells[0].Values)
}

func TestLoad_Lists(t *testing.T) {
	in := `[
  ["b.py/module (Module)", "a.py/module (Module)", "Import"],
  {"src": "a.py/FUNCTIONS/f (Function)", "tgt": "a.py/FUNCTIONS/g (Function)", "kind": "Call"},
  ["x", "y", "=== section"],
  ["x", "y", ""]
]`
	got, err := Load(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Triple{
		{Src: "a.py/FUNCTIONS/f (Function)", Tgt: "a.py/FUNCTIONS/g (Function)", Kind: "Call"},
		{Src: "b.py/module (Module)", Tgt: "a.py/module (Module)", Kind: "Import"},
	}, got)

	_, err = Load(strings.NewReader(`[["only", "two"]]`))
	assert.ErrorIs(t, err, ErrInvalidMatrix)
	_, err = Load(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidMatrix)
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, Canonical, s)
	s, err = ParseStyle("Structured")
	require.NoError(t, err)
	assert.Equal(t, Structured, s)
	_, err = ParseStyle("flat")
	assert.Error(t, err)
}
