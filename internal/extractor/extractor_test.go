package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"depgraph/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `import os, json as j
from . import sibling
from ..pkg.models import Ticket as T, Seat
from typing import *

try:
    from fast import Parser
except ImportError:
    Parser = None

@dataclass
class Booking(Base, metaclass=ABCMeta):
    seats: list = None
    owner: "models.Passenger"
    a, b = 1, 2

    class Meta:
        pass

    def __init__(self, ticket: Optional[Ticket], *args, **kwargs):
        self.ticket = ticket
        self.count = self.total = 0

    @abc.abstractmethod
    def price(self, rate=1.0):
        raise NotImplementedError()

    @classmethod
    def make(cls):
        return cls()

def helper(x: models.Seat):
    if x:
        x.reserve(f"{x.row}")
    return Booking(x)
`

func extract(t *testing.T, src string) *syntax.Module {
	t.Helper()
	ext, err := NewExtractor("python")
	require.NoError(t, err)
	mod, err := ext.ExtractSource(context.Background(), "app/booking.py", []byte(src))
	require.NoError(t, err)
	return mod
}

func TestExtractSource_Declarations(t *testing.T) {
	mod := extract(t, sample)
	assert.Equal(t, "app/booking.py", mod.Path)

	require.Len(t, mod.Classes, 1)
	cls := mod.Classes[0]
	assert.Equal(t, "Booking", cls.Name)

	t.Run("Bases and keywords", func(t *testing.T) {
		require.Len(t, cls.Bases, 1)
		assert.Equal(t, "Base", syntax.LeafName(cls.Bases[0]))
		require.Len(t, cls.Keywords, 1)
		assert.Equal(t, "metaclass", cls.Keywords[0].Name)
		require.Len(t, cls.Decorators, 1)
		assert.Equal(t, "dataclass", syntax.LeafName(cls.Decorators[0]))
	})

	t.Run("Fields", func(t *testing.T) {
		var names, annotations []string
		for _, f := range cls.Fields {
			names = append(names, f.Name)
			annotations = append(annotations, f.Annotation)
		}
		assert.Equal(t, []string{"seats", "owner", "a", "b"}, names)
		assert.Equal(t, []string{"list", "Passenger", "", ""}, annotations)
	})

	t.Run("Nested classes", func(t *testing.T) {
		require.Len(t, cls.Classes, 1)
		assert.Equal(t, "Meta", cls.Classes[0].Name)
	})

	t.Run("Methods", func(t *testing.T) {
		require.Len(t, cls.Methods, 3)
		init := cls.Methods[0]
		assert.Equal(t, "__init__", init.Name)
		require.Len(t, init.Params, 4)
		assert.Equal(t, syntax.Param{Name: "ticket", Annotation: "Ticket"}, init.Params[1])
		assert.Equal(t, "args", init.Params[2].Name)
		assert.Equal(t, "kwargs", init.Params[3].Name)

		price := cls.Methods[1]
		assert.True(t, price.HasDecorator("abstractmethod"))
		require.Len(t, price.Params, 2)
		assert.Equal(t, "rate", price.Params[1].Name)

		assert.True(t, cls.Methods[2].HasDecorator("classmethod"))
		assert.True(t, cls.Span.Contains(cls.Methods[2].Span))
	})

	t.Run("Functions", func(t *testing.T) {
		require.Len(t, mod.Functions, 1)
		fn := mod.Functions[0]
		assert.Equal(t, "helper", fn.Name)
		assert.Equal(t, []syntax.Param{{Name: "x", Annotation: "Seat"}}, fn.Params)
	})
}

func TestExtractSource_Imports(t *testing.T) {
	mod := extract(t, sample)

	want := []syntax.Import{
		{Module: "os", Row: 0},
		{Module: "json", Row: 0},
		{Module: "", Names: []string{"sibling"}, Level: 1, From: true, Row: 1},
		{Module: "pkg.models", Names: []string{"Ticket", "Seat"}, Level: 2, From: true, Row: 2},
		{Module: "typing", Names: []string{"*"}, From: true, Row: 3},
		{Module: "fast", Names: []string{"Parser"}, From: true, Row: 6},
	}
	assert.Equal(t, want, mod.Imports)
}

func TestExtractSource_Bodies(t *testing.T) {
	mod := extract(t, sample)
	init := mod.Classes[0].Methods[0]
	require.Len(t, init.Body, 2)

	first, ok := init.Body[0].(*syntax.Assign)
	require.True(t, ok)
	attr, ok := syntax.SelfAttr(first.Targets[0])
	require.True(t, ok)
	assert.Equal(t, "ticket", attr)

	chained, ok := init.Body[1].(*syntax.Assign)
	require.True(t, ok)
	assert.Len(t, chained.Targets, 2, "a = b = value keeps both targets")

	raise, ok := mod.Classes[0].Methods[1].Body[0].(*syntax.Raise)
	require.True(t, ok)
	call, ok := raise.Exc.(*syntax.Call)
	require.True(t, ok)
	assert.Equal(t, "NotImplementedError", syntax.LeafName(call.Func))

	helper := mod.Functions[0]
	require.Len(t, helper.Body, 2)
	guard, ok := helper.Body[0].(*syntax.Compound)
	require.True(t, ok)
	assert.Equal(t, "if_statement", guard.Kind)
	ret, ok := helper.Body[1].(*syntax.Return)
	require.True(t, ok)
	create, ok := ret.Value.(*syntax.Call)
	require.True(t, ok)
	assert.Equal(t, "Booking", syntax.LeafName(create.Func))
}

func TestExtractSource_SyntaxError(t *testing.T) {
	ext, err := NewExtractor("python")
	require.NoError(t, err)

	_, err = ext.ExtractSource(context.Background(), "bad.py", []byte("class (:\n"))
	assert.ErrorIs(t, err, ErrSyntax)
	assert.Contains(t, err.Error(), "bad.py")
}

func TestExtractFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.py")
	require.NoError(t, os.WriteFile(path, []byte("def f():\n    pass\n"), 0o644))

	ext, err := NewExtractor("py")
	require.NoError(t, err)
	mod, content, err := ext.ExtractFromFile(context.Background(), path, "m.py")
	require.NoError(t, err)
	assert.Equal(t, "m.py", mod.Path)
	assert.Equal(t, "def f():\n    pass\n", string(content))
	require.Len(t, mod.Functions, 1)

	_, _, err = ext.ExtractFromFile(context.Background(), filepath.Join(dir, "missing.py"), "missing.py")
	assert.Error(t, err)
}

func TestParseSources(t *testing.T) {
	ext, err := NewExtractor("python")
	require.NoError(t, err)

	mods, failed := ext.ParseSources(context.Background(), map[string]string{
		"b.py":   "class B:\n    pass\n",
		"a.py":   "class A:\n    pass\n",
		"bad.py": "def (:\n",
	})
	require.Len(t, mods, 2)
	assert.Equal(t, "a.py", mods[0].Path)
	assert.Equal(t, "b.py", mods[1].Path)
	require.Contains(t, failed, "bad.py")
	assert.ErrorIs(t, failed["bad.py"], ErrSyntax)
}

func TestNewExtractor(t *testing.T) {
	ext, err := NewExtractor("python")
	require.NoError(t, err)
	assert.True(t, ext.Accepts("pkg/mod.py"))
	assert.False(t, ext.Accepts("pkg/mod.pyc"))
	assert.False(t, ext.Accepts("main.go"))

	_, err = NewExtractor("cobol")
	assert.Error(t, err)
}
