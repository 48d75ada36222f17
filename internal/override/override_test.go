package override

import (
	"context"
	"testing"

	"depgraph/internal/extractor"
	"depgraph/internal/graph"
	"depgraph/internal/hierarchy"
	"depgraph/internal/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detect(t *testing.T, src string) (*index.Index, []graph.Edge) {
	t.Helper()
	ext, err := extractor.NewExtractor("python")
	require.NoError(t, err)
	mods, failed := ext.ParseSources(context.Background(), map[string]string{"shapes.py": src})
	require.Empty(t, failed)
	ix, err := index.Build(mods)
	require.NoError(t, err)
	return ix, NewDetector(ix, hierarchy.Build(ix)).Detect()
}

func method(t *testing.T, ix *index.Index, class, name string) graph.EntityID {
	t.Helper()
	cls, ok := ix.ResolveClass(class, "")
	require.True(t, ok, class)
	id, ok := ix.Method(cls, name)
	require.True(t, ok, class+"."+name)
	return id
}

func TestDetect_ThroughNonOverridingIntermediate(t *testing.T) {
	ix, edges := detect(t, `
from abc import ABC, abstractmethod

class B(ABC):
    @abstractmethod
    def foo(self):
        pass

class C(B):
    def bar(self):
        return 1

class D(C):
    def foo(self):
        return 2
`)
	require.Len(t, edges, 1)
	assert.Equal(t, graph.Edge{Src: method(t, ix, "D", "foo"), Tgt: method(t, ix, "B", "foo"), Kind: graph.EdgeOverride}, edges[0])
}

func TestDetect_NotImplementedBodies(t *testing.T) {
	ix, edges := detect(t, `
class Base:
    def area(self):
        """Area of the shape."""
        raise NotImplementedError

    def name(self):
        raise NotImplementedError("subclass")

    def describe(self):
        return "shape"

class Square(Base):
    def area(self):
        return 4

    def name(self):
        return "square"

    def describe(self):
        return "square"
`)
	assert.ElementsMatch(t, []graph.Edge{
		{Src: method(t, ix, "Square", "area"), Tgt: method(t, ix, "Base", "area"), Kind: graph.EdgeOverride},
		{Src: method(t, ix, "Square", "name"), Tgt: method(t, ix, "Base", "name"), Kind: graph.EdgeOverride},
	}, edges)
}

func TestDetect_ConcreteIntermediateBlocks(t *testing.T) {
	ix, edges := detect(t, `
class Base:
    def run(self):
        raise NotImplementedError

class Middle(Base):
    def run(self):
        return 1

class Leaf(Middle):
    def run(self):
        return 2
`)
	require.Len(t, edges, 1)
	assert.Equal(t, method(t, ix, "Middle", "run"), edges[0].Src)
}

func TestDetect_SkipsAbstractClassesAndCycles(t *testing.T) {
	_, edges := detect(t, `
from abc import ABC, ABCMeta, abstractmethod

class Port(metaclass=ABCMeta):
    @abstractmethod
    def send(self):
        pass

    @abstractmethod
    def close(self):
        pass

class Partial(Port, ABC):
    def send(self):
        pass

class X(Y):
    def send(self):
        pass

class Y(X):
    def send(self):
        raise NotImplementedError
`)
	for _, e := range edges {
		assert.NotContains(t, string(e.Src), "Partial")
	}
}

func TestDetect_AbstractBaseImplementingParent(t *testing.T) {
	ix, edges := detect(t, `
from abc import ABC, abstractmethod

class Person(ABC):
    @abstractmethod
    def role(self):
        pass

class Staff(Person, ABC):
    def role(self):
        return "staff"
`)
	assert.Equal(t, []graph.Edge{
		{Src: method(t, ix, "Staff", "role"), Tgt: method(t, ix, "Person", "role"), Kind: graph.EdgeOverride},
	}, edges)
}
