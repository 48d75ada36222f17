package resolver

import (
	"context"
	"errors"
	"testing"

	"depgraph/internal/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	name  string
	edges []graph.Edge
	err   error
}

func (f *fakeResolver) Name() string { return f.name }

func (f *fakeResolver) Resolve(ctx context.Context, g *graph.Graph) (ResolveStats, error) {
	stats, err := addAll(g, f.edges)
	if f.err != nil {
		return stats, f.err
	}
	return stats, err
}

func TestResolverChain_Run(t *testing.T) {
	forest := graph.NewForest()
	require.NoError(t, forest.AddAll([]*graph.Entity{
		{ID: "a.py", Kind: graph.KindFile, Name: "a.py"},
		{ID: "b.py", Kind: graph.KindFile, Name: "b.py"},
	}))
	g := graph.NewGraph(forest)
	stop := errors.New("stop")

	chain := NewResolverChain(
		&fakeResolver{name: "first", edges: []graph.Edge{{Src: "a.py", Tgt: "b.py", Kind: graph.EdgeImport}}},
		&fakeResolver{name: "second", err: stop},
		&fakeResolver{name: "never"},
	)
	results := chain.Run(context.Background(), g)

	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Resolver)
	assert.Equal(t, 0, results[0].EdgesBefore)
	assert.Equal(t, 1, results[0].EdgesAfter)
	assert.Equal(t, 1, results[0].Stats.Resolved)
	assert.ErrorIs(t, FirstError(results), stop)
}

func TestResolverChain_DuplicateEdgesAreSkipped(t *testing.T) {
	forest := graph.NewForest()
	require.NoError(t, forest.AddAll([]*graph.Entity{
		{ID: "a.py", Kind: graph.KindFile, Name: "a.py"},
		{ID: "b.py", Kind: graph.KindFile, Name: "b.py"},
	}))
	g := graph.NewGraph(forest)
	edge := graph.Edge{Src: "a.py", Tgt: "b.py", Kind: graph.EdgeImport}

	results := NewResolverChain(
		&fakeResolver{name: "first", edges: []graph.Edge{edge}},
		&fakeResolver{name: "again", edges: []graph.Edge{edge, edge}},
	).Run(context.Background(), g)

	require.Len(t, results, 2)
	assert.NoError(t, FirstError(results))
	assert.Equal(t, ResolveStats{Attempted: 2, Skipped: 2}, results[1].Stats)
	assert.Equal(t, 1, g.Edges.Len())
}
