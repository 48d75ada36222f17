package resolver

import (
	"context"

	"depgraph/internal/graph"
)

type ResolveStats struct {
	Attempted int
	Resolved  int
	Skipped   int
}

// GraphResolver is one stage of edge production. Stages only insert edges.
type GraphResolver interface {
	Name() string
	Resolve(ctx context.Context, g *graph.Graph) (ResolveStats, error)
}

type StageResult struct {
	Resolver    string
	Stats       ResolveStats
	EdgesBefore int
	EdgesAfter  int
	Err         error
}

// ResolverChain runs stages in order; a stage starts only after the previous
// one has returned, so later stages see every earlier edge.
type ResolverChain struct {
	resolvers []GraphResolver
}

func NewResolverChain(resolvers ...GraphResolver) *ResolverChain {
	return &ResolverChain{resolvers: resolvers}
}

func (c *ResolverChain) Run(ctx context.Context, g *graph.Graph) []StageResult {
	if g == nil {
		return nil
	}

	var out []StageResult
	for _, r := range c.resolvers {
		before := g.Edges.Len()
		stats, err := r.Resolve(ctx, g)
		out = append(out, StageResult{
			Resolver:    r.Name(),
			Stats:       stats,
			EdgesBefore: before,
			EdgesAfter:  g.Edges.Len(),
			Err:         err,
		})
		if err != nil {
			break
		}
	}
	return out
}

// FirstError returns the error that stopped the chain, if any.
func FirstError(results []StageResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func addAll(g *graph.Graph, edges []graph.Edge) (ResolveStats, error) {
	stats := ResolveStats{Attempted: len(edges)}
	for _, e := range edges {
		added, err := g.AddEdge(e)
		if err != nil {
			return stats, err
		}
		if added {
			stats.Resolved++
		} else {
			stats.Skipped++
		}
	}
	return stats, nil
}
