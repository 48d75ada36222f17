package resolver

import (
	"context"
	"runtime"

	"depgraph/internal/facts"
	"depgraph/internal/graph"
	"depgraph/internal/hierarchy"
	"depgraph/internal/index"
	"depgraph/internal/override"

	"golang.org/x/sync/errgroup"
)

// ImportResolver adds File -> File import edges.
type ImportResolver struct {
	ix *index.Index
}

func NewImportResolver(ix *index.Index) *ImportResolver {
	return &ImportResolver{ix: ix}
}

func (r *ImportResolver) Name() string { return "imports" }

func (r *ImportResolver) Resolve(ctx context.Context, g *graph.Graph) (ResolveStats, error) {
	return addAll(g, ImportEdges(r.ix))
}

// ExtendResolver adds Class -> Class edges for resolved direct bases.
type ExtendResolver struct {
	h *hierarchy.Resolver
}

func NewExtendResolver(h *hierarchy.Resolver) *ExtendResolver {
	return &ExtendResolver{h: h}
}

func (r *ExtendResolver) Name() string { return "extends" }

func (r *ExtendResolver) Resolve(ctx context.Context, g *graph.Graph) (ResolveStats, error) {
	return addAll(g, r.h.ExtendEdges())
}

// BodyStage extracts the fact bag of every callable and resolves its edges
// on a bounded worker pool. The index and hierarchy are shared read-only.
type BodyStage struct {
	ix   *index.Index
	h    *hierarchy.Resolver
	opts Options
	bags map[graph.EntityID]*facts.Bag
}

func NewBodyStage(ix *index.Index, h *hierarchy.Resolver, opts Options) *BodyStage {
	return &BodyStage{ix: ix, h: h, opts: opts}
}

func (s *BodyStage) Name() string { return "bodies" }

// Bags returns the fact bags of the last run keyed by callable id.
func (s *BodyStage) Bags() map[graph.EntityID]*facts.Bag { return s.bags }

func (s *BodyStage) workers() int {
	if s.opts.Workers > 0 {
		return s.opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (s *BodyStage) Resolve(ctx context.Context, g *graph.Graph) (ResolveStats, error) {
	callables := s.ix.Callables()
	bags := make([]*facts.Bag, len(callables))
	known := s.ix.KnownClassNames()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers())
	for i, id := range callables {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			decl, ok := s.ix.FuncDecl(id)
			if !ok {
				return nil
			}
			_, inClass := s.ix.OwnerClass(id)
			bags[i] = facts.Extract(facts.Input{Func: decl, InClass: inClass, KnownClasses: known})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return ResolveStats{}, err
	}

	s.bags = make(map[graph.EntityID]*facts.Bag, len(callables))
	for i, id := range callables {
		if bags[i] != nil {
			s.bags[id] = bags[i]
		}
	}
	body := NewBodyResolver(s.ix, s.h, NewFieldTypes(s.ix, s.h, s.bags), s.opts)

	results := make([]ResolveStats, len(callables))
	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(s.workers())
	for i, id := range callables {
		bag := bags[i]
		if bag == nil {
			results[i].Skipped = 1
			continue
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			st, err := addAll(g, body.Resolve(id, bag))
			results[i] = st
			return err
		})
	}
	err := eg.Wait()

	var total ResolveStats
	for _, r := range results {
		total.Attempted += r.Attempted
		total.Resolved += r.Resolved
		total.Skipped += r.Skipped
	}
	return total, err
}

// OverrideResolver runs the override detector once over the finished graph.
type OverrideResolver struct {
	detector *override.Detector
}

func NewOverrideResolver(ix *index.Index, h *hierarchy.Resolver) *OverrideResolver {
	return &OverrideResolver{detector: override.NewDetector(ix, h)}
}

func (r *OverrideResolver) Name() string { return "overrides" }

func (r *OverrideResolver) Resolve(ctx context.Context, g *graph.Graph) (ResolveStats, error) {
	return addAll(g, r.detector.Detect())
}

// NewDefaultChain wires the stages in their mandatory order: inheritance and
// import edges, then bodies, then overrides.
func NewDefaultChain(ix *index.Index, h *hierarchy.Resolver, opts Options) (*ResolverChain, *BodyStage) {
	body := NewBodyStage(ix, h, opts)
	return NewResolverChain(
		NewImportResolver(ix),
		NewExtendResolver(h),
		body,
		NewOverrideResolver(ix, h),
	), body
}
