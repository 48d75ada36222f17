// Package pipeline runs the extraction engine end to end: either over a
// source tree (fresh forest) or over an entity store (bound forest).
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"depgraph/internal/crawler"
	"depgraph/internal/extractor"
	"depgraph/internal/facts"
	"depgraph/internal/graph"
	"depgraph/internal/hierarchy"
	"depgraph/internal/index"
	"depgraph/internal/resolver"
	"depgraph/internal/storage"
	"depgraph/internal/syntax"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Resolve     resolver.Options
	ExcludeDirs []string
}

// Result is one analyzed snapshot.
type Result struct {
	Graph       *graph.Graph
	Index       *index.Index
	Stages      []resolver.StageResult
	Diagnostics []crawler.Diagnostic
	Bags        map[graph.EntityID]*facts.Bag
	// Contents maps file entity ids to source text.
	Contents map[graph.EntityID]string
}

// Store is what Enhance needs from an entity store.
type Store interface {
	storage.EntityReader
	storage.DepWriter
}

type EnhanceResult struct {
	*Result
	Added    int
	FieldFix *storage.FieldFixReport
}

type Pipeline struct {
	crawler *crawler.Crawler
	opts    Options
	logger  *logrus.Logger
}

func New(opts Options, logger *logrus.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ext, err := extractor.NewExtractor("python")
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		crawler: crawler.NewCrawler(ext, logger, opts.ExcludeDirs...),
		opts:    opts,
		logger:  logger,
	}, nil
}

// Analyze builds a fresh forest from the tree under root.
func (p *Pipeline) Analyze(ctx context.Context, root string) (*Result, error) {
	parsed, err := p.crawler.ParseProject(ctx, root, p.opts.Resolve.Workers)
	if err != nil {
		return nil, err
	}
	return p.analyzeParsed(ctx, parsed)
}

// AnalyzeSources is Analyze over in-memory files keyed by relative path.
func (p *Pipeline) AnalyzeSources(ctx context.Context, sources map[string]string) (*Result, error) {
	files := make([]crawler.SourceFile, 0, len(sources))
	for rel, content := range sources {
		files = append(files, crawler.SourceFile{Rel: rel, Content: []byte(content)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Rel < files[j].Rel })
	parsed, err := p.crawler.ParseFiles(ctx, files, p.opts.Resolve.Workers)
	if err != nil {
		return nil, err
	}
	return p.analyzeParsed(ctx, parsed)
}

func (p *Pipeline) analyzeParsed(ctx context.Context, parsed *crawler.Result) (*Result, error) {
	ix, err := index.Build(parsed.Modules)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	contents := make(map[graph.EntityID]string, len(parsed.Contents))
	for _, file := range ix.Files() {
		if e, ok := ix.Forest.Get(file); ok {
			contents[file] = parsed.Contents[e.Name]
		}
	}

	res, err := p.resolve(ctx, ix)
	if err != nil {
		return nil, err
	}
	res.Diagnostics = parsed.Diagnostics
	res.Contents = contents
	return res, nil
}

// resolve runs inheritance and the resolver chain over a finished index.
func (p *Pipeline) resolve(ctx context.Context, ix *index.Index) (*Result, error) {
	start := time.Now()
	h := hierarchy.Build(ix)

	g := graph.NewGraph(ix.Forest)
	g.ClassUse = p.opts.Resolve.TypeCheckUses

	chain, body := resolver.NewDefaultChain(ix, h, p.opts.Resolve)
	stages := chain.Run(ctx, g)
	for _, st := range stages {
		p.logger.WithFields(logrus.Fields{
			"stage":     st.Resolver,
			"attempted": st.Stats.Attempted,
			"resolved":  st.Stats.Resolved,
			"skipped":   st.Stats.Skipped,
			"edges":     st.EdgesAfter - st.EdgesBefore,
		}).Debug("stage finished")
	}
	if err := resolver.FirstError(stages); err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"profile":  p.opts.Resolve.Profile,
		"entities": ix.Forest.Len(),
		"edges":    g.Edges.Len(),
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("analysis finished")

	return &Result{Graph: g, Index: ix, Stages: stages, Bags: body.Bags()}, nil
}

// Enhance binds the store's entities to their parsed contents, resolves
// edges, appends the new ones and applies the field re-parenting correction.
func (p *Pipeline) Enhance(ctx context.Context, store Store) (*EnhanceResult, error) {
	forest, contents, err := store.LoadForest(ctx)
	if err != nil {
		return nil, err
	}

	var files []crawler.SourceFile
	owners := make(map[string][]graph.EntityID)
	var diags []crawler.Diagnostic
	for _, e := range forest.Entities() {
		if e.Kind != graph.KindFile {
			continue
		}
		content, ok := contents[e.ID]
		if !ok {
			diags = append(diags, crawler.Diagnostic{File: e.Name, Err: "no stored content"})
			continue
		}
		if _, seen := owners[e.Name]; !seen {
			files = append(files, crawler.SourceFile{Rel: e.Name, Content: []byte(content)})
		}
		owners[e.Name] = append(owners[e.Name], e.ID)
	}

	parsed, err := p.crawler.ParseFiles(ctx, files, p.opts.Resolve.Workers)
	if err != nil {
		return nil, err
	}
	modules := make(map[graph.EntityID]*syntax.Module, len(parsed.Modules))
	for _, mod := range parsed.Modules {
		for _, id := range owners[mod.Path] {
			modules[id] = mod
		}
	}

	ix, err := index.Bind(forest, modules)
	if err != nil {
		return nil, fmt.Errorf("bind store entities: %w", err)
	}
	res, err := p.resolve(ctx, ix)
	if err != nil {
		return nil, err
	}
	res.Diagnostics = append(diags, parsed.Diagnostics...)
	res.Contents = contents

	added, err := store.AppendEdges(ctx, res.Graph.Edges.Sorted())
	if err != nil {
		return nil, fmt.Errorf("append deps: %w", err)
	}
	fix, err := store.FixFieldParents(ctx)
	if err != nil {
		return nil, fmt.Errorf("fix field parents: %w", err)
	}
	return &EnhanceResult{Result: res, Added: added, FieldFix: fix}, nil
}
