package main

import (
	"context"
	"fmt"
	"os"

	"depgraph/internal/dsm"
	"depgraph/internal/graph"

	"github.com/spf13/cobra"
)

var depsFlags struct {
	root   string
	naming string
}

// lookupKinds is the order entities named on the command line are listed in.
var lookupKinds = []graph.Kind{
	graph.KindFile, graph.KindClass, graph.KindConstructor,
	graph.KindMethod, graph.KindField, graph.KindFunction,
}

type depsEntry struct {
	Name         string   `json:"name"`
	Members      []string `json:"members,omitempty"`
	Dependencies []string `json:"dependencies"`
	Dependents   []string `json:"dependents"`
}

var depsCmd = &cobra.Command{
	Use:   "deps <name>...",
	Short: "Show what the named entities depend on and what depends on them",
	Long: "Looks entities up by short name (every kind, every match) in the store,\n" +
		"or in a freshly analyzed tree when --root is set.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		g, err := depsGraph(ctx)
		if err != nil {
			return err
		}
		naming := depsFlags.naming
		if naming == "" {
			naming = cfg.Output.Naming
		}
		style, err := dsm.ParseStyle(naming)
		if err != nil {
			return err
		}
		entries, missing := lookupDeps(g, dsm.NewNamer(g.Forest, style), args)
		for _, name := range missing {
			fmt.Fprintf(os.Stderr, "no entity named %q\n", name)
		}
		if len(entries) == 0 {
			return fmt.Errorf("none of %d names matched", len(args))
		}
		return dsm.WriteJSON(os.Stdout, entries)
	},
}

func init() {
	depsCmd.Flags().StringVar(&depsFlags.root, "root", "", "Analyze this tree instead of reading the store")
	depsCmd.Flags().StringVar(&depsFlags.naming, "naming", "", "Entity naming: canonical or structured")
}

func depsGraph(ctx context.Context) (*graph.Graph, error) {
	if depsFlags.root == "" {
		store, err := openStore()
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return graphFromStore(ctx, store, true)
	}
	p, err := newPipeline()
	if err != nil {
		return nil, err
	}
	res, err := p.Analyze(ctx, depsFlags.root)
	if err != nil {
		return nil, err
	}
	return res.Graph, nil
}

// lookupDeps returns one entry per entity matching any of names, and the
// names that matched nothing.
func lookupDeps(g *graph.Graph, namer *dsm.Namer, names []string) ([]depsEntry, []string) {
	label := func(e *graph.Entity) string {
		if n, ok := namer.Name(e.ID); ok {
			return n
		}
		return string(e.ID)
	}
	labels := func(es []*graph.Entity) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, label(e))
		}
		return out
	}

	var entries []depsEntry
	var missing []string
	for _, name := range names {
		found := false
		for _, kind := range lookupKinds {
			for _, id := range g.Forest.ByName(kind, name) {
				ent, ok := g.Forest.Get(id)
				if !ok {
					continue
				}
				found = true
				entries = append(entries, depsEntry{
					Name:         label(ent),
					Members:      labels(g.Forest.Children(id)),
					Dependencies: labels(g.GetDependencies(id)),
					Dependents:   labels(g.GetDependents(id)),
				})
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	return entries, missing
}
