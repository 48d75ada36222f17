package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"depgraph/internal/graph"
	"depgraph/internal/storage"

	"github.com/spf13/cobra"
)

var (
	analyzeOut    outputOptions
	analyzeSaveDB string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [root]",
	Short: "Extract the dependency graph of a source tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		p, err := newPipeline()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Analyzing %s (profile %s)\n", root, cfg.Analysis.Profile)
		start := time.Now()
		ctx := context.Background()
		res, err := p.Analyze(ctx, root)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Done in %v: %d entities, %d edges\n",
			time.Since(start).Round(time.Millisecond), res.Graph.Forest.Len(), res.Graph.Edges.Len())
		printStages(res)

		if analyzeSaveDB != "" {
			store, err := storage.NewSQLiteStore(analyzeSaveDB, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveGraph(ctx, res.Graph, res.Contents); err != nil {
				return fmt.Errorf("failed to save graph: %w", err)
			}
		}

		return analyzeOut.write(res.Graph)
	},
}

func init() {
	analyzeOut.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeSaveDB, "save-db", "", "Also save entities, contents and deps to this SQLite store")
}

// graphFromStore rebuilds a graph from stored entities and deps. Deps whose
// endpoints break the kind constraints are dropped.
func graphFromStore(ctx context.Context, store *storage.SQLiteStore, classUse bool) (*graph.Graph, error) {
	forest, _, err := store.LoadForest(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := store.LoadEdges(ctx)
	if err != nil {
		return nil, err
	}
	g := graph.NewGraph(forest)
	g.ClassUse = classUse
	dropped := 0
	for _, e := range edges {
		if _, err := g.AddEdge(e); err != nil {
			dropped++
		}
	}
	if dropped > 0 {
		logger.WithField("dropped", dropped).Warn("stored deps with invalid endpoints ignored")
	}
	return g, nil
}
