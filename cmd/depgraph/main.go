package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"depgraph/internal/config"
	"depgraph/internal/dsm"
	"depgraph/internal/graph"
	"depgraph/internal/logging"
	"depgraph/internal/pipeline"
	"depgraph/internal/resolver"
	"depgraph/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "depgraph",
		Short:         "Typed dependency graph extractor for Python projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
	}

	configPath string
	dbPath     string
	profile    string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "depgraph.yaml", "Path to the YAML config (missing file means defaults)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the SQLite entity store")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Resolution profile: strict or heuristic")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(enhanceCmd)
	rootCmd.AddCommand(fixFieldsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(depsCmd)
}

// setup loads the config and applies flag overrides. Flags win over the
// environment, which wins over the file.
func setup() error {
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if profile != "" {
		cfg.Analysis.Profile = profile
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
	return err
}

func newPipeline() (*pipeline.Pipeline, error) {
	p, err := resolver.ParseProfile(cfg.Analysis.Profile)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		Resolve: resolver.Options{
			Profile:       p,
			TypeCheckUses: cfg.Analysis.TypeCheckUses,
			Workers:       cfg.Analysis.Workers,
		},
		ExcludeDirs: cfg.Project.ExcludeDirs,
	}, logger)
}

func openStore() (*storage.SQLiteStore, error) {
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("no store configured (use --db, DEPGRAPH_DB or store.path)")
	}
	return storage.NewSQLiteStore(cfg.Store.Path, logger)
}

// outputOptions are the flags shared by every command that writes edges.
type outputOptions struct {
	out       string
	format    string
	naming    string
	kinds     []string
	name      string
	fileLevel bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&o.format, "format", "", "Output format: dsm or edges")
	cmd.Flags().StringVar(&o.naming, "naming", "", "Entity naming: canonical or structured")
	cmd.Flags().StringSliceVar(&o.kinds, "kinds", nil, "Edge kinds to keep (default all)")
	cmd.Flags().StringVar(&o.name, "name", "", "Matrix name")
	cmd.Flags().BoolVar(&o.fileLevel, "file-level", false, "Collapse the matrix onto files")
}

func (o *outputOptions) resolve() error {
	if o.format == "" {
		o.format = cfg.Output.Format
	}
	if o.naming == "" {
		o.naming = cfg.Output.Naming
	}
	if len(o.kinds) == 0 {
		o.kinds = cfg.Output.Kinds
	}
	if o.name == "" {
		o.name = cfg.Output.Name
	}
	switch strings.ToLower(o.format) {
	case "dsm", "edges":
		return nil
	}
	return fmt.Errorf("unknown output format %q", o.format)
}

// write renders g and writes it to the configured destination.
func (o *outputOptions) write(g *graph.Graph) error {
	if err := o.resolve(); err != nil {
		return err
	}
	style, err := dsm.ParseStyle(o.naming)
	if err != nil {
		return err
	}
	var kinds []graph.EdgeKind
	for _, k := range o.kinds {
		kind, ok := graph.ParseEdgeKind(strings.TrimSpace(k))
		if !ok {
			return fmt.Errorf("unknown edge kind %q", k)
		}
		kinds = append(kinds, kind)
	}
	triples := dsm.Triples(g.Edges.Sorted(), dsm.NewNamer(g.Forest, style), kinds)

	return o.withWriter(func(w io.Writer) error {
		if strings.EqualFold(o.format, "edges") {
			return dsm.WriteJSON(w, triples)
		}
		name := o.name
		if name == "" {
			name = "depgraph"
		}
		if o.fileLevel {
			var files []string
			for _, e := range g.Forest.Entities() {
				if e.Kind == graph.KindFile {
					files = append(files, e.Name)
				}
			}
			return dsm.FileLevel(name, triples, files).Write(w)
		}
		return dsm.Build(name, triples).Write(w)
	})
}

func (o *outputOptions) withWriter(fn func(io.Writer) error) error {
	if o.out == "" || o.out == "-" {
		return fn(os.Stdout)
	}
	if err := os.MkdirAll(filepath.Dir(o.out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(o.out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", o.out, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", o.out)
	return nil
}

func printStages(res *pipeline.Result) {
	counts := res.Graph.EdgeCountsByKind()
	for _, k := range graph.EdgeKinds {
		fmt.Fprintf(os.Stderr, "  %-9s %d\n", k, counts[k])
	}
	for _, st := range res.Stages {
		fmt.Fprintf(os.Stderr, "  -> %-9s attempted=%d resolved=%d skipped=%d new edges=%d\n",
			st.Resolver, st.Stats.Attempted, st.Stats.Resolved, st.Stats.Skipped, st.EdgesAfter-st.EdgesBefore)
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "  !! skipped %s: %s\n", d.File, d.Err)
	}
}
