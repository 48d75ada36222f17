package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"depgraph/internal/dsm"
	"depgraph/internal/facts"

	"github.com/spf13/cobra"
)

var factsCmd = &cobra.Command{
	Use:   "facts <file.py>...",
	Short: "Dump the body facts of every function and method",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := make(map[string]string, len(args))
		for _, path := range args {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			sources[filepath.ToSlash(filepath.Clean(path))] = string(content)
		}

		p, err := newPipeline()
		if err != nil {
			return err
		}
		res, err := p.AnalyzeSources(context.Background(), sources)
		if err != nil {
			return err
		}
		if len(res.Diagnostics) > 0 {
			d := res.Diagnostics[0]
			return fmt.Errorf("%s: %s", d.File, d.Err)
		}

		namer := dsm.NewNamer(res.Graph.Forest, dsm.Canonical)
		type entry struct {
			Name string     `json:"name"`
			Bag  *facts.Bag `json:"facts"`
		}
		var out []entry
		for id, bag := range res.Bags {
			name, ok := namer.Name(id)
			if !ok {
				name = string(id)
			}
			out = append(out, entry{Name: name, Bag: bag})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return dsm.WriteJSON(os.Stdout, out)
	},
}
