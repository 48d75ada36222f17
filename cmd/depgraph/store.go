package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	enhanceOut outputOptions
	exportOut  outputOptions
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Resolve edges for the entities in a store and append the new deps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := newPipeline()
		if err != nil {
			return err
		}
		res, err := p.Enhance(context.Background(), store)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Enhanced %s: %d edges resolved, %d new deps appended\n",
			cfg.Store.Path, res.Graph.Edges.Len(), res.Added)
		printStages(res.Result)
		fmt.Fprintf(os.Stderr, "  -> fields moved=%d merged=%d duplicates removed=%d\n",
			res.FieldFix.Moved, res.FieldFix.Merged, res.FieldFix.DuplicatesRemoved)

		if enhanceOut.out == "" {
			return nil
		}
		return enhanceOut.write(res.Graph)
	},
}

var fixFieldsCmd = &cobra.Command{
	Use:   "fixfields",
	Short: "Move fields parented under methods to their class and merge duplicates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := store.FixFieldParents(context.Background())
		if err != nil {
			return err
		}
		if !report.Changed() {
			fmt.Fprintln(os.Stderr, "No fields need fixing")
			return nil
		}
		fmt.Fprintf(os.Stderr, "Updated %d fields (%d moved, %d merged), %d deps repointed, %d duplicates removed\n",
			report.Moved+report.Merged, report.Moved, report.Merged, report.Repointed, report.DuplicatesRemoved)
		fmt.Fprintf(os.Stderr, "%d method -> field uses are now between siblings\n", report.SiblingUses)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the deps of a store as a matrix or an edge list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		g, err := graphFromStore(context.Background(), store, true)
		if err != nil {
			return err
		}
		return exportOut.write(g)
	},
}

func init() {
	enhanceOut.register(enhanceCmd)
	exportOut.register(exportCmd)
}
