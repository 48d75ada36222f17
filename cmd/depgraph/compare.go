package main

import (
	"fmt"
	"io"
	"os"

	"depgraph/internal/canon"
	"depgraph/internal/compare"
	"depgraph/internal/dsm"

	"github.com/spf13/cobra"
)

var compareFlags struct {
	python     bool
	java       bool
	strip      []string
	exclude    []string
	out        string
	outMD      string
	show       int
	failOnDiff bool
}

var compareCmd = &cobra.Command{
	Use:   "compare <ground-truth> <actual>",
	Short: "Diff two edge sets (matrix or edge list JSON)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		gt, err := loadTriples(args[0])
		if err != nil {
			return err
		}
		actual, err := loadTriples(args[1])
		if err != nil {
			return err
		}

		norm := canon.Normalizer{
			Python:          compareFlags.python,
			Java:            compareFlags.java,
			StripPrefixes:   canon.SplitPrefixes(compareFlags.strip),
			ExcludePrefixes: canon.SplitPrefixes(compareFlags.exclude),
		}
		report := compare.Diff(norm.Apply(gt), norm.Apply(actual))
		report.GroundTruth, report.Actual = args[0], args[1]

		fmt.Print(report.Summary(compareFlags.show))

		if compareFlags.out != "" {
			o := outputOptions{out: compareFlags.out}
			if err := o.withWriter(func(w io.Writer) error { return dsm.WriteJSON(w, report) }); err != nil {
				return err
			}
		}
		if compareFlags.outMD != "" {
			o := outputOptions{out: compareFlags.outMD}
			err := o.withWriter(func(w io.Writer) error {
				_, err := io.WriteString(w, report.Markdown())
				return err
			})
			if err != nil {
				return err
			}
		}
		if compareFlags.failOnDiff && !report.Clean() {
			return fmt.Errorf("edge sets differ: %d missing, %d extra", len(report.Missing), len(report.Extra))
		}
		return nil
	},
}

func init() {
	f := compareCmd.Flags()
	f.BoolVar(&compareFlags.python, "python", true, "Canonicalize Python entity names")
	f.BoolVar(&compareFlags.java, "java", false, "Canonicalize Java entity names")
	f.StringSliceVar(&compareFlags.strip, "strip-prefix", nil, "Prefixes to strip from entity names")
	f.StringSliceVar(&compareFlags.exclude, "exclude-prefix", nil, "Drop edges touching names with these prefixes")
	f.StringVarP(&compareFlags.out, "out", "o", "", "Write the JSON report here")
	f.StringVar(&compareFlags.outMD, "out-md", "", "Write the Markdown report here")
	f.IntVar(&compareFlags.show, "show", 20, "Sample size of missing and extra edges")
	f.BoolVar(&compareFlags.failOnDiff, "fail-on-diff", false, "Exit non-zero when the sets differ")
}

func loadTriples(path string) ([]canon.Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ts, err := dsm.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}
