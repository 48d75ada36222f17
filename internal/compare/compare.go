// Package compare diffs an extracted edge set against a reference set.
package compare

import (
	"fmt"
	"sort"
	"strings"

	"depgraph/internal/canon"
	"depgraph/internal/dsm"
)

type KindStats struct {
	Kind      string  `json:"kind"`
	Expected  int     `json:"expected"`
	Actual    int     `json:"actual"`
	Matched   int     `json:"matched"`
	Missing   int     `json:"missing"`
	Extra     int     `json:"extra"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

type Report struct {
	GroundTruth string         `json:"ground_truth,omitempty"`
	Actual      string         `json:"actual,omitempty"`
	Expected    int            `json:"ground_truth_count"`
	Found       int            `json:"actual_count"`
	Kinds       []KindStats    `json:"kinds"`
	Missing     []canon.Triple `json:"missing"`
	Extra       []canon.Triple `json:"extra"`
}

// Diff returns the two-sided set difference of gt and actual. Duplicates in
// either input count once.
func Diff(gt, actual []canon.Triple) *Report {
	want := toSet(gt)
	got := toSet(actual)

	r := &Report{Expected: len(want), Found: len(got), Missing: []canon.Triple{}, Extra: []canon.Triple{}}
	stats := make(map[string]*KindStats)
	stat := func(kind string) *KindStats {
		if s, ok := stats[kind]; ok {
			return s
		}
		s := &KindStats{Kind: kind}
		stats[kind] = s
		return s
	}

	for t := range want {
		s := stat(t.Kind)
		s.Expected++
		if got[t] {
			s.Matched++
		} else {
			s.Missing++
			r.Missing = append(r.Missing, t)
		}
	}
	for t := range got {
		s := stat(t.Kind)
		s.Actual++
		if !want[t] {
			s.Extra++
			r.Extra = append(r.Extra, t)
		}
	}

	for _, s := range stats {
		s.Precision = ratio(s.Matched, s.Actual)
		s.Recall = ratio(s.Matched, s.Expected)
		r.Kinds = append(r.Kinds, *s)
	}
	sort.Slice(r.Kinds, func(i, j int) bool { return r.Kinds[i].Kind < r.Kinds[j].Kind })
	dsm.SortTriples(r.Missing)
	dsm.SortTriples(r.Extra)
	return r
}

func toSet(ts []canon.Triple) map[canon.Triple]bool {
	out := make(map[canon.Triple]bool, len(ts))
	for _, t := range ts {
		out[t] = true
	}
	return out
}

// ratio is 1 when there is nothing to measure.
func ratio(n, d int) float64 {
	if d == 0 {
		return 1
	}
	return float64(n) / float64(d)
}

// Clean reports whether both sides agree.
func (r *Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0
}

// Summary is the short console form; show bounds the sample lists.
func (r *Report) Summary(show int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Ground truth edges: %d  Actual edges: %d\n", r.Expected, r.Found)
	fmt.Fprintf(&sb, "Missing: %d  Extra: %d\n", len(r.Missing), len(r.Extra))
	for _, k := range r.Kinds {
		fmt.Fprintf(&sb, "  %-9s expected=%d actual=%d missing=%d extra=%d precision=%.3f recall=%.3f\n",
			k.Kind, k.Expected, k.Actual, k.Missing, k.Extra, k.Precision, k.Recall)
	}
	sample := func(label string, ts []canon.Triple) {
		for i, t := range ts {
			if i >= show {
				fmt.Fprintf(&sb, "  ... %d more\n", len(ts)-show)
				break
			}
			fmt.Fprintf(&sb, "  %s %s: %s -> %s\n", label, t.Kind, t.Src, t.Tgt)
		}
	}
	sample("MISSING", r.Missing)
	sample("EXTRA", r.Extra)
	return sb.String()
}

// Markdown renders the full report.
func (r *Report) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Edge Set Diff\n\n")
	if r.GroundTruth != "" {
		fmt.Fprintf(&sb, "- Ground truth: `%s`\n", r.GroundTruth)
	}
	if r.Actual != "" {
		fmt.Fprintf(&sb, "- Actual: `%s`\n", r.Actual)
	}
	fmt.Fprintf(&sb, "- Ground truth edges: `%d`\n", r.Expected)
	fmt.Fprintf(&sb, "- Actual edges: `%d`\n", r.Found)
	fmt.Fprintf(&sb, "- Missing: `%d`\n", len(r.Missing))
	fmt.Fprintf(&sb, "- Extra: `%d`\n\n", len(r.Extra))

	sb.WriteString("## Per Kind\n\n")
	sb.WriteString("| Kind | Expected | Actual | Missing | Extra | Precision | Recall |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, k := range r.Kinds {
		fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d | %.3f | %.3f |\n",
			k.Kind, k.Expected, k.Actual, k.Missing, k.Extra, k.Precision, k.Recall)
	}
	sb.WriteString("\n")

	list := func(title string, ts []canon.Triple) {
		fmt.Fprintf(&sb, "## %s (%d)\n\n", title, len(ts))
		if len(ts) == 0 {
			sb.WriteString("- (none)\n\n")
			return
		}
		for _, t := range ts {
			fmt.Fprintf(&sb, "- `%s`: `%s` -> `%s`\n", t.Kind, t.Src, t.Tgt)
		}
		sb.WriteString("\n")
	}
	list("Missing", r.Missing)
	list("Extra", r.Extra)
	return sb.String()
}
