package canon

import "strings"

// Triple is one named edge: source name, target name, kind.
type Triple struct {
	Src  string `json:"src"`
	Tgt  string `json:"tgt"`
	Kind string `json:"kind"`
}

// Normalizer prepares an edge list for comparison.
type Normalizer struct {
	// Python applies Python; Java applies Java when any name looks like Java.
	Python bool
	Java   bool
	// StripPrefixes are removed (repeatedly) from the front of every name.
	StripPrefixes []string
	// ExcludePrefixes drop any edge with an endpoint starting with one of them.
	ExcludePrefixes []string
}

// SplitPrefixes flattens comma-separated flag values.
func SplitPrefixes(raw []string) []string {
	var out []string
	for _, item := range raw {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Apply returns a de-duplicated, normalized copy of edges.
func (n Normalizer) Apply(edges []Triple) []Triple {
	java := false
	if n.Java {
		for _, e := range edges {
			if strings.Contains(e.Src, ".java/") || strings.Contains(e.Tgt, ".java/") {
				java = true
				break
			}
		}
	}

	seen := make(map[Triple]bool, len(edges))
	out := make([]Triple, 0, len(edges))
	for _, e := range edges {
		e.Src, e.Tgt = n.name(e.Src, java), n.name(e.Tgt, java)
		if n.excluded(e.Src) || n.excluded(e.Tgt) || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func (n Normalizer) name(s string, java bool) string {
	if java {
		s = Java(s)
	}
	if n.Python {
		s = Python(s)
	}
	for _, p := range n.StripPrefixes {
		for p != "" && strings.HasPrefix(s, p) {
			s = s[len(p):]
		}
	}
	return s
}

func (n Normalizer) excluded(s string) bool {
	for _, p := range n.ExcludePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
