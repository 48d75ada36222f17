// Package dsm renders edge sets as named triples or as a dependency
// structure matrix and reads either form back.
package dsm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const SchemaVersion = "1.0"

var ErrInvalidMatrix = errors.New("invalid matrix")

//go:embed matrix.schema.json
var matrixSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

type Cell struct {
	Src    int                `json:"src"`
	Dest   int                `json:"dest"`
	Values map[string]float64 `json:"values"`
}

type Matrix struct {
	SchemaVersion string   `json:"@schemaVersion"`
	Name          string   `json:"name"`
	Variables     []string `json:"variables"`
	Cells         []Cell   `json:"cells"`
}

// Build aggregates triples into a matrix. Variables are ordered by Less and
// every present kind counts 1: only edge presence is modeled.
func Build(name string, triples []Triple) *Matrix {
	var vars []string
	seen := make(map[string]bool)
	for _, t := range triples {
		for _, v := range []string{t.Src, t.Tgt} {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	sort.SliceStable(vars, func(i, j int) bool { return Less(vars[i], vars[j]) })
	return fill(name, vars, triples, func(s string) string { return s })
}

// FileLevel collapses triples onto their files. Only files listed in files
// become variables; edges touching other names are dropped.
func FileLevel(name string, triples []Triple, files []string) *Matrix {
	vars := make([]string, 0, len(files))
	for _, f := range files {
		vars = append(vars, f+"/module (Module)")
	}
	sort.SliceStable(vars, func(i, j int) bool { return Less(vars[i], vars[j]) })
	return fill(name, vars, triples, func(s string) string {
		if before, _, ok := strings.Cut(s, ".py/"); ok {
			return before + ".py/module (Module)"
		}
		return ""
	})
}

func fill(name string, vars []string, triples []Triple, project func(string) string) *Matrix {
	idx := make(map[string]int, len(vars))
	for i, v := range vars {
		idx[v] = i
	}

	type pair struct{ s, t int }
	cells := make(map[pair]map[string]float64)
	for _, t := range triples {
		s, ok := idx[project(t.Src)]
		if !ok {
			continue
		}
		d, ok := idx[project(t.Tgt)]
		if !ok {
			continue
		}
		p := pair{s, d}
		if cells[p] == nil {
			cells[p] = make(map[string]float64)
		}
		cells[p][t.Kind] = 1
	}

	m := &Matrix{SchemaVersion: SchemaVersion, Name: name, Variables: vars, Cells: make([]Cell, 0, len(cells))}
	for p, values := range cells {
		m.Cells = append(m.Cells, Cell{Src: p.s, Dest: p.t, Values: values})
	}
	sort.Slice(m.Cells, func(i, j int) bool {
		if m.Cells[i].Src != m.Cells[j].Src {
			return m.Cells[i].Src < m.Cells[j].Src
		}
		return m.Cells[i].Dest < m.Cells[j].Dest
	})
	return m
}

// Triples expands the matrix back into named edges. Kinds with a
// non-positive value, empty kinds, and separator kinds ("===...") are skipped.
func (m *Matrix) Triples() ([]Triple, error) {
	var out []Triple
	for _, c := range m.Cells {
		if c.Src < 0 || c.Src >= len(m.Variables) || c.Dest < 0 || c.Dest >= len(m.Variables) {
			return nil, fmt.Errorf("%w: cell (%d,%d) outside %d variables", ErrInvalidMatrix, c.Src, c.Dest, len(m.Variables))
		}
		for kind, v := range c.Values {
			if v <= 0 || skipKind(kind) {
				continue
			}
			out = append(out, Triple{Src: m.Variables[c.Src], Tgt: m.Variables[c.Dest], Kind: kind})
		}
	}
	SortTriples(out)
	return out, nil
}

func skipKind(kind string) bool {
	kind = strings.TrimSpace(kind)
	return kind == "" || strings.HasPrefix(kind, "===")
}

// Validate checks the matrix against the embedded JSON schema.
func (m *Matrix) Validate() error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("matrix.schema.json", bytes.NewReader(matrixSchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("matrix.schema.json")
	})
	if schemaErr != nil {
		return fmt.Errorf("failed to compile matrix schema: %w", schemaErr)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal matrix for schema validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize matrix for schema validation: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMatrix, err)
	}
	return nil
}

// Write validates the matrix and writes it as indented JSON.
func (m *Matrix) Write(w io.Writer) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return WriteJSON(w, m)
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Load reads either a matrix object or a JSON list of triples. Triples may be
// objects {"src","tgt","kind"} or three-element string arrays.
func Load(r io.Reader) ([]Triple, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidMatrix)
	}

	if data[0] == '{' {
		var m Matrix
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMatrix, err)
		}
		return m.Triples()
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMatrix, err)
	}
	out := make([]Triple, 0, len(items))
	for i, item := range items {
		var t Triple
		var arr []string
		switch {
		case json.Unmarshal(item, &arr) == nil:
			if len(arr) != 3 {
				return nil, fmt.Errorf("%w: item %d has %d fields", ErrInvalidMatrix, i, len(arr))
			}
			t = Triple{Src: arr[0], Tgt: arr[1], Kind: arr[2]}
		case json.Unmarshal(item, &t) == nil:
		default:
			return nil, fmt.Errorf("%w: item %d is not a triple", ErrInvalidMatrix, i)
		}
		if skipKind(t.Kind) {
			continue
		}
		out = append(out, t)
	}
	SortTriples(out)
	return out, nil
}
