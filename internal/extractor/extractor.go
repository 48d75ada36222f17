package extractor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"depgraph/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

// Extractor orchestrates parsing using a language-specific front-end.
type Extractor struct {
	langExtractor LanguageExtractor
	langName      string
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string) (*Extractor, error) {
	var langExt LanguageExtractor
	switch lang {
	case "python", "py":
		langExt = &PythonExtractor{}
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
	return &Extractor{langExtractor: langExt, langName: lang}, nil
}

func (e *Extractor) Language() string {
	return e.langName
}

// Accepts reports whether the file name has one of the language's extensions.
func (e *Extractor) Accepts(name string) bool {
	for _, ext := range e.langExtractor.Extensions() {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// ExtractFromFile reads and parses a single source file. rel is the
// project-relative path recorded on the module.
func (e *Extractor) ExtractFromFile(ctx context.Context, path, rel string) (*syntax.Module, []byte, error) {
	sourceCode, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	mod, err := e.ExtractSource(ctx, rel, sourceCode)
	if err != nil {
		return nil, sourceCode, err
	}
	return mod, sourceCode, nil
}

// ExtractSource parses in-memory source. A new parser is created per call so
// the extractor can be shared across goroutines.
func (e *Extractor) ExtractSource(ctx context.Context, rel string, sourceCode []byte) (*syntax.Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", rel, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%s: %w", rel, ErrSyntax)
	}
	return e.langExtractor.Convert(root, sourceCode, rel)
}

// ParseSources parses in-memory files in path order. Files that fail to parse
// are reported in failed and left out of the result.
func (e *Extractor) ParseSources(ctx context.Context, sources map[string]string) ([]*syntax.Module, map[string]error) {
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var mods []*syntax.Module
	failed := make(map[string]error)
	for _, p := range paths {
		mod, err := e.ExtractSource(ctx, p, []byte(sources[p]))
		if err != nil {
			failed[p] = err
			continue
		}
		mods = append(mods, mod)
	}
	return mods, failed
}
