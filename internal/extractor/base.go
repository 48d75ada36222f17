package extractor

import (
	"errors"

	"depgraph/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSyntax marks a file whose tree contains error nodes. Callers skip the file.
var ErrSyntax = errors.New("syntax error")

// LanguageExtractor defines the interface that each language front-end must implement.
type LanguageExtractor interface {
	GetLanguage() *sitter.Language
	Extensions() []string
	Convert(root *sitter.Node, sourceCode []byte, path string) (*syntax.Module, error)
}
