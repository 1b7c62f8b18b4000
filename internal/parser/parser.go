package parser

import (
	"context"
	"errors"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// ErrUnsupportedLanguage is returned when no adapter is registered for a
// file's language. Callers treat it as "skip", not as a failure.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParseContext carries everything a language adapter needs to parse one file.
// OldTree, when non-nil, is the previous parse of the same file; adapters use
// it to reuse unchanged subtrees on re-parse.
type ParseContext struct {
	RepoID   string
	FilePath string
	Content  []byte
	OldTree  *tree_sitter.Tree
}

// ParseResult is the output of parsing one file once. It is consumed
// immediately by the patch builder and never persisted. The Tree is owned by
// the engine's cache when parsing goes through an Engine.
type ParseResult struct {
	Tree  *tree_sitter.Tree
	Nodes []ast.Node
	Edges []ast.Edge
}

// LanguageParser is the per-language adapter contract. Each implementation
// wraps a native grammar and converts its parse tree into universal
// nodes/edges. A single instance serializes its parses behind an exclusive
// lock; callers that need same-language parallelism use multiple instances.
type LanguageParser interface {
	Language() ast.Language
	Parse(ctx context.Context, pc *ParseContext) (*ParseResult, error)
	Close() error
}
