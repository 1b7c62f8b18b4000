// Package linker holds the heuristic passes that infer cross-language edges
// the grammars cannot express: HTTP route to handler, SQL text to table-like
// symbols. The matching rules are deliberately low-precision placeholders;
// consumers treat these edges as hints, not guarantees.
package linker

import (
	"sort"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// Linker is one inference pass over a set of candidate nodes. FindEdges never
// mutates the graph; the caller decides what to do with the edges.
type Linker interface {
	Name() string
	FindEdges(nodes []ast.Node) ([]ast.Edge, error)
}

// Default returns the bundled linkers in their run order.
func Default() []Linker {
	return []Linker{&RestLinker{}, &SQLLinker{}}
}

// sortCandidates orders nodes by file, span, then id so every pass sees the
// same candidate order and "first match" is stable.
func sortCandidates(nodes []ast.Node) []ast.Node {
	out := make([]ast.Node, len(nodes))
	copy(out, nodes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].Span.StartByte != out[j].Span.StartByte {
			return out[i].Span.StartByte < out[j].Span.StartByte
		}
		return out[i].ID < out[j].ID
	})
	return out
}
