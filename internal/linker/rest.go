package linker

import (
	"strings"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// RestLinker connects Route nodes to handler functions by case-insensitive
// textual overlap between the route's path segments and the handler's name.
// First match only; one route links to at most one handler.
type RestLinker struct{}

var _ Linker = (*RestLinker)(nil)

func (l *RestLinker) Name() string { return "rest" }

func (l *RestLinker) FindEdges(nodes []ast.Node) ([]ast.Edge, error) {
	sorted := sortCandidates(nodes)

	var handlers []ast.Node
	for _, n := range sorted {
		if n.Kind == ast.NodeKindFunction || n.Kind == ast.NodeKindMethod {
			handlers = append(handlers, n)
		}
	}

	var edges []ast.Edge
	for _, n := range sorted {
		if n.Kind != ast.NodeKindRoute {
			continue
		}
		tokens := routeTokens(n.Name)
		if len(tokens) == 0 {
			continue
		}
		for _, h := range handlers {
			if handlerMatches(h.Name, tokens) {
				edges = append(edges, ast.Edge{Source: n.ID, Target: h.ID, Kind: ast.EdgeKindRoutesTo})
				break
			}
		}
	}
	return edges, nil
}

// routeTokens splits a route name like "GET /users/{id}/orders" into
// lowercase path tokens, dropping the method, parameter placeholders, and
// single-character fragments.
func routeTokens(name string) []string {
	path := name
	if i := strings.IndexByte(name, ' '); i >= 0 {
		path = name[i+1:]
	}
	fields := strings.FieldsFunc(path, func(r rune) bool {
		switch r {
		case '/', '-', '_', '.', ':':
			return true
		}
		return false
	})
	var tokens []string
	for _, f := range fields {
		if strings.HasPrefix(f, "{") || len(f) < 2 {
			continue
		}
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

// handlerMatches reports textual overlap between a handler name and route
// tokens: either side containing the other counts, singular and plural forms
// included.
func handlerMatches(handler string, tokens []string) bool {
	h := strings.ToLower(handler)
	for _, tok := range tokens {
		if strings.Contains(h, tok) || strings.Contains(tok, h) {
			return true
		}
		if s := singular(tok); s != tok && strings.Contains(h, s) {
			return true
		}
	}
	return false
}

// singular trims a plural suffix: "users" -> "user", "queries" -> "query".
func singular(s string) string {
	if strings.HasSuffix(s, "ies") {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}
