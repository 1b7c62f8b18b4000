package indexer

import (
	"context"
	"strings"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/graph"
)

// resolveReferences runs after all files are in the store. Extractors only see
// one file at a time, so call sites and inheritance clauses come out as names;
// this pass turns those names into edges:
//
//   - each Call node gains a CALLS edge to a Function or Method with the same
//     trailing name, preferring a definition in the same file; a call with no
//     callable match resolves to a Class of that name (a constructor call)
//   - each Class with recorded base or interface names gains EXTENDS and
//     IMPLEMENTS edges to the matching Class nodes
//
// Returns the number of edges actually inserted.
func resolveReferences(ctx context.Context, store graph.Store) (int, error) {
	snap, err := store.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	callables := make(map[string][]ast.Node)
	classes := make(map[string][]ast.Node)
	for _, n := range snap.Nodes {
		switch n.Kind {
		case ast.NodeKindFunction, ast.NodeKindMethod:
			callables[n.Name] = append(callables[n.Name], n)
		case ast.NodeKindClass:
			classes[n.Name] = append(classes[n.Name], n)
		}
	}

	var edges []ast.Edge
	for _, n := range snap.Nodes {
		switch n.Kind {
		case ast.NodeKindCall:
			name := trailingName(n.Name)
			target, ok := pickTarget(callables[name], n.File)
			if !ok {
				target, ok = pickTarget(classes[name], n.File)
			}
			if !ok {
				continue
			}
			edges = append(edges, ast.Edge{Source: n.ID, Target: target.ID, Kind: ast.EdgeKindCalls})
		case ast.NodeKindClass:
			for _, base := range splitNames(n.Metadata["bases"]) {
				if target, ok := pickTarget(classes[trailingName(base)], n.File); ok && target.ID != n.ID {
					edges = append(edges, ast.Edge{Source: n.ID, Target: target.ID, Kind: ast.EdgeKindExtends})
				}
			}
			for _, iface := range splitNames(n.Metadata["implements"]) {
				if target, ok := pickTarget(classes[trailingName(iface)], n.File); ok && target.ID != n.ID {
					edges = append(edges, ast.Edge{Source: n.ID, Target: target.ID, Kind: ast.EdgeKindImplements})
				}
			}
		}
	}

	if len(edges) == 0 {
		return 0, nil
	}
	return store.AddEdges(ctx, edges)
}

// pickTarget chooses one definition among candidates: same-file first, then
// the first in snapshot order. Snapshot order is deterministic, so resolution
// is too.
func pickTarget(candidates []ast.Node, file string) (ast.Node, bool) {
	if len(candidates) == 0 {
		return ast.Node{}, false
	}
	for _, c := range candidates {
		if c.File == file {
			return c, true
		}
	}
	return candidates[0], true
}

// trailingName strips qualifier prefixes: "self.save" and "db::open" both
// reduce to the bare symbol.
func trailingName(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func splitNames(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
