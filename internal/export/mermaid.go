// Package export renders graph snapshots into human-readable forms. The
// machine-readable forms (JSON, KuzuDB) live in internal/archive.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/graph"
)

// diagramKinds are the node kinds worth drawing. Call sites, imports, and
// literals turn a diagram into noise at any repository size.
var diagramKinds = map[ast.NodeKind]bool{
	ast.NodeKindClass:    true,
	ast.NodeKindFunction: true,
	ast.NodeKindMethod:   true,
	ast.NodeKindRoute:    true,
}

// diagramEdges maps drawable edge kinds to their Mermaid arrow labels.
var diagramEdges = map[ast.EdgeKind]string{
	ast.EdgeKindCalls:      "calls",
	ast.EdgeKindExtends:    "extends",
	ast.EdgeKindImplements: "implements",
	ast.EdgeKindRoutesTo:   "routes to",
	ast.EdgeKindReads:      "reads",
}

// GenerateMermaid produces a Mermaid `graph TD` diagram from a snapshot.
// Symbols are grouped into one subgraph per file; edges between drawable
// nodes become labeled arrows. Call-site nodes are collapsed onto their
// enclosing symbol so arrows run definition to definition.
func GenerateMermaid(snap *graph.Snapshot) string {
	byID := make(map[ast.NodeID]ast.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}

	// Call nodes collapse onto the symbol that contains them.
	enclosing := make(map[ast.NodeID]ast.NodeID)
	for _, e := range snap.Edges {
		if e.Kind != ast.EdgeKindCalls {
			continue
		}
		if tgt, ok := byID[e.Target]; ok && tgt.Kind == ast.NodeKindCall {
			enclosing[e.Target] = e.Source
		}
	}

	// Mermaid ids must be alphanumeric; assign them in snapshot order.
	ids := make(map[ast.NodeID]string)
	next := 0
	mermaidID := func(id ast.NodeID) string {
		if m, ok := ids[id]; ok {
			return m
		}
		m := fmt.Sprintf("N%d", next)
		next++
		ids[id] = m
		return m
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	byFile := make(map[string][]ast.Node)
	var files []string
	for _, n := range snap.Nodes {
		if !diagramKinds[n.Kind] {
			continue
		}
		if _, seen := byFile[n.File]; !seen {
			files = append(files, n.File)
		}
		byFile[n.File] = append(byFile[n.File], n)
	}
	sort.Strings(files)

	for i, file := range files {
		fmt.Fprintf(&sb, "  subgraph F%d[\"%s\"]\n", i, file)
		for _, n := range byFile[file] {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", mermaidID(n.ID), escapeLabel(n.Name))
		}
		sb.WriteString("  end\n")
	}

	seen := make(map[string]bool)
	for _, e := range snap.Edges {
		label, ok := diagramEdges[e.Kind]
		if !ok {
			continue
		}
		src, dst := resolveDrawable(e.Source, byID, enclosing), resolveDrawable(e.Target, byID, enclosing)
		if src == "" || dst == "" || src == dst {
			continue
		}
		line := fmt.Sprintf("  %s -->|%s| %s\n", mermaidID(src), label, mermaidID(dst))
		if seen[line] {
			continue
		}
		seen[line] = true
		sb.WriteString(line)
	}

	return sb.String()
}

// resolveDrawable maps a node to the drawable node representing it: itself
// when drawable, its enclosing symbol when it is a call site, nothing
// otherwise.
func resolveDrawable(id ast.NodeID, byID map[ast.NodeID]ast.Node, enclosing map[ast.NodeID]ast.NodeID) ast.NodeID {
	n, ok := byID[id]
	if !ok {
		return ""
	}
	if diagramKinds[n.Kind] {
		return id
	}
	if n.Kind == ast.NodeKindCall {
		if host, ok := enclosing[id]; ok {
			if hn, ok := byID[host]; ok && diagramKinds[hn.Kind] {
				return host
			}
		}
	}
	return ""
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "'")
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}
