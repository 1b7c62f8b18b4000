package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/dusk-indust/codegraph/internal/archive"
	"github.com/dusk-indust/codegraph/internal/ast"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	in := fs.String("in", "codegraph.json", "path to a snapshot written by export")
	if err := fs.Parse(args); err != nil {
		return err
	}

	export, err := archive.ReadJSON(*in)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot: %s (exported %s)\n\n", export.Repo, export.ExportedAt)

	files := make(map[string]bool)
	byKind := make(map[ast.NodeKind]int)
	for _, n := range export.Nodes {
		files[n.File] = true
		byKind[n.Kind]++
	}
	byEdgeKind := make(map[ast.EdgeKind]int)
	for _, e := range export.Edges {
		byEdgeKind[e.Kind]++
	}

	fmt.Printf("  %d files, %d nodes, %d edges\n\n", len(files), len(export.Nodes), len(export.Edges))
	for _, line := range sortedCounts(byKind) {
		fmt.Printf("  %s\n", line)
	}
	fmt.Println()
	for _, line := range sortedCounts(byEdgeKind) {
		fmt.Printf("  %s\n", line)
	}
	return nil
}

// sortedCounts renders a count map as aligned, alphabetized lines.
func sortedCounts[K ~string](m map[K]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%-12s %d", k, m[K(k)]))
	}
	return out
}
