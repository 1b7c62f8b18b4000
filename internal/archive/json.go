// Package archive persists graph snapshots: a portable JSON form that works
// everywhere, and a KuzuDB form behind a cgo build tag for graph-native
// storage. Both round-trip through graph.Snapshot.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/patch"
)

// GraphExport is the top-level JSON snapshot structure.
type GraphExport struct {
	Repo       string       `json:"repo"`
	ExportedAt string       `json:"exportedAt"`
	Stats      *graph.Stats `json:"stats,omitempty"`
	Nodes      []ast.Node   `json:"nodes"`
	Edges      []ast.Edge   `json:"edges"`
}

// WriteJSON writes a snapshot to path as indented JSON, creating parent
// directories as needed.
func WriteJSON(path, repo string, snap *graph.Snapshot, stats *graph.Stats) error {
	export := &GraphExport{
		Repo:       repo,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Stats:      stats,
		Nodes:      snap.Nodes,
		Edges:      snap.Edges,
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads a snapshot previously written by WriteJSON.
func ReadJSON(path string) (*GraphExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var export GraphExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &export, nil
}

// Snapshot returns the export's graph content.
func (e *GraphExport) Snapshot() *graph.Snapshot {
	return &graph.Snapshot{Nodes: e.Nodes, Edges: e.Edges}
}

// RestoreJSON loads a JSON snapshot into a store.
func RestoreJSON(ctx context.Context, path string, store graph.Store) error {
	export, err := ReadJSON(path)
	if err != nil {
		return err
	}
	return applySnapshot(ctx, export.Repo, export.Snapshot(), store)
}

// applySnapshot replays a snapshot into an empty store: one synthetic patch
// per file carrying that file's nodes, then every edge in one batch once all
// endpoints exist.
func applySnapshot(ctx context.Context, repo string, snap *graph.Snapshot, store graph.Store) error {
	byFile := make(map[string][]ast.Node)
	var order []string
	for _, n := range snap.Nodes {
		if _, seen := byFile[n.File]; !seen {
			order = append(order, n.File)
		}
		byFile[n.File] = append(byFile[n.File], n)
	}

	for _, file := range order {
		p := &patch.AstPatch{
			Repo:        repo,
			File:        file,
			AddedNodes:  byFile[file],
			TimestampMS: time.Now().UnixMilli(),
		}
		if err := store.ApplyPatch(ctx, p); err != nil {
			return fmt.Errorf("restore %s: %w", file, err)
		}
	}
	if _, err := store.AddEdges(ctx, snap.Edges); err != nil {
		return fmt.Errorf("restore edges: %w", err)
	}
	return nil
}
