package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/graph"
)

func testSnapshot() *graph.Snapshot {
	mk := func(file, name string, kind ast.NodeKind, start, end int) ast.Node {
		span := ast.Span{StartByte: start, EndByte: end, StartLine: 1, EndLine: 2}
		return ast.Node{
			ID:       ast.NewNodeID("repo", file, span, kind, name),
			Kind:     kind,
			Name:     name,
			File:     file,
			Span:     span,
			Language: ast.LangPython,
		}
	}
	foo := mk("a.py", "foo", ast.NodeKindFunction, 0, 20)
	call := mk("b.py", "foo", ast.NodeKindCall, 30, 35)
	bar := mk("b.py", "bar", ast.NodeKindFunction, 0, 40)
	return &graph.Snapshot{
		Nodes: []ast.Node{foo, bar, call},
		Edges: []ast.Edge{
			{Source: bar.ID, Target: call.ID, Kind: ast.EdgeKindCalls},
			{Source: call.ID, Target: foo.ID, Kind: ast.EdgeKindCalls},
		},
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	snap := testSnapshot()
	path := filepath.Join(t.TempDir(), "out", "graph.json")

	stats := &graph.Stats{Nodes: 3, Edges: 2, Files: 2}
	require.NoError(t, WriteJSON(path, "repo", snap, stats))

	export, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "repo", export.Repo)
	assert.NotEmpty(t, export.ExportedAt)
	require.NotNil(t, export.Stats)
	assert.Equal(t, 3, export.Stats.Nodes)
	assert.ElementsMatch(t, snap.Nodes, export.Nodes)
	assert.ElementsMatch(t, snap.Edges, export.Edges)
}

func TestJSON_RestoreIntoStore(t *testing.T) {
	snap := testSnapshot()
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, WriteJSON(path, "repo", snap, nil))

	store := graph.NewMemStore()
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, RestoreJSON(ctx, path, store))

	restored, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, snap.Nodes, restored.Nodes)
	assert.ElementsMatch(t, snap.Edges, restored.Edges)

	// Restored graphs answer queries like freshly indexed ones.
	ids, err := store.FindByName(ctx, "foo")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestReadJSON_MissingFile(t *testing.T) {
	_, err := ReadJSON(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
