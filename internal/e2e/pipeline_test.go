//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/archive"
	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/content"
	"github.com/dusk-indust/codegraph/internal/export"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/indexer"
	"github.com/dusk-indust/codegraph/internal/linker"
	"github.com/dusk-indust/codegraph/internal/parser"
	"github.com/dusk-indust/codegraph/internal/scanner"
	"github.com/dusk-indust/codegraph/internal/watcher"
)

// copyFixtures copies the python and go fixture projects into one temp repo
// so the watcher can mutate files without touching testdata.
func copyFixtures(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"py_project", "go_project"} {
		src := filepath.Join("..", "..", "testdata", "fixtures", dir)
		entries, err := os.ReadDir(src)
		require.NoError(t, err)
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(src, e.Name()))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(root, e.Name()), data, 0o644))
		}
	}
	return root
}

type env struct {
	root     string
	store    *graph.MemStore
	search   *content.SearchManager
	pipeline *indexer.Pipeline
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := copyFixtures(t)

	reg, err := parser.NewDefaultRegistry()
	require.NoError(t, err)
	engine := parser.NewEngine(reg)
	t.Cleanup(func() { engine.Close() })

	sc, err := scanner.New(root, scanner.Options{})
	require.NoError(t, err)
	store := graph.NewMemStore()
	t.Cleanup(func() { store.Close() })
	search := content.NewSearchManager()

	p := indexer.NewPipeline("e2e", sc, engine, store, search, linker.Default(), indexer.PipelineOptions{Workers: 4})
	return &env{root: root, store: store, search: search, pipeline: p}
}

func TestFullPipeline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	stats, err := e.pipeline.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.FilesIndexed)
	assert.Zero(t, stats.FilesFailed)
	assert.Equal(t, 3, stats.ByLanguage[ast.LangPython])
	assert.Equal(t, 2, stats.ByLanguage[ast.LangGo])

	// Symbols from both languages are queryable.
	symbols, err := e.store.SearchSymbols(ctx, "^GetUser$", 0)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, ast.NodeKindMethod, symbols[0].Kind)

	// Inheritance from the python fixture.
	users, err := e.store.SearchSymbols(ctx, "^User$", 0)
	require.NoError(t, err)
	var userClass *ast.Node
	for i := range users {
		if users[i].Kind == ast.NodeKindClass && users[i].Language == ast.LangPython {
			userClass = &users[i]
		}
	}
	require.NotNil(t, userClass)
	info, err := e.store.InheritanceInfo(ctx, userClass.ID, graph.InheritanceAll)
	require.NoError(t, err)
	require.Len(t, info.BaseClasses, 1)
	assert.Equal(t, "Base", info.BaseClasses[0].Name)

	// The REST linker connected the flask route to its handler.
	handlers, err := e.store.SearchSymbols(ctx, "^list_users$", 0)
	require.NoError(t, err)
	require.Len(t, handlers, 1)
	routed, err := e.store.EdgesTo(ctx, handlers[0].ID, ast.EdgeKindRoutesTo)
	require.NoError(t, err)
	assert.Len(t, routed, 1)

	// The SQL linker saw "FROM users" and linked the query to the User class.
	queries, err := e.store.NodesByKind(ctx, ast.NodeKindSQLQuery)
	require.NoError(t, err)
	require.NotEmpty(t, queries)

	// Content search spans every indexed file.
	hits := e.search.Search("NewUserService", 10)
	require.NotEmpty(t, hits)
	assert.Equal(t, "service.go", hits[0].File)
}

func TestIndexingIsDeterministic(t *testing.T) {
	ctx := context.Background()

	snapshots := make([]*graph.Snapshot, 2)
	for i := range snapshots {
		e := newEnv(t)
		_, err := e.pipeline.Bootstrap(ctx)
		require.NoError(t, err)
		snap, err := e.store.Snapshot(ctx)
		require.NoError(t, err)
		snapshots[i] = snap
	}

	assert.Equal(t, snapshots[0].Nodes, snapshots[1].Nodes)
	assert.Equal(t, snapshots[0].Edges, snapshots[1].Edges)
}

func TestWatchLoopConvergence(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := e.pipeline.Bootstrap(ctx)
	require.NoError(t, err)

	w, err := watcher.New(e.root, watcher.Options{Debounce: 50 * time.Millisecond, QueueSize: 64})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.pipeline.Run(ctx, w) }()

	// Add a new function that calls into the existing python code.
	body := "from models import foo\n\ndef freshly_added():\n    return foo()\n"
	require.NoError(t, os.WriteFile(filepath.Join(e.root, "extra.py"), []byte(body), 0o644))

	require.Eventually(t, func() bool {
		syms, err := e.store.SearchSymbols(ctx, "^freshly_added$", 0)
		return err == nil && len(syms) == 1
	}, 10*time.Second, 50*time.Millisecond)

	// The new call site resolved against the existing definition of foo.
	foos, err := e.store.SearchSymbols(ctx, "^foo$", 0)
	require.NoError(t, err)
	require.Len(t, foos, 1)
	calls, err := e.store.EdgesTo(ctx, foos[0].ID, ast.EdgeKindCalls)
	require.NoError(t, err)
	assert.NotEmpty(t, calls)

	// Delete the file again; its symbols disappear.
	require.NoError(t, os.Remove(filepath.Join(e.root, "extra.py")))
	require.Eventually(t, func() bool {
		syms, err := e.store.SearchSymbols(ctx, "^freshly_added$", 0)
		return err == nil && len(syms) == 0
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, w.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline loop did not exit")
	}
}

func TestExportRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.pipeline.Bootstrap(ctx)
	require.NoError(t, err)

	snap, err := e.store.Snapshot(ctx)
	require.NoError(t, err)
	stats, err := e.store.Stats(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, archive.WriteJSON(path, "e2e", snap, stats))

	restored := graph.NewMemStore()
	defer restored.Close()
	require.NoError(t, archive.RestoreJSON(ctx, path, restored))

	restoredSnap, err := restored.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Nodes, restoredSnap.Nodes)
	assert.Equal(t, snap.Edges, restoredSnap.Edges)

	diagram := export.GenerateMermaid(snap)
	assert.Contains(t, diagram, "graph TD")
	assert.Contains(t, diagram, "list_users")
}
