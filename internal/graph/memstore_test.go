package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/parser"
	"github.com/dusk-indust/codegraph/internal/patch"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mkNode(file, name string, kind ast.NodeKind, startByte int) ast.Node {
	span := ast.Span{StartByte: startByte, EndByte: startByte + 10, StartLine: 1, EndLine: 1}
	return ast.NewNode("repo", kind, name, file, span, ast.LangPython)
}

// seed applies a first-index patch containing the given nodes and edges.
func seed(t *testing.T, s Store, file string, nodes []ast.Node, edges []ast.Edge) {
	t.Helper()
	p := patch.Build("repo", file, nil, &parser.ParseResult{Nodes: nodes, Edges: edges})
	require.NoError(t, s.ApplyPatch(context.Background(), p))
}

// assertNoDangling checks the store invariant: every edge endpoint resolves.
func assertNoDangling(t *testing.T, s Store) {
	t.Helper()
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	present := make(map[ast.NodeID]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		present[n.ID] = true
	}
	for _, e := range snap.Edges {
		assert.True(t, present[e.Source], "edge source %s dangles", e.Source)
		assert.True(t, present[e.Target], "edge target %s dangles", e.Target)
	}
}

// ---------------------------------------------------------------------------
// ApplyPatch
// ---------------------------------------------------------------------------

func TestApplyPatch_FirstIndex(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	foo := mkNode("a.py", "foo", ast.NodeKindFunction, 0)
	call := mkNode("a.py", "bar", ast.NodeKindCall, 20)
	seed(t, s, "a.py", []ast.Node{foo, call}, []ast.Edge{{Source: foo.ID, Target: call.ID, Kind: ast.EdgeKindCalls}})

	got, err := s.GetNode(ctx, foo.ID)
	require.NoError(t, err)
	assert.Equal(t, "foo", got.Name)

	edges, err := s.EdgesFrom(ctx, foo.ID, ast.EdgeKindCalls)
	require.NoError(t, err)
	assert.Len(t, edges, 1)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Nodes)
	assert.Equal(t, 1, st.Edges)
	assert.Equal(t, 1, st.Files)
}

func TestApplyPatch_EdgeIdempotent(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	a := mkNode("a.py", "a", ast.NodeKindFunction, 0)
	b := mkNode("a.py", "b", ast.NodeKindFunction, 20)
	e := ast.Edge{Source: a.ID, Target: b.ID, Kind: ast.EdgeKindCalls}
	seed(t, s, "a.py", []ast.Node{a, b}, []ast.Edge{e})

	n, err := s.AddEdges(ctx, []ast.Edge{e})
	require.NoError(t, err)
	assert.Zero(t, n, "duplicate (source,target,kind) triple is a no-op")

	edges, err := s.EdgesFrom(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestApplyPatch_RemovalSweepsDanglingEdges(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	// a.py defines foo; b.py has a call node with a cross-file edge to foo.
	foo := mkNode("a.py", "foo", ast.NodeKindFunction, 0)
	call := mkNode("b.py", "foo", ast.NodeKindCall, 0)
	seed(t, s, "a.py", []ast.Node{foo}, nil)
	seed(t, s, "b.py", []ast.Node{call}, nil)

	n, err := s.AddEdges(ctx, []ast.Edge{{Source: call.ID, Target: foo.ID, Kind: ast.EdgeKindCalls}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Deleting b.py removes the call node; the cross-file edge must go too,
	// even though a.py was never re-indexed.
	del := patch.Build("repo", "b.py", &parser.ParseResult{Nodes: []ast.Node{call}}, nil)
	require.NoError(t, s.ApplyPatch(ctx, del))

	_, err = s.GetNode(ctx, call.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	incoming, err := s.EdgesTo(ctx, foo.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming, "edges referencing removed nodes are swept in the same patch")
	assertNoDangling(t, s)
}

func TestApplyPatch_Equivalence(t *testing.T) {
	// Applying patch(P1 -> P2) to a store initialized from P1 must equal a
	// store initialized directly from P2.
	foo := mkNode("a.py", "foo", ast.NodeKindFunction, 0)
	bar := mkNode("a.py", "bar", ast.NodeKindFunction, 30)
	baz := mkNode("a.py", "baz", ast.NodeKindFunction, 60)

	p1 := &parser.ParseResult{
		Nodes: []ast.Node{foo, bar},
		Edges: []ast.Edge{{Source: foo.ID, Target: bar.ID, Kind: ast.EdgeKindCalls}},
	}
	p2 := &parser.ParseResult{
		Nodes: []ast.Node{foo, baz},
		Edges: []ast.Edge{{Source: foo.ID, Target: baz.ID, Kind: ast.EdgeKindCalls}},
	}

	ctx := context.Background()

	incremental := NewMemStore()
	require.NoError(t, incremental.ApplyPatch(ctx, patch.Build("repo", "a.py", nil, p1)))
	require.NoError(t, incremental.ApplyPatch(ctx, patch.Build("repo", "a.py", p1, p2)))

	direct := NewMemStore()
	require.NoError(t, direct.ApplyPatch(ctx, patch.Build("repo", "a.py", nil, p2)))

	snapA, err := incremental.Snapshot(ctx)
	require.NoError(t, err)
	snapB, err := direct.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapB, snapA)
}

func TestAddEdges_MissingEndpointSkipped(t *testing.T) {
	s := NewMemStore()
	a := mkNode("a.py", "a", ast.NodeKindFunction, 0)
	seed(t, s, "a.py", []ast.Node{a}, nil)

	n, err := s.AddEdges(context.Background(), []ast.Edge{{Source: a.ID, Target: "missing", Kind: ast.EdgeKindCalls}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assertNoDangling(t, s)
}

// ---------------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------------

func TestFindByName(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	f1 := mkNode("a.py", "foo", ast.NodeKindFunction, 0)
	f2 := mkNode("b.py", "foo", ast.NodeKindFunction, 0)
	seed(t, s, "a.py", []ast.Node{f1}, nil)
	seed(t, s, "b.py", []ast.Node{f2}, nil)

	ids, err := s.FindByName(ctx, "foo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []ast.NodeID{f1.ID, f2.ID}, ids)

	ids, err = s.FindByName(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNodesInFile(t *testing.T) {
	s := NewMemStore()

	a := mkNode("a.py", "a", ast.NodeKindFunction, 50)
	b := mkNode("a.py", "b", ast.NodeKindFunction, 10)
	seed(t, s, "a.py", []ast.Node{a, b}, nil)

	nodes, err := s.NodesInFile(context.Background(), "a.py")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "b", nodes[0].Name, "nodes are ordered by span")
}

// ---------------------------------------------------------------------------
// PathBetween
// ---------------------------------------------------------------------------

func TestPathBetween(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	a := mkNode("g.py", "a", ast.NodeKindFunction, 0)
	b := mkNode("g.py", "b", ast.NodeKindFunction, 10)
	c := mkNode("g.py", "c", ast.NodeKindFunction, 20)
	d := mkNode("g.py", "d", ast.NodeKindFunction, 30)
	seed(t, s, "g.py", []ast.Node{a, b, c, d}, []ast.Edge{
		{Source: a.ID, Target: b.ID, Kind: ast.EdgeKindCalls},
		{Source: b.ID, Target: c.ID, Kind: ast.EdgeKindCalls},
		{Source: a.ID, Target: c.ID, Kind: ast.EdgeKindCalls},
	})

	t.Run("shortest path wins", func(t *testing.T) {
		res, err := s.PathBetween(ctx, a.ID, c.ID, 0)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 1, res.Distance)
		assert.Equal(t, []ast.NodeID{a.ID, c.ID}, res.Path)
		require.Len(t, res.Edges, 1)
	})

	t.Run("no path", func(t *testing.T) {
		res, err := s.PathBetween(ctx, a.ID, d.ID, 0)
		require.NoError(t, err)
		assert.Nil(t, res, "unreachable target yields no result")
	})

	t.Run("depth bound", func(t *testing.T) {
		res, err := s.PathBetween(ctx, a.ID, c.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Equal(t, 1, res.Distance)

		// b -> c exists but a -> b -> c exceeds depth 1 from a via b.
		res2, err := s.PathBetween(ctx, b.ID, c.ID, 1)
		require.NoError(t, err)
		require.NotNil(t, res2)
	})

	t.Run("source equals target", func(t *testing.T) {
		res, err := s.PathBetween(ctx, a.ID, a.ID, 0)
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Zero(t, res.Distance)
		assert.Equal(t, []ast.NodeID{a.ID}, res.Path)
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := s.PathBetween(ctx, "nope", a.ID, 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("deterministic", func(t *testing.T) {
		first, err := s.PathBetween(ctx, a.ID, c.ID, 0)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := s.PathBetween(ctx, a.ID, c.ID, 0)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("edges are present in store", func(t *testing.T) {
		res, err := s.PathBetween(ctx, a.ID, c.ID, 0)
		require.NoError(t, err)
		for _, e := range res.Edges {
			out, err := s.EdgesFrom(ctx, e.Source, e.Kind)
			require.NoError(t, err)
			assert.Contains(t, out, e)
		}
	})
}

// ---------------------------------------------------------------------------
// Inheritance
// ---------------------------------------------------------------------------

func TestInheritanceInfo(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	base := mkNode("m.py", "Base", ast.NodeKindClass, 0)
	mid := mkNode("m.py", "Mid", ast.NodeKindClass, 30)
	leaf := mkNode("m.py", "Leaf", ast.NodeKindClass, 60)
	iface := mkNode("m.py", "Printable", ast.NodeKindClass, 90)
	seed(t, s, "m.py", []ast.Node{base, mid, leaf, iface}, []ast.Edge{
		{Source: mid.ID, Target: base.ID, Kind: ast.EdgeKindExtends},
		{Source: leaf.ID, Target: mid.ID, Kind: ast.EdgeKindExtends},
		{Source: leaf.ID, Target: iface.ID, Kind: ast.EdgeKindImplements},
	})

	t.Run("bases", func(t *testing.T) {
		info, err := s.InheritanceInfo(ctx, leaf.ID, InheritanceAll)
		require.NoError(t, err)
		assert.Equal(t, "Leaf", info.ClassName)

		names := make(map[string]bool)
		for _, r := range info.BaseClasses {
			names[r.Name] = true
		}
		assert.True(t, names["Mid"])
		assert.True(t, names["Base"], "transitive base is reported")
		assert.True(t, names["Printable"])

		for _, r := range info.BaseClasses {
			if r.Name == "Mid" || r.Name == "Printable" {
				assert.True(t, r.Direct)
			}
			if r.Name == "Base" {
				assert.False(t, r.Direct)
			}
		}
		assert.Equal(t, []ast.NodeID{leaf.ID, mid.ID, base.ID}, info.Chain)
	})

	t.Run("subclasses", func(t *testing.T) {
		info, err := s.InheritanceInfo(ctx, base.ID, InheritanceSubclasses)
		require.NoError(t, err)
		names := make(map[string]bool)
		for _, r := range info.Subclasses {
			names[r.Name] = true
		}
		assert.True(t, names["Mid"])
		assert.True(t, names["Leaf"])
		assert.Empty(t, info.BaseClasses, "filter limits the walk")
	})

	t.Run("is subclass of", func(t *testing.T) {
		ok, err := s.IsSubclassOf(ctx, leaf.ID, base.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.IsSubclassOf(ctx, base.ID, leaf.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.IsSubclassOf(ctx, base.ID, base.ID)
		require.NoError(t, err)
		assert.False(t, ok, "a class is not its own ancestor")
	})
}

func TestInheritanceInfo_CycleTruncated(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	a := mkNode("c.py", "A", ast.NodeKindClass, 0)
	b := mkNode("c.py", "B", ast.NodeKindClass, 30)
	seed(t, s, "c.py", []ast.Node{a, b}, []ast.Edge{
		{Source: a.ID, Target: b.ID, Kind: ast.EdgeKindExtends},
		{Source: b.ID, Target: a.ID, Kind: ast.EdgeKindExtends},
	})

	info, err := s.InheritanceInfo(ctx, a.ID, InheritanceAll)
	require.NoError(t, err)
	assert.Len(t, info.BaseClasses, 1, "cycle is truncated, not looped")
	assert.Equal(t, []ast.NodeID{a.ID, b.ID}, info.Chain)

	ok, err := s.IsSubclassOf(ctx, a.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok, "mutual inheritance makes A reachable from itself through B")
}

// ---------------------------------------------------------------------------
// SearchSymbols
// ---------------------------------------------------------------------------

func TestSearchSymbols(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	nodes := []ast.Node{
		mkNode("a.py", "get_user", ast.NodeKindFunction, 0),
		mkNode("a.py", "get_users", ast.NodeKindFunction, 30),
		mkNode("a.py", "delete_user", ast.NodeKindFunction, 60),
		mkNode("a.py", "get_user", ast.NodeKindCall, 90),
	}
	seed(t, s, "a.py", nodes, nil)

	t.Run("regex", func(t *testing.T) {
		out, err := s.SearchSymbols(ctx, "^get_", 0)
		require.NoError(t, err)
		assert.Len(t, out, 2, "the call-site node is not a symbol")
	})

	t.Run("case-insensitive flag", func(t *testing.T) {
		out, err := s.SearchSymbols(ctx, "(?i)USER", 0)
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})

	t.Run("invalid regex falls back to substring", func(t *testing.T) {
		out, err := s.SearchSymbols(ctx, "get_user(", 0)
		require.NoError(t, err, "an uncompilable pattern must not error")
		assert.Empty(t, out)
	})

	t.Run("limit", func(t *testing.T) {
		out, err := s.SearchSymbols(ctx, "user", 1)
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})
}
