package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/parser"
)

func mkNode(name string, startByte int) ast.Node {
	span := ast.Span{StartByte: startByte, EndByte: startByte + 10, StartLine: 1, EndLine: 1}
	return ast.NewNode("repo", ast.NodeKindFunction, name, "a.py", span, ast.LangPython)
}

func result(nodes []ast.Node, edges []ast.Edge) *parser.ParseResult {
	return &parser.ParseResult{Nodes: nodes, Edges: edges}
}

func TestBuild_FirstIndex(t *testing.T) {
	foo := mkNode("foo", 0)
	bar := mkNode("bar", 20)
	edge := ast.Edge{Source: foo.ID, Target: bar.ID, Kind: ast.EdgeKindCalls}

	p := Build("repo", "a.py", nil, result([]ast.Node{foo, bar}, []ast.Edge{edge}))

	assert.Len(t, p.AddedNodes, 2)
	assert.Len(t, p.AddedEdges, 1)
	assert.Empty(t, p.RemovedNodeIDs)
	assert.Empty(t, p.RemovedEdges)
	assert.False(t, p.IsEmpty())
	assert.Equal(t, 3, p.OperationCount())
}

func TestBuild_NoChange(t *testing.T) {
	foo := mkNode("foo", 0)
	r := result([]ast.Node{foo}, nil)

	p := Build("repo", "a.py", r, r)
	assert.True(t, p.IsEmpty(), "identical parses must produce an empty patch")
}

func TestBuild_AddAndRemove(t *testing.T) {
	foo := mkNode("foo", 0)
	bar := mkNode("bar", 20)
	baz := mkNode("baz", 40)

	old := result([]ast.Node{foo, bar}, []ast.Edge{{Source: foo.ID, Target: bar.ID, Kind: ast.EdgeKindCalls}})
	next := result([]ast.Node{foo, baz}, []ast.Edge{{Source: foo.ID, Target: baz.ID, Kind: ast.EdgeKindCalls}})

	p := Build("repo", "a.py", old, next)

	require.Len(t, p.AddedNodes, 1)
	assert.Equal(t, baz.ID, p.AddedNodes[0].ID)
	require.Len(t, p.RemovedNodeIDs, 1)
	assert.Equal(t, bar.ID, p.RemovedNodeIDs[0])
	require.Len(t, p.AddedEdges, 1)
	require.Len(t, p.RemovedEdges, 1)
}

func TestBuild_Deletion(t *testing.T) {
	foo := mkNode("foo", 0)
	old := result([]ast.Node{foo}, nil)

	p := Build("repo", "a.py", old, nil)
	assert.Empty(t, p.AddedNodes)
	require.Len(t, p.RemovedNodeIDs, 1)
	assert.Equal(t, foo.ID, p.RemovedNodeIDs[0])
}

func TestMerge_CancelsOut(t *testing.T) {
	foo := mkNode("foo", 0)
	bar := mkNode("bar", 20)

	// First patch adds foo and bar; second removes bar again.
	first := Build("repo", "a.py", nil, result([]ast.Node{foo, bar}, nil))
	second := Build("repo", "a.py", result([]ast.Node{foo, bar}, nil), result([]ast.Node{foo}, nil))

	first.Merge(second)

	require.Len(t, first.AddedNodes, 1)
	assert.Equal(t, foo.ID, first.AddedNodes[0].ID)
	assert.Empty(t, first.RemovedNodeIDs, "add-then-remove cancels out")
}

func TestMerge_KeepsLaterAdditions(t *testing.T) {
	foo := mkNode("foo", 0)
	bar := mkNode("bar", 20)

	first := Build("repo", "a.py", nil, result([]ast.Node{foo}, nil))
	second := Build("repo", "a.py", result([]ast.Node{foo}, nil), result([]ast.Node{foo, bar}, nil))

	first.Merge(second)
	assert.Len(t, first.AddedNodes, 2)
}
