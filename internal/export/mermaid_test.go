package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/graph"
)

func mk(file, name string, kind ast.NodeKind, start int) ast.Node {
	span := ast.Span{StartByte: start, EndByte: start + 10, StartLine: 1, EndLine: 1}
	return ast.NewNode("repo", kind, name, file, span, ast.LangPython)
}

func TestGenerateMermaid(t *testing.T) {
	foo := mk("a.py", "foo", ast.NodeKindFunction, 0)
	bar := mk("b.py", "bar", ast.NodeKindFunction, 0)
	call := mk("b.py", "foo", ast.NodeKindCall, 20)
	imp := mk("b.py", "a", ast.NodeKindImport, 40)

	snap := &graph.Snapshot{
		Nodes: []ast.Node{foo, bar, call, imp},
		Edges: []ast.Edge{
			{Source: bar.ID, Target: call.ID, Kind: ast.EdgeKindCalls},
			{Source: call.ID, Target: foo.ID, Kind: ast.EdgeKindCalls},
		},
	}

	out := GenerateMermaid(snap)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `subgraph F0["a.py"]`)
	assert.Contains(t, out, `subgraph F1["b.py"]`)
	assert.Contains(t, out, `["foo"]`)
	assert.Contains(t, out, `["bar"]`)
	assert.NotContains(t, out, "import", "import nodes are not drawn")

	// The call site collapses onto bar, so exactly one arrow: bar calls foo.
	assert.Equal(t, 1, strings.Count(out, "-->"))
	assert.Contains(t, out, "|calls|")
}

func TestGenerateMermaid_InheritanceArrows(t *testing.T) {
	base := mk("m.py", "Base", ast.NodeKindClass, 0)
	user := mk("m.py", "User", ast.NodeKindClass, 30)
	snap := &graph.Snapshot{
		Nodes: []ast.Node{base, user},
		Edges: []ast.Edge{{Source: user.ID, Target: base.ID, Kind: ast.EdgeKindExtends}},
	}

	out := GenerateMermaid(snap)
	assert.Contains(t, out, "|extends|")
}

func TestGenerateMermaid_EmptySnapshot(t *testing.T) {
	out := GenerateMermaid(&graph.Snapshot{})
	assert.Equal(t, "graph TD\n", out)
}
