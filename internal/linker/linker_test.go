package linker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/codegraph/internal/ast"
)

func mkNode(file, name string, kind ast.NodeKind, startByte int) ast.Node {
	span := ast.Span{StartByte: startByte, EndByte: startByte + 10, StartLine: 1, EndLine: 1}
	return ast.NewNode("repo", kind, name, file, span, ast.LangPython)
}

// ---------------------------------------------------------------------------
// RestLinker
// ---------------------------------------------------------------------------

func TestRestLinker_Match(t *testing.T) {
	route := mkNode("api.py", "/users/list", ast.NodeKindRoute, 0)
	handler := mkNode("service.py", "list_users", ast.NodeKindFunction, 0)
	unrelated := mkNode("service.py", "send_email", ast.NodeKindFunction, 50)

	edges, err := (&RestLinker{}).FindEdges([]ast.Node{route, handler, unrelated})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, route.ID, edges[0].Source)
	assert.Equal(t, handler.ID, edges[0].Target)
	assert.Equal(t, ast.EdgeKindRoutesTo, edges[0].Kind)
}

func TestRestLinker_NoOverlapNoEdge(t *testing.T) {
	route := mkNode("api.py", "/billing/invoices", ast.NodeKindRoute, 0)
	handler := mkNode("service.py", "send_email", ast.NodeKindFunction, 0)

	edges, err := (&RestLinker{}).FindEdges([]ast.Node{route, handler})
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestRestLinker_FirstMatchOnly(t *testing.T) {
	route := mkNode("api.py", "GET /users", ast.NodeKindRoute, 0)
	first := mkNode("a_service.py", "get_user", ast.NodeKindFunction, 0)
	second := mkNode("b_service.py", "list_users", ast.NodeKindFunction, 0)

	edges, err := (&RestLinker{}).FindEdges([]ast.Node{route, first, second})
	require.NoError(t, err)
	require.Len(t, edges, 1, "a route links to at most one handler")
	assert.Equal(t, first.ID, edges[0].Target, "candidate order is deterministic by file then span")
}

func TestRestLinker_MethodPrefixAndParamsIgnored(t *testing.T) {
	route := mkNode("api.ts", "POST /orders/{id}/cancel", ast.NodeKindRoute, 0)
	handler := mkNode("orders.ts", "cancelOrder", ast.NodeKindMethod, 0)

	edges, err := (&RestLinker{}).FindEdges([]ast.Node{route, handler})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, handler.ID, edges[0].Target)
}

// ---------------------------------------------------------------------------
// SQLLinker
// ---------------------------------------------------------------------------

func TestSQLLinker_MultiMatch(t *testing.T) {
	query := mkNode("repo.py", "SELECT * FROM users JOIN orders ON users.id = orders.user_id", ast.NodeKindSQLQuery, 0)
	userClass := mkNode("models.py", "User", ast.NodeKindClass, 0)
	orderClass := mkNode("models.py", "Order", ast.NodeKindClass, 50)
	other := mkNode("models.py", "Invoice", ast.NodeKindClass, 100)

	edges, err := (&SQLLinker{}).FindEdges([]ast.Node{query, userClass, orderClass, other})
	require.NoError(t, err)
	require.Len(t, edges, 2, "sql linking is multi-match")

	targets := map[ast.NodeID]bool{}
	for _, e := range edges {
		assert.Equal(t, ast.EdgeKindReads, e.Kind)
		assert.Equal(t, query.ID, e.Source)
		targets[e.Target] = true
	}
	assert.True(t, targets[userClass.ID])
	assert.True(t, targets[orderClass.ID])
}

func TestSQLLinker_SuffixedModels(t *testing.T) {
	query := mkNode("repo.py", "DELETE FROM invoices WHERE id = ?", ast.NodeKindSQLQuery, 0)
	model := mkNode("models.ts", "InvoiceModel", ast.NodeKindClass, 0)

	edges, err := (&SQLLinker{}).FindEdges([]ast.Node{query, model})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, model.ID, edges[0].Target)
}

func TestSQLLinker_NoTableNoEdge(t *testing.T) {
	query := mkNode("repo.py", "SELECT 1", ast.NodeKindSQLQuery, 0)
	model := mkNode("models.py", "User", ast.NodeKindClass, 0)

	edges, err := (&SQLLinker{}).FindEdges([]ast.Node{query, model})
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestExtractTableReferences(t *testing.T) {
	cases := map[string][]string{
		"SELECT * FROM users":                          {"users"},
		"INSERT INTO orders (a) VALUES (1)":            {"orders"},
		"UPDATE accounts SET balance = 0":              {"accounts"},
		"SELECT a FROM t1 JOIN t2 ON t1.x = t2.y":      {"t1", "t2"},
		"DELETE FROM sessions WHERE expired":           {"sessions"},
		"SELECT * FROM (SELECT * FROM inner_q) AS sub": {"inner_q"},
	}
	for sql, want := range cases {
		got := extractTableReferences(sql)
		assert.Subset(t, got, want, "sql %q", sql)
	}
}
