package linker

import (
	"strings"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// SQLLinker connects SqlQuery nodes to the Class/Variable symbols that look
// like the tables the query touches. Unlike the REST linker it is
// multi-match: one query may read several tables.
type SQLLinker struct{}

var _ Linker = (*SQLLinker)(nil)

func (l *SQLLinker) Name() string { return "sql" }

func (l *SQLLinker) FindEdges(nodes []ast.Node) ([]ast.Edge, error) {
	sorted := sortCandidates(nodes)

	var candidates []ast.Node
	for _, n := range sorted {
		if n.Kind == ast.NodeKindClass || n.Kind == ast.NodeKindVariable {
			candidates = append(candidates, n)
		}
	}

	var edges []ast.Edge
	seen := make(map[string]bool)
	for _, n := range sorted {
		if n.Kind != ast.NodeKindSQLQuery {
			continue
		}
		for _, table := range extractTableReferences(n.Name) {
			for _, c := range candidates {
				if !nameMatchesTable(c.Name, table) {
					continue
				}
				e := ast.Edge{Source: n.ID, Target: c.ID, Kind: ast.EdgeKindReads}
				if !seen[e.Key()] {
					seen[e.Key()] = true
					edges = append(edges, e)
				}
			}
		}
	}
	return edges, nil
}

// sqlStopWords are keywords that can follow a table-position keyword and must
// not be mistaken for table names.
var sqlStopWords = map[string]bool{
	"select": true, "where": true, "set": true, "values": true,
	"on": true, "as": true, "and": true, "or": true, "not": true,
	"inner": true, "outer": true, "left": true, "right": true, "join": true,
}

// extractTableReferences pulls table names out of SQL text: the identifier
// after FROM, JOIN, INSERT INTO, UPDATE, and DELETE FROM.
func extractTableReferences(sql string) []string {
	fields := strings.Fields(sql)
	var tables []string
	seen := make(map[string]bool)

	add := func(raw string) {
		t := strings.ToLower(strings.Trim(raw, "`\"'(),;"))
		if t == "" || sqlStopWords[t] {
			return
		}
		if !seen[t] {
			seen[t] = true
			tables = append(tables, t)
		}
	}

	for i, f := range fields {
		if i+1 >= len(fields) {
			break
		}
		switch strings.ToUpper(f) {
		case "FROM", "JOIN", "UPDATE":
			add(fields[i+1])
		case "INTO":
			if i > 0 && strings.EqualFold(fields[i-1], "INSERT") {
				add(fields[i+1])
			}
		}
	}
	return tables
}

// nameMatchesTable compares a symbol name against a table name, tolerating
// plural tables ("users" vs User) and Model/Entity suffixes (UserModel).
func nameMatchesTable(name, table string) bool {
	n := strings.ToLower(name)
	for _, suffix := range []string{"", "model", "entity"} {
		base := strings.TrimSuffix(n, suffix)
		if base == "" {
			continue
		}
		if base == table || base == singular(table) || singular(base) == singular(table) {
			return true
		}
	}
	return false
}
