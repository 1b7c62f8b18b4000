//go:build cgo

package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/graph"
)

// KuzuArchive persists graph snapshots in a KuzuDB database so a restart can
// reload the graph without re-indexing the repository. It requires CGO
// because the go-kuzu driver wraps KuzuDB's C library. Node metadata and
// column offsets are not archived; a reload restores ids, structure, and
// line spans.
type KuzuArchive struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// NewKuzuArchive opens an in-memory KuzuDB instance, mainly for tests.
func NewKuzuArchive() (*KuzuArchive, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileArchive opens a file-based KuzuDB at the given directory path.
// KuzuDB creates the leaf directory itself for new databases.
func NewKuzuFileArchive(dbPath string) (*KuzuArchive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuArchive, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	a := &KuzuArchive{db: db, conn: conn}
	if err := a.initSchema(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the KuzuDB connection and database.
func (a *KuzuArchive) Close() error {
	if a.conn != nil {
		a.conn.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// archivedEdgeKinds lists every edge kind with its own relationship table.
// Order matters only for readability; all tables go FROM Node TO Node.
var archivedEdgeKinds = []ast.EdgeKind{
	ast.EdgeKindCalls,
	ast.EdgeKindReads,
	ast.EdgeKindWrites,
	ast.EdgeKindImports,
	ast.EdgeKindEmits,
	ast.EdgeKindRoutesTo,
	ast.EdgeKindRaises,
	ast.EdgeKindExtends,
	ast.EdgeKindImplements,
}

func (a *KuzuArchive) initSchema() error {
	stmts := []string{
		`CREATE NODE TABLE IF NOT EXISTS Node(
			id STRING,
			kind STRING,
			name STRING,
			file STRING,
			language STRING,
			signature STRING,
			start_byte INT64,
			end_byte INT64,
			start_line INT64,
			end_line INT64,
			PRIMARY KEY(id)
		)`,
	}
	for _, k := range archivedEdgeKinds {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE REL TABLE IF NOT EXISTS %s(FROM Node TO Node)", k))
	}
	for _, stmt := range stmts {
		res, err := a.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Save ----------

// Save replaces the archived graph with the given snapshot.
func (a *KuzuArchive) Save(ctx context.Context, snap *graph.Snapshot) error {
	if err := a.exec("MATCH (n:Node) DETACH DELETE n", nil); err != nil {
		return err
	}
	for _, n := range snap.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := a.exec(
			`CREATE (n:Node {
				id: $id, kind: $kind, name: $name, file: $file,
				language: $lang, signature: $sig,
				start_byte: $sb, end_byte: $eb,
				start_line: $sl, end_line: $el
			})`,
			map[string]any{
				"id":   string(n.ID),
				"kind": string(n.Kind),
				"name": n.Name,
				"file": n.File,
				"lang": string(n.Language),
				"sig":  n.Signature,
				"sb":   int64(n.Span.StartByte),
				"eb":   int64(n.Span.EndByte),
				"sl":   int64(n.Span.StartLine),
				"el":   int64(n.Span.EndLine),
			},
		)
		if err != nil {
			return err
		}
	}
	for _, e := range snap.Edges {
		if err := ctx.Err(); err != nil {
			return err
		}
		cypher := fmt.Sprintf(
			"MATCH (a:Node {id: $src}), (b:Node {id: $dst}) CREATE (a)-[:%s]->(b)",
			e.Kind)
		err := a.exec(cypher, map[string]any{
			"src": string(e.Source),
			"dst": string(e.Target),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ---------- Load ----------

// Load reads the archived graph back as a snapshot.
func (a *KuzuArchive) Load(ctx context.Context) (*graph.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := a.query(
		`MATCH (n:Node)
		 RETURN n.id, n.kind, n.name, n.file, n.language, n.signature,
		        n.start_byte, n.end_byte, n.start_line, n.end_line`, nil)
	if err != nil {
		return nil, err
	}

	snap := &graph.Snapshot{}
	for _, r := range rows {
		snap.Nodes = append(snap.Nodes, ast.Node{
			ID:        ast.NodeID(toString(r[0])),
			Kind:      ast.NodeKind(toString(r[1])),
			Name:      toString(r[2]),
			File:      toString(r[3]),
			Language:  ast.Language(toString(r[4])),
			Signature: toString(r[5]),
			Span: ast.Span{
				StartByte: toInt(r[6]),
				EndByte:   toInt(r[7]),
				StartLine: toInt(r[8]),
				EndLine:   toInt(r[9]),
			},
		})
	}

	for _, k := range archivedEdgeKinds {
		cypher := fmt.Sprintf("MATCH (a:Node)-[:%s]->(b:Node) RETURN a.id, b.id", k)
		rows, err := a.query(cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			snap.Edges = append(snap.Edges, ast.Edge{
				Source: ast.NodeID(toString(r[0])),
				Target: ast.NodeID(toString(r[1])),
				Kind:   k,
			})
		}
	}
	return snap, nil
}

// Restore replays an archived snapshot into a store as one synthetic patch
// per file, then re-adds the cross-file edges the per-file patches skip.
func Restore(ctx context.Context, repo string, snap *graph.Snapshot, store graph.Store) error {
	if err := applySnapshot(ctx, repo, snap, store); err != nil {
		return fmt.Errorf("kuzu: restore: %w", err)
	}
	return nil
}

// ---------- Internal helpers ----------

func (a *KuzuArchive) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := a.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: query: %w", err)
		}
		res.Close()
		return nil
	}
	stmt, err := a.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := a.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query collects all result rows; each row is a []any in column order.
func (a *KuzuArchive) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = a.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = a.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = a.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
