package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// extractor converts a parsed tree-sitter AST into universal nodes and edges.
type extractor interface {
	Extract(repo, filePath string, root *tree_sitter.Node, source []byte) ([]ast.Node, []ast.Edge)
}

// treeSitterParser adapts one tree-sitter grammar to the LanguageParser
// contract. The underlying parser allows one parse in flight, so Parse holds
// an exclusive lock for its duration.
type treeSitterParser struct {
	mu      sync.Mutex
	lang    ast.Language
	parser  *tree_sitter.Parser
	extract extractor
}

var _ LanguageParser = (*treeSitterParser)(nil)

func newTreeSitterParser(lang ast.Language, tsLang *tree_sitter.Language, ex extractor) (*treeSitterParser, error) {
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(tsLang); err != nil {
		p.Close()
		return nil, fmt.Errorf("set language %s: %w", lang, err)
	}
	return &treeSitterParser{lang: lang, parser: p, extract: ex}, nil
}

func (p *treeSitterParser) Language() ast.Language { return p.lang }

// Parse parses the file, reusing pc.OldTree when supplied. The returned tree
// is owned by the caller (the engine caches it); extraction walks the fresh
// tree in full even on incremental parses.
func (p *treeSitterParser) Parse(_ context.Context, pc *ParseContext) (*ParseResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree := p.parser.Parse(pc.Content, pc.OldTree)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: tree-sitter returned nil tree", pc.FilePath)
	}

	root := tree.RootNode()
	nodes, edges := p.extract.Extract(pc.RepoID, pc.FilePath, root, pc.Content)
	return &ParseResult{Tree: tree, Nodes: nodes, Edges: edges}, nil
}

func (p *treeSitterParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parser.Close()
	return nil
}

// NewDefaultRegistry returns a registry with the Go, TypeScript, Python, and
// Rust adapters installed.
func NewDefaultRegistry() (*Registry, error) {
	reg := NewRegistry()
	adapters := []struct {
		lang ast.Language
		ts   *tree_sitter.Language
		ex   extractor
	}{
		{ast.LangGo, tree_sitter.NewLanguage(tree_sitter_go.Language()), &goExtractor{}},
		{ast.LangTypeScript, tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), &tsExtractor{}},
		{ast.LangPython, tree_sitter.NewLanguage(tree_sitter_python.Language()), &pyExtractor{}},
		{ast.LangRust, tree_sitter.NewLanguage(tree_sitter_rust.Language()), &rsExtractor{}},
	}
	for _, a := range adapters {
		p, err := newTreeSitterParser(a.lang, a.ts, a.ex)
		if err != nil {
			_ = reg.Close()
			return nil, err
		}
		reg.Register(p)
	}
	return reg, nil
}

// --- shared extraction helpers ---

// spanOf converts tree-sitter byte/point ranges to a Span (1-based lines and
// columns).
func spanOf(n *tree_sitter.Node) ast.Span {
	sp := n.StartPosition()
	ep := n.EndPosition()
	return ast.Span{
		StartByte:   int(n.StartByte()),
		EndByte:     int(n.EndByte()),
		StartLine:   int(sp.Row) + 1,
		EndLine:     int(ep.Row) + 1,
		StartColumn: int(sp.Column) + 1,
		EndColumn:   int(ep.Column) + 1,
	}
}

// moduleName derives the module node name from the file path: base name
// without extension.
func moduleName(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sqlVerbs are the statement keywords that qualify a string literal as SQL.
var sqlVerbs = []string{"SELECT ", "INSERT INTO ", "UPDATE ", "DELETE FROM "}

// looksLikeSQL reports whether a string literal's text reads as a SQL
// statement.
func looksLikeSQL(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for _, v := range sqlVerbs {
		if strings.HasPrefix(upper, v) {
			return true
		}
	}
	return false
}

// trimQuotes strips one layer of matching string delimiters.
func trimQuotes(s string) string {
	for _, q := range []string{`"""`, "'''", `"`, "'", "`"} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// walker carries shared state for a single-file extraction pass: the module
// node every file gets, an enclosing-symbol stack for attributing calls, and
// the output slices.
type walker struct {
	repo  string
	file  string
	lang  ast.Language
	src   []byte
	scope []ast.NodeID // innermost last; scope[0] is the module node
	nodes []ast.Node
	edges []ast.Edge
}

func newWalker(repo, file string, lang ast.Language, root *tree_sitter.Node, src []byte) *walker {
	w := &walker{repo: repo, file: file, lang: lang, src: src}
	mod := ast.NewNode(repo, ast.NodeKindModule, moduleName(file), file, spanOf(root), lang)
	w.nodes = append(w.nodes, mod)
	w.scope = append(w.scope, mod.ID)
	return w
}

// add registers a node and returns its id.
func (w *walker) add(n ast.Node) ast.NodeID {
	w.nodes = append(w.nodes, n)
	return n.ID
}

// enclosing returns the innermost named symbol (or the module node).
func (w *walker) enclosing() ast.NodeID {
	return w.scope[len(w.scope)-1]
}

func (w *walker) push(id ast.NodeID) { w.scope = append(w.scope, id) }
func (w *walker) pop()               { w.scope = w.scope[:len(w.scope)-1] }

// link records an edge.
func (w *walker) link(src, dst ast.NodeID, kind ast.EdgeKind) {
	w.edges = append(w.edges, ast.Edge{Source: src, Target: dst, Kind: kind})
}

// addCall emits a call-site node and a Calls edge from the enclosing symbol.
func (w *walker) addCall(n *tree_sitter.Node, callee string) {
	if callee == "" {
		return
	}
	call := ast.NewNode(w.repo, ast.NodeKindCall, callee, w.file, spanOf(n), w.lang)
	w.add(call)
	w.link(w.enclosing(), call.ID, ast.EdgeKindCalls)
}

// addImport emits an import node and an Imports edge from the module.
func (w *walker) addImport(n *tree_sitter.Node, path string) {
	if path == "" {
		return
	}
	imp := ast.NewNode(w.repo, ast.NodeKindImport, path, w.file, spanOf(n), w.lang)
	w.add(imp)
	w.link(w.scope[0], imp.ID, ast.EdgeKindImports)
}

// maybeAddSQL emits a SqlQuery node when a string literal reads as SQL.
func (w *walker) maybeAddSQL(n *tree_sitter.Node) {
	text := trimQuotes(n.Utf8Text(w.src))
	if !looksLikeSQL(text) {
		return
	}
	q := ast.NewNode(w.repo, ast.NodeKindSQLQuery, strings.TrimSpace(text), w.file, spanOf(n), w.lang)
	w.add(q)
	w.link(w.enclosing(), q.ID, ast.EdgeKindReads)
}

// addRoute emits a Route node named "METHOD /path".
func (w *walker) addRoute(n *tree_sitter.Node, method, path string) {
	if path == "" {
		return
	}
	name := path
	if method != "" {
		name = strings.ToUpper(method) + " " + path
	}
	rt := ast.NewNode(w.repo, ast.NodeKindRoute, name, w.file, spanOf(n), w.lang)
	w.add(rt)
}
