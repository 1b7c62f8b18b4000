package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// tsExtractor converts TypeScript parse trees into universal nodes and edges.
type tsExtractor struct{}

func (e *tsExtractor) Extract(repo, filePath string, root *tree_sitter.Node, source []byte) ([]ast.Node, []ast.Edge) {
	w := newWalker(repo, filePath, ast.LangTypeScript, root, source)
	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor, w)
	return w.nodes, w.edges
}

func (e *tsExtractor) walk(cursor *tree_sitter.TreeCursor, w *walker) {
	node := cursor.Node()
	popAfter := false

	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		if id, ok := e.addNamed(node, w, ast.NodeKindFunction); ok {
			w.push(id)
			popAfter = true
		}

	case "method_definition":
		if id, ok := e.addNamed(node, w, ast.NodeKindMethod); ok {
			w.push(id)
			popAfter = true
		}

	case "class_declaration", "abstract_class_declaration":
		if id, ok := e.addClass(node, w); ok {
			w.push(id)
			popAfter = true
		}

	case "import_statement":
		if src := node.ChildByFieldName("source"); src != nil {
			w.addImport(node, trimQuotes(src.Utf8Text(w.src)))
		}

	case "call_expression":
		e.addCallOrRoute(node, w)

	case "lexical_declaration", "variable_declaration":
		if len(w.scope) == 1 {
			e.addVariables(node, w)
		}

	case "string", "template_string":
		w.maybeAddSQL(node)
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, w)
		for cursor.GotoNextSibling() {
			e.walk(cursor, w)
		}
		cursor.GotoParent()
	}
	if popAfter {
		w.pop()
	}
}

func (e *tsExtractor) addNamed(node *tree_sitter.Node, w *walker, kind ast.NodeKind) (ast.NodeID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	n := ast.NewNode(w.repo, kind, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang)
	if params := node.ChildByFieldName("parameters"); params != nil {
		n.Signature = params.Utf8Text(w.src)
	}
	return w.add(n), true
}

func (e *tsExtractor) addClass(node *tree_sitter.Node, w *walker) (ast.NodeID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	n := ast.NewNode(w.repo, ast.NodeKindClass, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang)

	// class_heritage holds extends and implements clauses.
	meta := make(map[string]string)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "class_heritage" {
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			clause := child.Child(j)
			if clause == nil {
				continue
			}
			switch clause.Kind() {
			case "extends_clause":
				if names := heritageNames(clause, w.src); len(names) > 0 {
					meta["bases"] = strings.Join(names, ",")
				}
			case "implements_clause":
				if names := heritageNames(clause, w.src); len(names) > 0 {
					meta["implements"] = strings.Join(names, ",")
				}
			}
		}
	}
	if len(meta) > 0 {
		n.Metadata = meta
	}
	return w.add(n), true
}

// addCallOrRoute emits a Route node for router-registration calls like
// app.get("/users", handler) and a Call node otherwise.
func (e *tsExtractor) addCallOrRoute(node *tree_sitter.Node, w *walker) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	switch fn.Kind() {
	case "identifier":
		w.addCall(node, fn.Utf8Text(w.src))
	case "member_expression":
		text := fn.Utf8Text(w.src)
		if args := node.ChildByFieldName("arguments"); args != nil {
			if method, path, ok := routeFromCallText(text + "(" + args.Utf8Text(w.src)); ok {
				w.addRoute(node, method, path)
				return
			}
		}
		w.addCall(node, text)
	}
}

func (e *tsExtractor) addVariables(node *tree_sitter.Node, w *walker) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		if name := child.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
			w.add(ast.NewNode(w.repo, ast.NodeKindVariable, name.Utf8Text(w.src), w.file, spanOf(child), w.lang))
		}
	}
}

// heritageNames collects type identifiers from an extends/implements clause.
func heritageNames(clause *tree_sitter.Node, source []byte) []string {
	var names []string
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "type_identifier", "member_expression", "nested_type_identifier":
			names = append(names, child.Utf8Text(source))
		}
	}
	return names
}
