package parser

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// rsExtractor converts Rust parse trees into universal nodes and edges.
type rsExtractor struct{}

func (e *rsExtractor) Extract(repo, filePath string, root *tree_sitter.Node, source []byte) ([]ast.Node, []ast.Edge) {
	w := newWalker(repo, filePath, ast.LangRust, root, source)
	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor, w)
	return w.nodes, w.edges
}

func (e *rsExtractor) walk(cursor *tree_sitter.TreeCursor, w *walker) {
	node := cursor.Node()
	popAfter := false

	switch node.Kind() {
	case "function_item":
		kind := ast.NodeKindFunction
		impl := enclosingImplType(node, w.src)
		if impl != "" {
			kind = ast.NodeKindMethod
		}
		if id, ok := e.addNamed(node, w, kind, impl); ok {
			w.push(id)
			popAfter = true
		}

	case "struct_item", "enum_item", "trait_item", "union_item":
		if id, ok := e.addType(node, w); ok {
			w.push(id)
			popAfter = true
		}

	case "static_item", "const_item":
		if len(w.scope) == 1 {
			if name := node.ChildByFieldName("name"); name != nil {
				w.add(ast.NewNode(w.repo, ast.NodeKindVariable, name.Utf8Text(w.src), w.file, spanOf(node), w.lang))
			}
		}

	case "use_declaration":
		if arg := node.ChildByFieldName("argument"); arg != nil {
			w.addImport(node, arg.Utf8Text(w.src))
		}

	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil {
			switch fn.Kind() {
			case "identifier", "scoped_identifier", "field_expression":
				w.addCall(node, fn.Utf8Text(w.src))
			}
		}

	case "string_literal", "raw_string_literal":
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

func (e *rsExtractor) addNamed(node *tree_sitter.Node, w *walker, kind ast.NodeKind, impl string) (ast.NodeID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	n := ast.NewNode(w.repo, kind, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang)
	if params := node.ChildByFieldName("parameters"); params != nil {
		n.Signature = params.Utf8Text(w.src)
	}
	if impl != "" {
		n.Metadata = map[string]string{"receiver": impl}
	}
	return w.add(n), true
}

func (e *rsExtractor) addType(node *tree_sitter.Node, w *walker) (ast.NodeID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	n := ast.NewNode(w.repo, ast.NodeKindClass, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang)
	n.Metadata = map[string]string{"form": node.Kind()}
	return w.add(n), true
}

// enclosingImplType walks the parent chain for an impl block and returns the
// implemented type's name.
func enclosingImplType(node *tree_sitter.Node, source []byte) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() != "impl_item" {
			continue
		}
		if t := p.ChildByFieldName("type"); t != nil {
			return t.Utf8Text(source)
		}
		return ""
	}
	return ""
}
