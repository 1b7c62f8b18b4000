package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// goExtractor converts Go parse trees into universal nodes and edges.
type goExtractor struct{}

func (e *goExtractor) Extract(repo, filePath string, root *tree_sitter.Node, source []byte) ([]ast.Node, []ast.Edge) {
	w := newWalker(repo, filePath, ast.LangGo, root, source)
	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor, w)
	return w.nodes, w.edges
}

func (e *goExtractor) walk(cursor *tree_sitter.TreeCursor, w *walker) {
	node := cursor.Node()
	popAfter := false

	switch node.Kind() {
	case "function_declaration":
		if id, ok := e.addCallable(node, w, ast.NodeKindFunction, ""); ok {
			w.push(id)
			popAfter = true
		}

	case "method_declaration":
		if id, ok := e.addCallable(node, w, ast.NodeKindMethod, receiverType(node, w.src)); ok {
			w.push(id)
			popAfter = true
		}

	case "type_declaration":
		e.addTypes(node, w)

	case "var_spec", "const_spec":
		// Package-level declarations only; locals are noise.
		if len(w.scope) == 1 {
			if nameNode := node.ChildByFieldName("name"); nameNode != nil {
				w.add(ast.NewNode(w.repo, ast.NodeKindVariable, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang))
			}
		}

	case "import_spec":
		if pathNode := node.ChildByFieldName("path"); pathNode != nil {
			w.addImport(node, strings.Trim(pathNode.Utf8Text(w.src), `"`))
		}

	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil {
			switch fn.Kind() {
			case "identifier", "selector_expression":
				w.addCall(node, fn.Utf8Text(w.src))
			}
		}

	case "interpreted_string_literal", "raw_string_literal":
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

func (e *goExtractor) addCallable(node *tree_sitter.Node, w *walker, kind ast.NodeKind, receiver string) (ast.NodeID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	n := ast.NewNode(w.repo, kind, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang)
	if params := node.ChildByFieldName("parameters"); params != nil {
		n.Signature = params.Utf8Text(w.src)
	}
	if receiver != "" {
		n.Metadata = map[string]string{"receiver": receiver}
	}
	return w.add(n), true
}

// addTypes emits one Class node per type_spec in a type_declaration. Structs
// and interfaces are both classes in the universal model; the concrete form
// lands in metadata.
func (e *goExtractor) addTypes(node *tree_sitter.Node, w *walker) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec == nil || spec.Kind() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		n := ast.NewNode(w.repo, ast.NodeKindClass, nameNode.Utf8Text(w.src), w.file, spanOf(spec), w.lang)
		if typeNode := spec.ChildByFieldName("type"); typeNode != nil {
			n.Metadata = map[string]string{"form": typeNode.Kind()}
		}
		w.add(n)
	}
}

// receiverType returns the bare receiver type name of a method declaration.
func receiverType(node *tree_sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := recv.Utf8Text(source)
	text = strings.Trim(text, "()")
	if i := strings.LastIndexByte(text, ' '); i >= 0 {
		text = text[i+1:]
	}
	return strings.TrimPrefix(text, "*")
}
