package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// pyExtractor converts Python parse trees into universal nodes and edges.
type pyExtractor struct{}

func (e *pyExtractor) Extract(repo, filePath string, root *tree_sitter.Node, source []byte) ([]ast.Node, []ast.Edge) {
	w := newWalker(repo, filePath, ast.LangPython, root, source)
	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor, w)
	return w.nodes, w.edges
}

func (e *pyExtractor) walk(cursor *tree_sitter.TreeCursor, w *walker) {
	node := cursor.Node()
	popAfter := false

	switch node.Kind() {
	case "function_definition":
		if id, ok := e.addFunction(node, w); ok {
			w.push(id)
			popAfter = true
		}

	case "class_definition":
		if id, ok := e.addClass(node, w); ok {
			w.push(id)
			popAfter = true
		}

	case "decorator":
		if method, path, ok := routeFromCallText(node.Utf8Text(w.src)); ok {
			w.addRoute(node, method, path)
		}

	case "import_statement", "import_from_statement":
		e.addImports(node, w)

	case "call":
		if fn := node.ChildByFieldName("function"); fn != nil {
			switch fn.Kind() {
			case "identifier", "attribute":
				w.addCall(node, fn.Utf8Text(w.src))
			}
		}

	case "string":
		w.maybeAddSQL(node)

	case "assignment":
		// Module-level assignments to a bare name become variables.
		if len(w.scope) == 1 {
			if left := node.ChildByFieldName("left"); left != nil && left.Kind() == "identifier" {
				w.add(ast.NewNode(w.repo, ast.NodeKindVariable, left.Utf8Text(w.src), w.file, spanOf(node), w.lang))
			}
		}
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

func (e *pyExtractor) addFunction(node *tree_sitter.Node, w *walker) (ast.NodeID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	kind := ast.NodeKindFunction
	if enclosingClassName(node, w.src) != "" {
		kind = ast.NodeKindMethod
	}
	n := ast.NewNode(w.repo, kind, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang)
	if params := node.ChildByFieldName("parameters"); params != nil {
		n.Signature = params.Utf8Text(w.src)
	}
	return w.add(n), true
}

func (e *pyExtractor) addClass(node *tree_sitter.Node, w *walker) (ast.NodeID, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return "", false
	}
	n := ast.NewNode(w.repo, ast.NodeKindClass, nameNode.Utf8Text(w.src), w.file, spanOf(node), w.lang)
	if bases := classBases(node, w.src); len(bases) > 0 {
		n.Metadata = map[string]string{"bases": strings.Join(bases, ",")}
	}
	return w.add(n), true
}

// addImports emits one Import node per imported module name.
func (e *pyExtractor) addImports(node *tree_sitter.Node, w *walker) {
	if node.Kind() == "import_from_statement" {
		if mod := node.ChildByFieldName("module_name"); mod != nil {
			w.addImport(node, mod.Utf8Text(w.src))
		}
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			w.addImport(node, child.Utf8Text(w.src))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				w.addImport(node, name.Utf8Text(w.src))
			}
		}
	}
}

// classBases collects superclass names from a class_definition's argument
// list, skipping keyword arguments like metaclass=....
func classBases(node *tree_sitter.Node, source []byte) []string {
	args := node.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var bases []string
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "attribute":
			bases = append(bases, child.Utf8Text(source))
		}
	}
	return bases
}

// enclosingClassName walks the parent chain for a class_definition ancestor.
func enclosingClassName(node *tree_sitter.Node, source []byte) string {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "class_definition" {
			if name := p.ChildByFieldName("name"); name != nil {
				return name.Utf8Text(source)
			}
			return ""
		}
	}
	return ""
}

// routeVerbs are the HTTP-registration method names recognized in decorator
// and router-call text.
var routeVerbs = []string{"route", "get", "post", "put", "delete", "patch"}

// routeFromCallText scans text like `@app.route("/users")` or
// `router.get("/users")` and extracts the HTTP method and path. The generic
// "route" verb carries no method of its own.
func routeFromCallText(text string) (method, path string, ok bool) {
	lower := strings.ToLower(text)
	for _, verb := range routeVerbs {
		marker := "." + verb + "("
		i := strings.Index(lower, marker)
		if i < 0 {
			continue
		}
		rest := text[i+len(marker):]
		path = firstQuoted(rest)
		if path == "" {
			return "", "", false
		}
		if verb != "route" {
			method = verb
		}
		return method, path, true
	}
	return "", "", false
}

// firstQuoted returns the contents of the first single- or double-quoted
// string in s.
func firstQuoted(s string) string {
	start := strings.IndexAny(s, `"'`)
	if start < 0 {
		return ""
	}
	quote := s[start]
	end := strings.IndexByte(s[start+1:], quote)
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}
