package ast

import "strings"

// --- Enums ---

// NodeKind classifies nodes in the universal code graph.
type NodeKind string

const (
	NodeKindModule    NodeKind = "module"
	NodeKindClass     NodeKind = "class"
	NodeKindFunction  NodeKind = "function"
	NodeKindMethod    NodeKind = "method"
	NodeKindParameter NodeKind = "parameter"
	NodeKindVariable  NodeKind = "variable"
	NodeKindCall      NodeKind = "call"
	NodeKindImport    NodeKind = "import"
	NodeKindLiteral   NodeKind = "literal"
	NodeKindRoute     NodeKind = "route"
	NodeKindSQLQuery  NodeKind = "sql_query"
	NodeKindEvent     NodeKind = "event"
	NodeKindUnknown   NodeKind = "unknown"
)

// EdgeKind classifies relationships between nodes.
type EdgeKind string

const (
	EdgeKindCalls      EdgeKind = "CALLS"
	EdgeKindReads      EdgeKind = "READS"
	EdgeKindWrites     EdgeKind = "WRITES"
	EdgeKindImports    EdgeKind = "IMPORTS"
	EdgeKindEmits      EdgeKind = "EMITS"
	EdgeKindRoutesTo   EdgeKind = "ROUTES_TO"
	EdgeKindRaises     EdgeKind = "RAISES"
	EdgeKindExtends    EdgeKind = "EXTENDS"
	EdgeKindImplements EdgeKind = "IMPLEMENTS"
)

// Language identifies a programming language for parsing.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "typescript"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangUnknown    Language = "unknown"
)

// Tier1Languages are languages with a bundled parser adapter (symbol
// extraction, call and import edges, inheritance) tested in CI.
var Tier1Languages = []Language{LangGo, LangTypeScript, LangPython, LangRust}

// extensions maps file extensions to the language they indicate. Detection is
// broader than the adapter set: a detected language without a registered
// adapter is skipped by the registry, not errored.
var extensions = map[string]Language{
	".go":  LangGo,
	".ts":  LangTypeScript,
	".tsx": LangTypeScript,
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".py":  LangPython,
	".pyw": LangPython,
	".rs":  LangRust,
}

// LanguageFromPath guesses the language of a file from its extension.
func LanguageFromPath(path string) Language {
	dot := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			dot = i
			break
		}
		if path[i] == '/' {
			break
		}
	}
	if dot < 0 {
		return LangUnknown
	}
	if lang, ok := extensions[strings.ToLower(path[dot:])]; ok {
		return lang
	}
	return LangUnknown
}
