package mcptools

import (
	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/content"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/indexer"
)

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// IndexRepositoryInput is the input for the index_repository MCP tool.
type IndexRepositoryInput struct {
	RepoPath    string   `json:"repoPath" jsonschema:"the absolute path to the repository to index"`
	ExcludeDirs []string `json:"excludeDirs,omitempty" jsonschema:"directories to exclude from indexing (e.g. generated, docs)"`
	Workers     int      `json:"workers,omitempty" jsonschema:"parallel parse workers (default: 4)"`
}

// IndexRepositoryOutput is the result of the index_repository MCP tool.
type IndexRepositoryOutput struct {
	Stats indexer.IndexingStats `json:"stats"`
}

// SearchSymbolsInput is the input for the search_symbols MCP tool.
type SearchSymbolsInput struct {
	Pattern string `json:"pattern" jsonschema:"regular expression matched against symbol names; falls back to case-insensitive substring when invalid"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 50)"`
}

// SearchSymbolsOutput is the result of the search_symbols MCP tool.
type SearchSymbolsOutput struct {
	Symbols []ast.Node `json:"symbols"`
	Total   int        `json:"total"`
}

// SearchContentInput is the input for the search_content MCP tool.
type SearchContentInput struct {
	Query string `json:"query" jsonschema:"tokens to search for; a line matches when it contains every token"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of matching lines (default: 50)"`
}

// SearchContentOutput is the result of the search_content MCP tool.
type SearchContentOutput struct {
	Matches []content.SearchResult `json:"matches"`
	Total   int                    `json:"total"`
}

// PathBetweenInput is the input for the path_between MCP tool.
type PathBetweenInput struct {
	SourceID string `json:"sourceId" jsonschema:"node id of the path source"`
	TargetID string `json:"targetId" jsonschema:"node id of the path target"`
	MaxDepth int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 10)"`
}

// PathBetweenOutput is the result of the path_between MCP tool. Found is
// false when no path exists within the depth bound.
type PathBetweenOutput struct {
	Found bool              `json:"found"`
	Path  *graph.PathResult `json:"path,omitempty"`
}

// InheritanceInfoInput is the input for the inheritance_info MCP tool.
type InheritanceInfoInput struct {
	ClassID string `json:"classId" jsonschema:"node id of the class"`
	Filter  string `json:"filter,omitempty" jsonschema:"which relations to report: all, bases, or subclasses (default: all)"`
}

// InheritanceInfoOutput is the result of the inheritance_info MCP tool.
type InheritanceInfoOutput struct {
	Info *graph.InheritanceInfo `json:"info"`
}

// GraphStatsInput is the input for the graph_stats MCP tool.
type GraphStatsInput struct{}

// GraphStatsOutput is the result of the graph_stats MCP tool.
type GraphStatsOutput struct {
	Graph   *graph.Stats   `json:"graph"`
	Content *content.Stats `json:"content,omitempty"`
}
