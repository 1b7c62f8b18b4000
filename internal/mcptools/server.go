package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with all six code-graph tools registered.
func NewServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_repository",
		Description: "Index a repository into the code graph. Scans the file tree, parses source files with tree-sitter, applies the resulting patches, and runs cross-file resolution and the REST/SQL linkers.",
	}, svc.IndexRepository)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_symbols",
		Description: "Search graph symbols by name. The pattern is a regular expression; an invalid pattern falls back to case-insensitive substring matching.",
	}, svc.SearchSymbols)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_content",
		Description: "Search indexed source text. Returns lines containing every query token, with file and line number.",
	}, svc.SearchContent)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "path_between",
		Description: "Find the shortest edge path between two graph nodes, bounded by a maximum depth. Reports the node sequence, the edges along it, and the distance.",
	}, svc.PathBetween)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "inheritance_info",
		Description: "Report a class's inheritance: direct and transitive base classes, subclasses, and the primary inheritance chain.",
	}, svc.InheritanceInfo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Return node, edge, and file counts for the current graph, broken down by kind, plus content index counters.",
	}, svc.GraphStats)

	return server
}

// RunStdio serves the MCP tools on stdio, blocking until the client
// disconnects or the context is canceled.
func RunStdio(ctx context.Context, svc *Service) error {
	return NewServer(svc).Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP tools over streamable HTTP at addr.
func RunHTTP(ctx context.Context, svc *Service, addr string) error {
	server := NewServer(svc)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
