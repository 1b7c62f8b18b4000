package mcptools

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/content"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/indexer"
	"github.com/dusk-indust/codegraph/internal/linker"
	"github.com/dusk-indust/codegraph/internal/parser"
	"github.com/dusk-indust/codegraph/internal/scanner"
)

// Service holds the graph store and content index the MCP tool handlers read
// from. All tools except index_repository are read-only.
type Service struct {
	store  graph.Store
	search *content.SearchManager
}

// NewService creates a Service over the given store and content index.
// search may be nil; search_content then reports an empty index.
func NewService(store graph.Store, search *content.SearchManager) *Service {
	return &Service{store: store, search: search}
}

// IndexRepository bulk-indexes a repository into the service's store.
func (s *Service) IndexRepository(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexRepositoryInput,
) (*mcp.CallToolResult, IndexRepositoryOutput, error) {
	if input.RepoPath == "" {
		return nil, IndexRepositoryOutput{}, errors.New("repoPath is required")
	}
	info, err := os.Stat(input.RepoPath)
	if err != nil {
		return nil, IndexRepositoryOutput{}, fmt.Errorf("cannot access repoPath: %w", err)
	}
	if !info.IsDir() {
		return nil, IndexRepositoryOutput{}, fmt.Errorf("repoPath is not a directory: %s", input.RepoPath)
	}

	sc, err := scanner.New(input.RepoPath, scanner.Options{ExcludeDirs: input.ExcludeDirs})
	if err != nil {
		return nil, IndexRepositoryOutput{}, err
	}
	reg, err := parser.NewDefaultRegistry()
	if err != nil {
		return nil, IndexRepositoryOutput{}, err
	}
	engine := parser.NewEngine(reg)
	defer engine.Close()

	bulk := indexer.NewBulkIndexer(input.RepoPath, sc, engine, s.store, s.search,
		linker.Default(), indexer.BulkOptions{Workers: input.Workers})
	stats, err := bulk.Run(ctx)
	if err != nil {
		return nil, IndexRepositoryOutput{}, err
	}
	return nil, IndexRepositoryOutput{Stats: *stats}, nil
}

// SearchSymbols finds graph nodes whose name matches a pattern.
func (s *Service) SearchSymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchSymbolsInput,
) (*mcp.CallToolResult, SearchSymbolsOutput, error) {
	if input.Pattern == "" {
		return nil, SearchSymbolsOutput{}, errors.New("pattern is required")
	}
	nodes, err := s.store.SearchSymbols(ctx, input.Pattern, input.Limit)
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}
	return nil, SearchSymbolsOutput{Symbols: nodes, Total: len(nodes)}, nil
}

// SearchContent finds source lines containing every query token.
func (s *Service) SearchContent(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SearchContentInput,
) (*mcp.CallToolResult, SearchContentOutput, error) {
	if input.Query == "" {
		return nil, SearchContentOutput{}, errors.New("query is required")
	}
	if s.search == nil {
		return nil, SearchContentOutput{}, nil
	}
	matches := s.search.Search(input.Query, input.Limit)
	return nil, SearchContentOutput{Matches: matches, Total: len(matches)}, nil
}

// PathBetween finds the shortest edge path between two nodes.
func (s *Service) PathBetween(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PathBetweenInput,
) (*mcp.CallToolResult, PathBetweenOutput, error) {
	if input.SourceID == "" || input.TargetID == "" {
		return nil, PathBetweenOutput{}, errors.New("sourceId and targetId are required")
	}
	res, err := s.store.PathBetween(ctx,
		ast.NodeID(input.SourceID), ast.NodeID(input.TargetID), input.MaxDepth)
	if err != nil {
		return nil, PathBetweenOutput{}, err
	}
	return nil, PathBetweenOutput{Found: res != nil, Path: res}, nil
}

// InheritanceInfo reports a class's bases, subclasses, and chain.
func (s *Service) InheritanceInfo(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input InheritanceInfoInput,
) (*mcp.CallToolResult, InheritanceInfoOutput, error) {
	if input.ClassID == "" {
		return nil, InheritanceInfoOutput{}, errors.New("classId is required")
	}
	filter := graph.InheritanceFilter(input.Filter)
	if filter == "" {
		filter = graph.InheritanceAll
	}
	info, err := s.store.InheritanceInfo(ctx, ast.NodeID(input.ClassID), filter)
	if err != nil {
		return nil, InheritanceInfoOutput{}, err
	}
	return nil, InheritanceInfoOutput{Info: info}, nil
}

// GraphStats returns graph and content index counters.
func (s *Service) GraphStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatsInput,
) (*mcp.CallToolResult, GraphStatsOutput, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GraphStatsOutput{}, err
	}
	out := GraphStatsOutput{Graph: stats}
	if s.search != nil {
		cs := s.search.Stats()
		out.Content = &cs
	}
	return nil, out, nil
}
