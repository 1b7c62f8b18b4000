package main

import (
	"fmt"
	"time"

	"github.com/dusk-indust/codegraph/internal/config"
	"github.com/dusk-indust/codegraph/internal/content"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/indexer"
	"github.com/dusk-indust/codegraph/internal/linker"
	"github.com/dusk-indust/codegraph/internal/parser"
	"github.com/dusk-indust/codegraph/internal/scanner"
)

// app bundles the wired collaborators for one repository. Close releases the
// parser engine and store.
type app struct {
	cfg      *config.ProjectConfig
	repoID   string
	root     string
	engine   *parser.Engine
	store    *graph.MemStore
	search   *content.SearchManager
	pipeline *indexer.Pipeline
}

// newApp loads codegraph.yml from root and wires the indexing pipeline.
func newApp(root string, verbose bool) (*app, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	sc, err := scanner.New(root, scanner.Options{
		Mode:         scanner.DependencyMode(cfg.Scan.DependencyMode),
		ExcludeDirs:  cfg.Scan.ExcludeDirs,
		IncludeGlobs: cfg.Scan.IncludeGlobs,
		MaxFileSize:  cfg.Scan.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}

	reg, err := parser.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	engine := parser.NewEngine(reg)

	store := graph.NewMemStore()
	search := content.NewSearchManager()

	opts := indexer.PipelineOptions{
		Workers: cfg.Index.Workers,
	}
	if verbose {
		opts.Events = &indexer.LogEvents{}
		opts.Progress = &indexer.LogProgress{Interval: 2 * time.Second}
	}

	repoID := cfg.RepoID(root)
	pipeline := indexer.NewPipeline(repoID, sc, engine, store, search, linker.Default(), opts)

	return &app{
		cfg:      cfg,
		repoID:   repoID,
		root:     root,
		engine:   engine,
		store:    store,
		search:   search,
		pipeline: pipeline,
	}, nil
}

func (a *app) Close() {
	a.pipeline.Close()
	a.engine.Close()
	a.store.Close()
}

// rootArg returns the positional repository root, defaulting to ".".
func rootArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return ".", nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("expected at most one repository root, got %d arguments", len(args))
	}
}

func printStats(stats *indexer.IndexingStats) {
	fmt.Printf("files:   %d indexed, %d skipped, %d failed (of %d discovered)\n",
		stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed, stats.FilesDiscovered)
	fmt.Printf("graph:   %d nodes, %d edges (%d resolved, %d linked)\n",
		stats.NodesAdded, stats.EdgesAdded, stats.ResolvedEdges, stats.LinkerEdges)
	for lang, n := range stats.ByLanguage {
		fmt.Printf("  %-12s %d files\n", lang, n)
	}
	mem := indexer.CaptureMemoryStats()
	fmt.Printf("heap:    %.1f MiB, %d objects\n",
		float64(mem.HeapAllocBytes)/(1<<20), mem.HeapObjects)
	fmt.Printf("elapsed: %dms\n", stats.DurationMS)
}
