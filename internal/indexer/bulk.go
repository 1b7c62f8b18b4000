package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/content"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/linker"
	"github.com/dusk-indust/codegraph/internal/parser"
	"github.com/dusk-indust/codegraph/internal/patch"
	"github.com/dusk-indust/codegraph/internal/scanner"
)

// DefaultWorkers bounds the parallel parse phase when the caller does not.
const DefaultWorkers = 4

// BulkOptions configures a bulk run. The zero value uses DefaultWorkers and
// reports nowhere.
type BulkOptions struct {
	Workers  int
	Progress ProgressReporter
	Events   EventHandler
}

// BulkIndexer indexes a whole repository: scan, parse the discovered files in
// parallel, apply the resulting patches, then run the cross-file resolution
// and linker passes over the completed graph.
type BulkIndexer struct {
	repoID  string
	scanner *scanner.Scanner
	engine  *parser.Engine
	store   graph.Store
	search  *content.SearchManager
	linkers []linker.Linker
	opts    BulkOptions
}

// NewBulkIndexer wires a bulk indexer. search and linkers may be nil to skip
// content indexing or inference.
func NewBulkIndexer(repoID string, sc *scanner.Scanner, eng *parser.Engine, store graph.Store, search *content.SearchManager, linkers []linker.Linker, opts BulkOptions) *BulkIndexer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Progress == nil {
		opts.Progress = NoopProgress{}
	}
	if opts.Events == nil {
		opts.Events = NoopEvents{}
	}
	return &BulkIndexer{
		repoID:  repoID,
		scanner: sc,
		engine:  eng,
		store:   store,
		search:  search,
		linkers: linkers,
		opts:    opts,
	}
}

// Run executes the full bulk pipeline. File-scoped failures never abort the
// run: a file that cannot be read or parsed is counted, reported through the
// event handler, and the rest of the repository still indexes. Only
// repository-scoped failures (scan root, cancellation, store errors in the
// resolution passes) are returned. Cancellation is cooperative: the scan
// checks the context between entries and the worker pool stops picking up
// files once the context is done. The returned stats are valid even when err
// is non-nil; they describe what was indexed before the failure.
func (b *BulkIndexer) Run(ctx context.Context) (*IndexingStats, error) {
	start := time.Now()
	stats := &IndexingStats{ByLanguage: make(map[ast.Language]int)}

	scan, err := b.scanner.Scan(ctx)
	if err != nil {
		return stats, fmt.Errorf("scan: %w", err)
	}
	stats.FilesDiscovered = len(scan.Files)
	total := len(scan.Files)
	b.opts.Events.Handle(PipelineEvent{Type: EventStarted, FileCount: total, Timestamp: time.Now()})

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for _, f := range scan.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileStart := time.Now()
			nodes, edges, err := b.indexFile(gctx, f)
			elapsed := time.Since(fileStart).Milliseconds()

			mu.Lock()
			done++
			skipped := false
			switch {
			case errors.Is(err, parser.ErrUnsupportedLanguage):
				stats.FilesSkipped++
				err = nil
				skipped = true
			case err != nil:
				stats.FilesFailed++
			default:
				stats.FilesIndexed++
				stats.NodesAdded += nodes
				stats.EdgesAdded += edges
				stats.ByLanguage[f.Language]++
			}
			current := done
			mu.Unlock()

			b.opts.Progress.Report(current, total, f.Path)
			if skipped {
				return nil
			}
			if err != nil {
				b.opts.Events.Handle(PipelineEvent{
					Type: EventFileFailed, Path: f.Path, Language: f.Language,
					Err: err, Timestamp: time.Now(),
				})
				return nil
			}
			b.opts.Events.Handle(PipelineEvent{
				Type: EventFileIndexed, Path: f.Path, Language: f.Language,
				Nodes: nodes, Edges: edges, DurationMS: elapsed, Timestamp: time.Now(),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		stats.DurationMS = time.Since(start).Milliseconds()
		return stats, err
	}

	resolved, err := resolveReferences(ctx, b.store)
	if err != nil {
		stats.DurationMS = time.Since(start).Milliseconds()
		return stats, fmt.Errorf("resolve references: %w", err)
	}
	stats.ResolvedEdges = resolved
	stats.EdgesAdded += resolved

	linked, err := b.runLinkers(ctx)
	if err != nil {
		stats.DurationMS = time.Since(start).Milliseconds()
		return stats, err
	}
	stats.LinkerEdges = linked
	stats.EdgesAdded += linked

	stats.DurationMS = time.Since(start).Milliseconds()
	b.opts.Events.Handle(PipelineEvent{Type: EventCompleted, Stats: stats, Timestamp: time.Now()})
	return stats, nil
}

// indexFile parses one file and applies its patch. Returns the node and edge
// counts the patch added.
func (b *BulkIndexer) indexFile(ctx context.Context, f scanner.DiscoveredFile) (int, int, error) {
	data, err := os.ReadFile(filepath.Join(b.scanner.Root(), filepath.FromSlash(f.Path)))
	if err != nil {
		return 0, 0, err
	}

	res, err := b.engine.ParseFile(ctx, b.repoID, f.Path, data)
	if err != nil {
		return 0, 0, err
	}
	if f.Vendored {
		tagVendored(res.Nodes)
	}

	p := patch.Build(b.repoID, f.Path, nil, res)
	if err := b.store.ApplyPatch(ctx, p); err != nil {
		return 0, 0, err
	}
	if b.search != nil {
		b.search.IndexFile(f.Path, data)
	}
	return len(p.AddedNodes), len(p.AddedEdges), nil
}

// runLinkers feeds the full node set to every linker and inserts what they
// infer. Duplicate edges are absorbed by the store. A failing linker only
// omits its own edges; the remaining linkers still run, and the failures come
// back joined.
func (b *BulkIndexer) runLinkers(ctx context.Context) (int, error) {
	if len(b.linkers) == 0 {
		return 0, nil
	}
	snap, err := b.store.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	inserted := 0
	var errs []error
	for _, l := range b.linkers {
		edges, err := l.FindEdges(snap.Nodes)
		if err != nil {
			errs = append(errs, fmt.Errorf("linker %s: %w", l.Name(), err))
			continue
		}
		n, err := b.store.AddEdges(ctx, edges)
		if err != nil {
			return inserted, fmt.Errorf("linker %s: %w", l.Name(), err)
		}
		inserted += n
	}
	return inserted, errors.Join(errs...)
}

// tagVendored marks every node from a dependency-tree file so queries can
// filter third-party symbols without a separate store.
func tagVendored(nodes []ast.Node) {
	for i := range nodes {
		if nodes[i].Metadata == nil {
			nodes[i].Metadata = make(map[string]string, 1)
		}
		nodes[i].Metadata["vendored"] = "true"
	}
}
