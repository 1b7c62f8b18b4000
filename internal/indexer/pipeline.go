package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/content"
	"github.com/dusk-indust/codegraph/internal/graph"
	"github.com/dusk-indust/codegraph/internal/linker"
	"github.com/dusk-indust/codegraph/internal/parser"
	"github.com/dusk-indust/codegraph/internal/patch"
	"github.com/dusk-indust/codegraph/internal/scanner"
	"github.com/dusk-indust/codegraph/internal/watcher"
)

// State is the pipeline lifecycle position. Transitions are linear except for
// Ready and Reindexing, which alternate for the life of the watch loop.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateBulkIndexing  State = "bulk_indexing"
	StateReady         State = "ready"
	StateReindexing    State = "reindexing"
	StateClosed        State = "closed"
)

// ErrPipelineClosed is returned by operations on a closed pipeline.
var ErrPipelineClosed = errors.New("pipeline closed")

// Pipeline owns the end-to-end indexing lifecycle for one repository: a bulk
// bootstrap followed by incremental re-indexing driven by watcher events.
// HandleChange is serialized; queries against the store stay consistent
// because every mutation goes through one patch at a time.
type Pipeline struct {
	repoID  string
	root    string
	scanner *scanner.Scanner
	bulk    *BulkIndexer
	engine  *parser.Engine
	store   graph.Store
	search  *content.SearchManager
	linkers []linker.Linker
	events  EventHandler

	stats PipelineStats

	mu    sync.Mutex
	state State
}

// PipelineOptions configures a pipeline. Zero value: default workers, no
// event output.
type PipelineOptions struct {
	Workers  int
	Events   EventHandler
	Progress ProgressReporter
}

// NewPipeline wires a pipeline over the given collaborators. The pipeline
// does not own the engine or store; the caller closes them after Close.
func NewPipeline(repoID string, sc *scanner.Scanner, eng *parser.Engine, store graph.Store, search *content.SearchManager, linkers []linker.Linker, opts PipelineOptions) *Pipeline {
	events := opts.Events
	if events == nil {
		events = NoopEvents{}
	}
	bulk := NewBulkIndexer(repoID, sc, eng, store, search, linkers, BulkOptions{
		Workers:  opts.Workers,
		Progress: opts.Progress,
		Events:   events,
	})
	return &Pipeline{
		repoID:  repoID,
		root:    sc.Root(),
		scanner: sc,
		bulk:    bulk,
		engine:  eng,
		store:   store,
		search:  search,
		linkers: linkers,
		events:  events,
		state:   StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns the incremental loop counters.
func (p *Pipeline) Stats() PipelineStatsSnapshot {
	return p.stats.Snapshot()
}

// Close marks the pipeline closed. In-flight HandleChange calls finish;
// subsequent calls fail with ErrPipelineClosed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateClosed
	return nil
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

// Bootstrap runs the bulk index, which emits the started, per-file, and
// completed events. Legal only from Uninitialized; a failed bootstrap returns
// the pipeline to Uninitialized so it can be retried.
func (p *Pipeline) Bootstrap(ctx context.Context) (*IndexingStats, error) {
	if err := p.transition(StateUninitialized, StateBulkIndexing); err != nil {
		return nil, err
	}

	stats, err := p.bulk.Run(ctx)
	if err != nil {
		p.setState(StateUninitialized)
		return stats, err
	}

	p.setState(StateReady)
	return stats, nil
}

// ---------------------------------------------------------------------------
// Incremental loop
// ---------------------------------------------------------------------------

// Run consumes watcher events until the context is canceled or the watcher's
// channel closes. Each change is handled to completion before the next is
// read; the watcher's debounce already coalesced rapid bursts.
func (p *Pipeline) Run(ctx context.Context, w watcher.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors():
			if ok && err != nil {
				p.events.Handle(PipelineEvent{Type: EventFileFailed, Err: err, Timestamp: time.Now()})
			}
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if err := p.HandleChange(ctx, ev); err != nil {
				if errors.Is(err, ErrPipelineClosed) {
					return nil
				}
				// Per-file failures are reported through events and do not
				// stop the loop.
			}
		}
	}
}

// HandleChange applies one filesystem change to the graph. Created and
// modified files are re-parsed against the cached tree; deleted and renamed
// files have their nodes removed. Unsupported files are ignored.
func (p *Pipeline) HandleChange(ctx context.Context, ev watcher.ChangeEvent) error {
	if err := p.transition(StateReady, StateReindexing); err != nil {
		return err
	}
	defer p.setState(StateReady)

	start := time.Now()
	var err error
	switch ev.Kind {
	case watcher.ChangeCreated, watcher.ChangeModified:
		err = p.reindexFile(ctx, ev.Path)
	case watcher.ChangeDeleted, watcher.ChangeRenamed:
		// A rename delivers the old path; the new path arrives as a create.
		err = p.removeFile(ctx, ev.Path)
	default:
		return nil
	}

	elapsed := time.Since(start).Milliseconds()
	if errors.Is(err, parser.ErrUnsupportedLanguage) {
		return nil
	}
	p.stats.record(elapsed, err != nil)
	if err != nil {
		p.events.Handle(PipelineEvent{Type: EventFileFailed, Path: ev.Path, Err: err, Timestamp: time.Now()})
		return err
	}
	p.events.Handle(PipelineEvent{Type: EventFileIndexed, Path: ev.Path, Timestamp: time.Now()})
	return nil
}

// reindexFile re-parses one file and patches the store with the difference
// from its current indexed form. The scanner's filters gate candidacy, so
// watch mode converges to the same graph a fresh bulk index would build. A
// file that vanished between the event and the read is treated as deleted.
func (p *Pipeline) reindexFile(ctx context.Context, path string) error {
	f, ok := p.scanner.Classify(path)
	if !ok {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(p.root, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return p.removeFile(ctx, path)
		}
		return err
	}

	old, err := p.indexedFileState(ctx, path)
	if err != nil {
		return err
	}
	next, err := p.engine.ParseFile(ctx, p.repoID, path, data)
	if err != nil {
		return err
	}
	if f.Vendored {
		tagVendored(next.Nodes)
	}

	pt := patch.Build(p.repoID, path, old, next)
	if err := p.store.ApplyPatch(ctx, pt); err != nil {
		return err
	}
	if p.search != nil {
		p.search.IndexFile(path, data)
	}
	return p.relink(ctx)
}

// removeFile drops every node the file contributed, its cached tree, and its
// content index entries. Edges from other files into the removed nodes are
// swept by the store.
func (p *Pipeline) removeFile(ctx context.Context, path string) error {
	old, err := p.indexedFileState(ctx, path)
	if err != nil {
		return err
	}
	if old == nil {
		return nil
	}
	pt := patch.Build(p.repoID, path, old, nil)
	if err := p.store.ApplyPatch(ctx, pt); err != nil {
		return err
	}
	p.engine.Remove(path)
	if p.search != nil {
		p.search.RemoveFile(path)
	}
	return nil
}

// indexedFileState reconstructs a parse-result view of what the store
// currently holds for one file: its nodes plus the edges between them.
// Returns nil when the file is unknown.
func (p *Pipeline) indexedFileState(ctx context.Context, path string) (*parser.ParseResult, error) {
	nodes, err := p.store.NodesInFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	inFile := make(map[ast.NodeID]bool, len(nodes))
	for _, n := range nodes {
		inFile[n.ID] = true
	}
	var edges []ast.Edge
	for _, n := range nodes {
		out, err := p.store.EdgesFrom(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range out {
			if inFile[e.Target] {
				edges = append(edges, e)
			}
		}
	}
	return &parser.ParseResult{Nodes: nodes, Edges: edges}, nil
}

// relink re-runs reference resolution and the linkers after an incremental
// change. Both passes are idempotent; the store absorbs duplicate edges, so
// only genuinely new relations land.
func (p *Pipeline) relink(ctx context.Context) error {
	if _, err := resolveReferences(ctx, p.store); err != nil {
		return fmt.Errorf("resolve references: %w", err)
	}
	if len(p.linkers) == 0 {
		return nil
	}
	snap, err := p.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, l := range p.linkers {
		edges, err := l.FindEdges(snap.Nodes)
		if err != nil {
			errs = append(errs, fmt.Errorf("linker %s: %w", l.Name(), err))
			continue
		}
		if _, err := p.store.AddEdges(ctx, edges); err != nil {
			return fmt.Errorf("linker %s: %w", l.Name(), err)
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

func (p *Pipeline) transition(from, to State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed {
		return ErrPipelineClosed
	}
	if p.state != from {
		return fmt.Errorf("pipeline state %s, want %s", p.state, from)
	}
	p.state = to
	return nil
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed {
		return
	}
	p.state = s
}
