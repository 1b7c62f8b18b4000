package indexer

import (
	"log"
	"sync"
	"time"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// EventType classifies a pipeline event.
type EventType string

const (
	EventStarted     EventType = "started"
	EventFileIndexed EventType = "file_indexed"
	EventFileFailed  EventType = "file_failed"
	EventCompleted   EventType = "completed"
)

// PipelineEvent is one observable step of an indexing run. FileCount is set
// on EventStarted, the per-file counters on EventFileIndexed, and Stats only
// on EventCompleted.
type PipelineEvent struct {
	Type       EventType
	Path       string
	Language   ast.Language
	FileCount  int
	Nodes      int
	Edges      int
	DurationMS int64
	Err        error
	Stats      *IndexingStats
	Timestamp  time.Time
}

// EventHandler receives pipeline events. Handlers must not block; slow
// consumers stall the indexing loop.
type EventHandler interface {
	Handle(ev PipelineEvent)
}

// NoopEvents discards every event.
type NoopEvents struct{}

func (NoopEvents) Handle(PipelineEvent) {}

// LogEvents writes events through the standard logger. Per-file events are
// rate limited; start, completion, and failures always log.
type LogEvents struct {
	// Interval is the minimum gap between per-file log lines. Zero means
	// one second.
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (l *LogEvents) Handle(ev PipelineEvent) {
	switch ev.Type {
	case EventStarted:
		log.Printf("indexing started: %d files", ev.FileCount)
	case EventFileFailed:
		log.Printf("index %s: %v", ev.Path, ev.Err)
	case EventCompleted:
		if ev.Stats != nil {
			log.Printf("indexing complete: %d files, %d failed, %d nodes, %d edges in %dms",
				ev.Stats.FilesIndexed, ev.Stats.FilesFailed,
				ev.Stats.NodesAdded, ev.Stats.EdgesAdded, ev.Stats.DurationMS)
		} else {
			log.Printf("indexing complete")
		}
	case EventFileIndexed:
		interval := l.Interval
		if interval <= 0 {
			interval = time.Second
		}
		l.mu.Lock()
		due := time.Since(l.last) >= interval
		if due {
			l.last = time.Now()
		}
		l.mu.Unlock()
		if due {
			log.Printf("indexed %s", ev.Path)
		}
	}
}

// ProgressReporter observes bulk-index progress. Implementations must be safe
// for concurrent use; workers report from their own goroutines.
type ProgressReporter interface {
	Report(done, total int, path string)
}

// NoopProgress discards progress updates.
type NoopProgress struct{}

func (NoopProgress) Report(int, int, string) {}

// LogProgress logs progress at most once per Interval, plus the final update.
type LogProgress struct {
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

func (l *LogProgress) Report(done, total int, path string) {
	interval := l.Interval
	if interval <= 0 {
		interval = time.Second
	}
	l.mu.Lock()
	due := done == total || time.Since(l.last) >= interval
	if due {
		l.last = time.Now()
	}
	l.mu.Unlock()
	if due {
		log.Printf("indexing %d/%d: %s", done, total, path)
	}
}
