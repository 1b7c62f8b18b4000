package indexer

import (
	"runtime"
	"sync"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// IndexingStats summarizes one bulk-index run.
type IndexingStats struct {
	FilesDiscovered int                  `json:"filesDiscovered"`
	FilesIndexed    int                  `json:"filesIndexed"`
	FilesFailed     int                  `json:"filesFailed"`
	FilesSkipped    int                  `json:"filesSkipped"`
	NodesAdded      int                  `json:"nodesAdded"`
	EdgesAdded      int                  `json:"edgesAdded"`
	ResolvedEdges   int                  `json:"resolvedEdges"`
	LinkerEdges     int                  `json:"linkerEdges"`
	ByLanguage      map[ast.Language]int `json:"byLanguage"`
	DurationMS      int64                `json:"durationMs"`
}

// MemoryStats is a point-in-time view of the Go heap, captured after a bulk
// run so operators can size large repositories.
type MemoryStats struct {
	HeapAllocBytes uint64 `json:"heapAllocBytes"`
	HeapObjects    uint64 `json:"heapObjects"`
	NumGC          uint32 `json:"numGC"`
}

// CaptureMemoryStats reads the runtime's current heap counters.
func CaptureMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{
		HeapAllocBytes: m.HeapAlloc,
		HeapObjects:    m.HeapObjects,
		NumGC:          m.NumGC,
	}
}

// PipelineStats tracks the incremental loop across its lifetime.
type PipelineStats struct {
	mu              sync.Mutex
	eventsProcessed int
	eventsFailed    int
	totalMS         int64
}

func (s *PipelineStats) record(durationMS int64, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsProcessed++
	s.totalMS += durationMS
	if failed {
		s.eventsFailed++
	}
}

// Snapshot returns the counters as a plain value.
func (s *PipelineStats) Snapshot() PipelineStatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := PipelineStatsSnapshot{
		EventsProcessed: s.eventsProcessed,
		EventsFailed:    s.eventsFailed,
	}
	if s.eventsProcessed > 0 {
		snap.SuccessRate = float64(s.eventsProcessed-s.eventsFailed) / float64(s.eventsProcessed)
		snap.AvgProcessingMS = float64(s.totalMS) / float64(s.eventsProcessed)
	}
	return snap
}

// PipelineStatsSnapshot is the exported form of PipelineStats.
type PipelineStatsSnapshot struct {
	EventsProcessed int     `json:"eventsProcessed"`
	EventsFailed    int     `json:"eventsFailed"`
	SuccessRate     float64 `json:"successRate"`
	AvgProcessingMS float64 `json:"avgProcessingMs"`
}
