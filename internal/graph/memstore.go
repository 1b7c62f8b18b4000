package graph

import (
	"context"
	"sort"
	"sync"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/patch"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore is the arena implementation of Store: it owns every node and edge,
// and all cross-references are NodeID lookups. A single RWMutex serializes
// patch application against concurrent reads, so a query observes either the
// pre-patch or post-patch state of a file, never an interleaving.
type MemStore struct {
	mu       sync.RWMutex
	nodes    map[ast.NodeID]ast.Node
	outgoing map[ast.NodeID][]ast.Edge // insertion order preserved
	incoming map[ast.NodeID][]ast.Edge
	edgeKeys map[string]bool
	byName   map[string][]ast.NodeID
	byFile   map[string][]ast.NodeID
	byKind   map[ast.NodeKind][]ast.NodeID
}

// NewMemStore returns an initialized, empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:    make(map[ast.NodeID]ast.Node),
		outgoing: make(map[ast.NodeID][]ast.Edge),
		incoming: make(map[ast.NodeID][]ast.Edge),
		edgeKeys: make(map[string]bool),
		byName:   make(map[string][]ast.NodeID),
		byFile:   make(map[string][]ast.NodeID),
		byKind:   make(map[ast.NodeKind][]ast.NodeID),
	}
}

// ApplyPatch applies one file's delta atomically. Removing a node also
// removes every edge that references it, including edges added later by
// linkers or by other files; nothing dangling survives. Added edges whose
// endpoints are absent after the additions are dropped.
func (m *MemStore) ApplyPatch(_ context.Context, p *patch.AstPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range p.RemovedNodeIDs {
		m.removeNodeLocked(id)
	}
	for _, e := range p.RemovedEdges {
		m.removeEdgeLocked(e)
	}
	for _, n := range p.AddedNodes {
		m.addNodeLocked(n)
	}
	for _, e := range p.AddedEdges {
		m.addEdgeLocked(e)
	}
	return nil
}

// AddEdges inserts linker-inferred edges. Duplicate triples are no-ops and
// edges with missing endpoints are skipped; the count of edges actually
// inserted is returned.
func (m *MemStore) AddEdges(_ context.Context, edges []ast.Edge) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := 0
	for _, e := range edges {
		if m.addEdgeLocked(e) {
			added++
		}
	}
	return added, nil
}

// GetNode returns the node for an id, or ErrNotFound.
func (m *MemStore) GetNode(_ context.Context, id ast.NodeID) (*ast.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

// FindByName returns the ids of all nodes with exactly this name.
func (m *MemStore) FindByName(_ context.Context, name string) ([]ast.NodeID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byName[name]
	out := make([]ast.NodeID, len(ids))
	copy(out, ids)
	return out, nil
}

// NodesInFile returns every node belonging to a file, ordered by span.
func (m *MemStore) NodesInFile(_ context.Context, file string) ([]ast.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ast.Node, 0, len(m.byFile[file]))
	for _, id := range m.byFile[file] {
		out = append(out, m.nodes[id])
	}
	sortNodes(out)
	return out, nil
}

// NodesByKind returns every node of one kind, ordered by file then span.
func (m *MemStore) NodesByKind(_ context.Context, kind ast.NodeKind) ([]ast.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ast.Node, 0, len(m.byKind[kind]))
	for _, id := range m.byKind[kind] {
		out = append(out, m.nodes[id])
	}
	sortNodes(out)
	return out, nil
}

// EdgesFrom returns the outgoing edges of a node, optionally filtered by
// kind, in insertion order.
func (m *MemStore) EdgesFrom(_ context.Context, id ast.NodeID, kinds ...ast.EdgeKind) ([]ast.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterEdges(m.outgoing[id], kinds), nil
}

// EdgesTo returns the incoming edges of a node, optionally filtered by kind,
// in insertion order.
func (m *MemStore) EdgesTo(_ context.Context, id ast.NodeID, kinds ...ast.EdgeKind) ([]ast.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterEdges(m.incoming[id], kinds), nil
}

// Snapshot returns a deterministic full copy of the graph.
func (m *MemStore) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &Snapshot{
		Nodes: make([]ast.Node, 0, len(m.nodes)),
		Edges: make([]ast.Edge, 0, len(m.edgeKeys)),
	}
	for _, n := range m.nodes {
		snap.Nodes = append(snap.Nodes, n)
	}
	sortNodes(snap.Nodes)
	for _, edges := range m.outgoing {
		snap.Edges = append(snap.Edges, edges...)
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		return snap.Edges[i].Key() < snap.Edges[j].Key()
	})
	return snap, nil
}

// Stats returns node/edge counts broken down by kind.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := &Stats{
		Nodes:       len(m.nodes),
		Files:       len(m.byFile),
		NodesByKind: make(map[ast.NodeKind]int),
		EdgesByKind: make(map[ast.EdgeKind]int),
	}
	for _, n := range m.nodes {
		st.NodesByKind[n.Kind]++
	}
	for _, edges := range m.outgoing {
		st.Edges += len(edges)
		for _, e := range edges {
			st.EdgesByKind[e.Kind]++
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error { return nil }

// --- locked mutation helpers ---

func (m *MemStore) addNodeLocked(n ast.Node) {
	if _, exists := m.nodes[n.ID]; exists {
		m.nodes[n.ID] = n // refresh attributes, indices already point here
		return
	}
	m.nodes[n.ID] = n
	m.byName[n.Name] = append(m.byName[n.Name], n.ID)
	m.byFile[n.File] = append(m.byFile[n.File], n.ID)
	m.byKind[n.Kind] = append(m.byKind[n.Kind], n.ID)
}

func (m *MemStore) removeNodeLocked(id ast.NodeID) {
	n, ok := m.nodes[id]
	if !ok {
		return
	}
	delete(m.nodes, id)
	m.byName[n.Name] = removeID(m.byName[n.Name], id)
	if len(m.byName[n.Name]) == 0 {
		delete(m.byName, n.Name)
	}
	m.byFile[n.File] = removeID(m.byFile[n.File], id)
	if len(m.byFile[n.File]) == 0 {
		delete(m.byFile, n.File)
	}
	m.byKind[n.Kind] = removeID(m.byKind[n.Kind], id)
	if len(m.byKind[n.Kind]) == 0 {
		delete(m.byKind, n.Kind)
	}

	// Sweep every edge touching the node so nothing dangles.
	for _, e := range m.outgoing[id] {
		m.incoming[e.Target] = removeEdge(m.incoming[e.Target], e)
		delete(m.edgeKeys, e.Key())
	}
	delete(m.outgoing, id)
	for _, e := range m.incoming[id] {
		m.outgoing[e.Source] = removeEdge(m.outgoing[e.Source], e)
		delete(m.edgeKeys, e.Key())
	}
	delete(m.incoming, id)
}

func (m *MemStore) addEdgeLocked(e ast.Edge) bool {
	k := e.Key()
	if m.edgeKeys[k] {
		return false
	}
	if _, ok := m.nodes[e.Source]; !ok {
		return false
	}
	if _, ok := m.nodes[e.Target]; !ok {
		return false
	}
	m.edgeKeys[k] = true
	m.outgoing[e.Source] = append(m.outgoing[e.Source], e)
	m.incoming[e.Target] = append(m.incoming[e.Target], e)
	return true
}

func (m *MemStore) removeEdgeLocked(e ast.Edge) {
	k := e.Key()
	if !m.edgeKeys[k] {
		return
	}
	delete(m.edgeKeys, k)
	m.outgoing[e.Source] = removeEdge(m.outgoing[e.Source], e)
	m.incoming[e.Target] = removeEdge(m.incoming[e.Target], e)
}

// --- slice helpers ---

func removeID(ids []ast.NodeID, id ast.NodeID) []ast.NodeID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func removeEdge(edges []ast.Edge, e ast.Edge) []ast.Edge {
	out := edges[:0]
	for _, v := range edges {
		if v != e {
			out = append(out, v)
		}
	}
	return out
}

func filterEdges(edges []ast.Edge, kinds []ast.EdgeKind) []ast.Edge {
	if len(kinds) == 0 {
		out := make([]ast.Edge, len(edges))
		copy(out, edges)
		return out
	}
	want := make(map[ast.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var out []ast.Edge
	for _, e := range edges {
		if want[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}

func sortNodes(nodes []ast.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].File != nodes[j].File {
			return nodes[i].File < nodes[j].File
		}
		if nodes[i].Span.StartByte != nodes[j].Span.StartByte {
			return nodes[i].Span.StartByte < nodes[j].Span.StartByte
		}
		return nodes[i].ID < nodes[j].ID
	})
}
