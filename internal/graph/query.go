package graph

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// DefaultMaxDepth bounds path and inheritance traversals when the caller
// passes no limit.
const DefaultMaxDepth = 10

// DefaultSearchLimit caps symbol search results when the caller passes no
// limit.
const DefaultSearchLimit = 50

// edgeKindPriority orders edges for deterministic BFS tie-breaking: lower is
// expanded first. Kinds not listed sort last, by insertion order.
var edgeKindPriority = map[ast.EdgeKind]int{
	ast.EdgeKindCalls:      0,
	ast.EdgeKindExtends:    1,
	ast.EdgeKindImplements: 2,
	ast.EdgeKindImports:    3,
	ast.EdgeKindRoutesTo:   4,
	ast.EdgeKindReads:      5,
	ast.EdgeKindWrites:     6,
	ast.EdgeKindEmits:      7,
	ast.EdgeKindRaises:     8,
}

func kindPriority(k ast.EdgeKind) int {
	if p, ok := edgeKindPriority[k]; ok {
		return p
	}
	return len(edgeKindPriority)
}

// PathBetween finds the first shortest directed path from source to target
// within maxDepth hops. Returns (nil, nil) when no such path exists. Ties are
// broken by edge-kind priority, then insertion order, so results are stable
// for an unchanged graph.
func (m *MemStore) PathBetween(_ context.Context, source, target ast.NodeID, maxDepth int) (*PathResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.nodes[source]; !ok {
		return nil, ErrNotFound
	}
	if _, ok := m.nodes[target]; !ok {
		return nil, ErrNotFound
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if source == target {
		return &PathResult{Source: source, Target: target, Path: []ast.NodeID{source}}, nil
	}

	parent := make(map[ast.NodeID]ast.Edge)
	visited := map[ast.NodeID]bool{source: true}
	queue := []ast.NodeID{source}

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var next []ast.NodeID
		for _, id := range queue {
			for _, e := range orderedEdges(m.outgoing[id]) {
				if visited[e.Target] {
					continue
				}
				visited[e.Target] = true
				parent[e.Target] = e
				if e.Target == target {
					return reconstructPath(source, target, parent), nil
				}
				next = append(next, e.Target)
			}
		}
		queue = next
	}
	return nil, nil
}

// orderedEdges returns edges sorted by kind priority, keeping insertion order
// within equal priorities.
func orderedEdges(edges []ast.Edge) []ast.Edge {
	out := make([]ast.Edge, len(edges))
	copy(out, edges)
	sort.SliceStable(out, func(i, j int) bool {
		return kindPriority(out[i].Kind) < kindPriority(out[j].Kind)
	})
	return out
}

func reconstructPath(source, target ast.NodeID, parent map[ast.NodeID]ast.Edge) *PathResult {
	var edges []ast.Edge
	for at := target; at != source; {
		e := parent[at]
		edges = append(edges, e)
		at = e.Source
	}
	// Reverse into source-to-target order.
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	path := make([]ast.NodeID, 0, len(edges)+1)
	path = append(path, source)
	for _, e := range edges {
		path = append(path, e.Target)
	}
	return &PathResult{
		Source:   source,
		Target:   target,
		Path:     path,
		Edges:    edges,
		Distance: len(edges),
	}
}

// inheritanceKinds are the edges inheritance queries traverse.
var inheritanceKinds = []ast.EdgeKind{ast.EdgeKindExtends, ast.EdgeKindImplements}

// InheritanceInfo walks Extends/Implements edges transitively in both
// directions with cycle guards. filter limits the walk to bases or
// subclasses; the chain is always computed.
func (m *MemStore) InheritanceInfo(ctx context.Context, classID ast.NodeID, filter InheritanceFilter) (*InheritanceInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[classID]
	if !ok {
		return nil, ErrNotFound
	}

	info := &InheritanceInfo{ClassID: classID, ClassName: n.Name}
	if filter == "" {
		filter = InheritanceAll
	}
	if filter == InheritanceAll || filter == InheritanceBases {
		info.BaseClasses = m.walkInheritanceLocked(classID, false)
	}
	if filter == InheritanceAll || filter == InheritanceSubclasses {
		info.Subclasses = m.walkInheritanceLocked(classID, true)
	}
	info.Chain = m.inheritanceChainLocked(classID)
	return info, nil
}

// walkInheritanceLocked BFS-walks inheritance edges. reverse=false follows
// outgoing edges (bases); reverse=true follows incoming (subclasses).
func (m *MemStore) walkInheritanceLocked(start ast.NodeID, reverse bool) []InheritanceRelation {
	visited := map[ast.NodeID]bool{start: true}
	queue := []ast.NodeID{start}
	var out []InheritanceRelation

	direct := true
	for len(queue) > 0 {
		var next []ast.NodeID
		for _, id := range queue {
			adj := m.outgoing[id]
			if reverse {
				adj = m.incoming[id]
			}
			for _, e := range filterEdges(adj, inheritanceKinds) {
				other := e.Target
				if reverse {
					other = e.Source
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				rel := InheritanceRelation{ID: other, Kind: e.Kind, Direct: direct}
				if n, ok := m.nodes[other]; ok {
					rel.Name = n.Name
				}
				out = append(out, rel)
				next = append(next, other)
			}
		}
		queue = next
		direct = false
	}
	return out
}

// inheritanceChainLocked follows Extends edges outward from the class,
// preferring the first stored edge at each step, until a root or a cycle.
func (m *MemStore) inheritanceChainLocked(start ast.NodeID) []ast.NodeID {
	chain := []ast.NodeID{start}
	visited := map[ast.NodeID]bool{start: true}
	at := start
	for {
		ext := filterEdges(m.outgoing[at], []ast.EdgeKind{ast.EdgeKindExtends})
		if len(ext) == 0 {
			return chain
		}
		next := ext[0].Target
		if visited[next] {
			return chain // cycle, truncate
		}
		visited[next] = true
		chain = append(chain, next)
		at = next
	}
}

// IsSubclassOf reports whether ancestor is reachable from child over
// inheritance edges. A class is not its own ancestor.
func (m *MemStore) IsSubclassOf(_ context.Context, child, ancestor ast.NodeID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.nodes[child]; !ok {
		return false, ErrNotFound
	}
	visited := map[ast.NodeID]bool{child: true}
	queue := []ast.NodeID{child}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range filterEdges(m.outgoing[id], inheritanceKinds) {
			if e.Target == ancestor {
				return true, nil
			}
			if !visited[e.Target] {
				visited[e.Target] = true
				queue = append(queue, e.Target)
			}
		}
	}
	return false, nil
}

// symbolKinds are the node kinds SearchSymbols reports. Call sites, imports,
// and literals share names with the definitions they reference and would
// drown them out.
var symbolKinds = map[ast.NodeKind]bool{
	ast.NodeKindModule:   true,
	ast.NodeKindClass:    true,
	ast.NodeKindFunction: true,
	ast.NodeKindMethod:   true,
	ast.NodeKindVariable: true,
	ast.NodeKindRoute:    true,
}

// SearchSymbols matches definition-kind node names against pattern, first as
// a regular expression and, when the pattern does not compile, as a
// case-insensitive substring. Results are ordered by file then span and
// capped at limit.
func (m *MemStore) SearchSymbols(_ context.Context, pattern string, limit int) ([]ast.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var match func(string) bool
	if re, err := regexp.Compile(pattern); err == nil {
		match = re.MatchString
	} else {
		needle := strings.ToLower(pattern)
		match = func(name string) bool {
			return strings.Contains(strings.ToLower(name), needle)
		}
	}

	var out []ast.Node
	for _, n := range m.nodes {
		if symbolKinds[n.Kind] && match(n.Name) {
			out = append(out, n)
		}
	}
	sortNodes(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
