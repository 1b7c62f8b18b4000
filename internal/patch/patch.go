// Package patch computes the structural delta between two parses of one file.
// The diff is a NodeId set difference, not a tree diff; it is only correct
// because node ids are content-stable across parses (ast.NewNodeID).
package patch

import (
	"time"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/parser"
)

// AstPatch is the unit of graph mutation: everything that changed for one
// file between two parses. An empty patch is legal and applying it is a
// no-op.
type AstPatch struct {
	Repo           string       `json:"repo"`
	File           string       `json:"file"`
	AddedNodes     []ast.Node   `json:"addedNodes,omitempty"`
	RemovedNodeIDs []ast.NodeID `json:"removedNodeIds,omitempty"`
	AddedEdges     []ast.Edge   `json:"addedEdges,omitempty"`
	RemovedEdges   []ast.Edge   `json:"removedEdges,omitempty"`
	TimestampMS    int64        `json:"timestampMs"`
}

// IsEmpty reports whether applying the patch would change nothing.
func (p *AstPatch) IsEmpty() bool {
	return len(p.AddedNodes) == 0 && len(p.RemovedNodeIDs) == 0 &&
		len(p.AddedEdges) == 0 && len(p.RemovedEdges) == 0
}

// OperationCount is the number of individual mutations in the patch.
func (p *AstPatch) OperationCount() int {
	return len(p.AddedNodes) + len(p.RemovedNodeIDs) + len(p.AddedEdges) + len(p.RemovedEdges)
}

// Merge folds a later patch for the same file into p. Additions that the
// later patch removes again cancel out.
func (p *AstPatch) Merge(later *AstPatch) {
	removedLater := make(map[ast.NodeID]bool, len(later.RemovedNodeIDs))
	for _, id := range later.RemovedNodeIDs {
		removedLater[id] = true
	}

	var nodes []ast.Node
	for _, n := range p.AddedNodes {
		if !removedLater[n.ID] {
			nodes = append(nodes, n)
		}
	}
	p.AddedNodes = append(nodes, later.AddedNodes...)

	stillAdded := make(map[ast.NodeID]bool, len(p.AddedNodes))
	for _, n := range p.AddedNodes {
		stillAdded[n.ID] = true
	}
	var removed []ast.NodeID
	for _, id := range append(p.RemovedNodeIDs, later.RemovedNodeIDs...) {
		if !stillAdded[id] {
			removed = append(removed, id)
		}
	}
	p.RemovedNodeIDs = dedupeIDs(removed)

	edgeRemovedLater := make(map[string]bool, len(later.RemovedEdges))
	for _, e := range later.RemovedEdges {
		edgeRemovedLater[e.Key()] = true
	}
	var edges []ast.Edge
	for _, e := range p.AddedEdges {
		if !edgeRemovedLater[e.Key()] {
			edges = append(edges, e)
		}
	}
	p.AddedEdges = append(edges, later.AddedEdges...)

	edgeStillAdded := make(map[string]bool, len(p.AddedEdges))
	for _, e := range p.AddedEdges {
		edgeStillAdded[e.Key()] = true
	}
	var removedEdges []ast.Edge
	seen := make(map[string]bool)
	for _, e := range append(p.RemovedEdges, later.RemovedEdges...) {
		k := e.Key()
		if !edgeStillAdded[k] && !seen[k] {
			seen[k] = true
			removedEdges = append(removedEdges, e)
		}
	}
	p.RemovedEdges = removedEdges
	p.TimestampMS = later.TimestampMS
}

// Build diffs two parses of one file. old may be nil for first-time indexing;
// next may be nil for deletion. Added = next − old, removed = old − next,
// with edges compared as (source, target, kind) triples.
func Build(repo, file string, old, next *parser.ParseResult) *AstPatch {
	p := &AstPatch{Repo: repo, File: file, TimestampMS: time.Now().UnixMilli()}

	oldNodes := nodeIndex(old)
	nextNodes := nodeIndex(next)

	for _, n := range resultNodes(next) {
		if _, ok := oldNodes[n.ID]; !ok {
			p.AddedNodes = append(p.AddedNodes, n)
		}
	}
	for _, n := range resultNodes(old) {
		if _, ok := nextNodes[n.ID]; !ok {
			p.RemovedNodeIDs = append(p.RemovedNodeIDs, n.ID)
		}
	}

	oldEdges := edgeIndex(old)
	nextEdges := edgeIndex(next)

	for _, e := range resultEdges(next) {
		if _, ok := oldEdges[e.Key()]; !ok {
			p.AddedEdges = append(p.AddedEdges, e)
		}
	}
	for _, e := range resultEdges(old) {
		if _, ok := nextEdges[e.Key()]; !ok {
			p.RemovedEdges = append(p.RemovedEdges, e)
		}
	}

	return p
}

func resultNodes(r *parser.ParseResult) []ast.Node {
	if r == nil {
		return nil
	}
	return r.Nodes
}

func resultEdges(r *parser.ParseResult) []ast.Edge {
	if r == nil {
		return nil
	}
	return r.Edges
}

func nodeIndex(r *parser.ParseResult) map[ast.NodeID]ast.Node {
	nodes := resultNodes(r)
	out := make(map[ast.NodeID]ast.Node, len(nodes))
	for _, n := range nodes {
		out[n.ID] = n
	}
	return out
}

func edgeIndex(r *parser.ParseResult) map[string]ast.Edge {
	edges := resultEdges(r)
	out := make(map[string]ast.Edge, len(edges))
	for _, e := range edges {
		out[e.Key()] = e
	}
	return out
}

func dedupeIDs(ids []ast.NodeID) []ast.NodeID {
	seen := make(map[ast.NodeID]bool, len(ids))
	var out []ast.NodeID
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
