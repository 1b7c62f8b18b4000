package graph

import (
	"context"
	"errors"
	"io"

	"github.com/dusk-indust/codegraph/internal/ast"
	"github.com/dusk-indust/codegraph/internal/patch"
)

// ErrNotFound is returned when a node id does not resolve.
var ErrNotFound = errors.New("node not found")

// Store is the authoritative, queryable graph of all nodes and edges across
// one repository. Patches are the only legal mutation path besides AddEdges,
// which linkers use for inferred edges. Reads may run concurrently; patch
// application is serialized.
type Store interface {
	io.Closer

	// Mutation.
	ApplyPatch(ctx context.Context, p *patch.AstPatch) error
	AddEdges(ctx context.Context, edges []ast.Edge) (int, error)

	// Lookup.
	GetNode(ctx context.Context, id ast.NodeID) (*ast.Node, error)
	FindByName(ctx context.Context, name string) ([]ast.NodeID, error)
	NodesInFile(ctx context.Context, file string) ([]ast.Node, error)
	NodesByKind(ctx context.Context, kind ast.NodeKind) ([]ast.Node, error)
	EdgesFrom(ctx context.Context, id ast.NodeID, kinds ...ast.EdgeKind) ([]ast.Edge, error)
	EdgesTo(ctx context.Context, id ast.NodeID, kinds ...ast.EdgeKind) ([]ast.Edge, error)

	// Structural queries.
	PathBetween(ctx context.Context, source, target ast.NodeID, maxDepth int) (*PathResult, error)
	InheritanceInfo(ctx context.Context, classID ast.NodeID, filter InheritanceFilter) (*InheritanceInfo, error)
	IsSubclassOf(ctx context.Context, child, ancestor ast.NodeID) (bool, error)
	SearchSymbols(ctx context.Context, pattern string, limit int) ([]ast.Node, error)

	// Introspection.
	Snapshot(ctx context.Context) (*Snapshot, error)
	Stats(ctx context.Context) (*Stats, error)
}

// PathResult is the outcome of a successful path query.
type PathResult struct {
	Source   ast.NodeID   `json:"source"`
	Target   ast.NodeID   `json:"target"`
	Path     []ast.NodeID `json:"path"` // source first, target last
	Edges    []ast.Edge   `json:"edges"`
	Distance int          `json:"distance"`
}

// InheritanceFilter selects which relations an inheritance query reports.
type InheritanceFilter string

const (
	InheritanceAll        InheritanceFilter = "all"
	InheritanceBases      InheritanceFilter = "bases"
	InheritanceSubclasses InheritanceFilter = "subclasses"
)

// InheritanceRelation is one ancestor or descendant of a class.
type InheritanceRelation struct {
	ID     ast.NodeID   `json:"id"`
	Name   string       `json:"name"`
	Kind   ast.EdgeKind `json:"kind"` // EXTENDS or IMPLEMENTS
	Direct bool         `json:"direct"`
}

// InheritanceInfo describes a class's position in the inheritance graph.
// Cycles are truncated, never walked twice.
type InheritanceInfo struct {
	ClassID     ast.NodeID            `json:"classId"`
	ClassName   string                `json:"className"`
	BaseClasses []InheritanceRelation `json:"baseClasses,omitempty"`
	Subclasses  []InheritanceRelation `json:"subclasses,omitempty"`
	Chain       []ast.NodeID          `json:"chain"` // class first, then bases outward
}

// Snapshot is a deterministic full copy of the graph, used by exporters and
// the archive store.
type Snapshot struct {
	Nodes []ast.Node `json:"nodes"`
	Edges []ast.Edge `json:"edges"`
}

// Stats summarizes the current graph.
type Stats struct {
	Nodes       int                  `json:"nodes"`
	Edges       int                  `json:"edges"`
	Files       int                  `json:"files"`
	NodesByKind map[ast.NodeKind]int `json:"nodesByKind"`
	EdgesByKind map[ast.EdgeKind]int `json:"edgesByKind"`
}
