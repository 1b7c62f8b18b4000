package ast

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Span locates a node in its source file. Byte offsets are 0-based; lines and
// columns are 1-based.
type Span struct {
	StartByte   int `json:"startByte"`
	EndByte     int `json:"endByte"`
	StartLine   int `json:"startLine"`
	EndLine     int `json:"endLine"`
	StartColumn int `json:"startColumn"`
	EndColumn   int `json:"endColumn"`
}

// NodeID is a content-stable identifier: a 128-bit hash of the repository id,
// file path, span, kind, and name, hex-encoded. Re-parsing unchanged code
// reproduces the same id, which is what makes patch-based incremental
// re-indexing a set difference rather than a tree diff.
type NodeID string

// NewNodeID derives the stable identifier for a node.
func NewNodeID(repo, file string, span Span, kind NodeKind, name string) NodeID {
	h := xxh3.New()
	var buf [8]byte

	writeField := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.Write([]byte{0})
	}
	writeField(repo)
	writeField(file)
	binary.LittleEndian.PutUint64(buf[:], uint64(span.StartByte))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(span.EndByte))
	_, _ = h.Write(buf[:])
	writeField(string(kind))
	writeField(name)

	sum := h.Sum128()
	return NodeID(fmt.Sprintf("%016x%016x", sum.Hi, sum.Lo))
}

// Node is the universal representation of a code symbol, independent of
// source language. Once indexed, nodes are owned by the graph store;
// instances outside the store are transient copies.
type Node struct {
	ID        NodeID            `json:"id"`
	Kind      NodeKind          `json:"kind"`
	Name      string            `json:"name"`
	File      string            `json:"file"`
	Span      Span              `json:"span"`
	Language  Language          `json:"language"`
	Signature string            `json:"signature,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewNode builds a node and derives its stable id.
func NewNode(repo string, kind NodeKind, name, file string, span Span, lang Language) Node {
	return Node{
		ID:       NewNodeID(repo, file, span, kind, name),
		Kind:     kind,
		Name:     name,
		File:     file,
		Span:     span,
		Language: lang,
	}
}

// Edge is a directed relationship between two nodes. Multiple edges of
// different kinds may connect the same pair; identical (source, target, kind)
// triples are idempotent in the store.
type Edge struct {
	Source NodeID   `json:"source"`
	Target NodeID   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// Key returns the identity of the edge as a (source, target, kind) triple.
func (e Edge) Key() string {
	return string(e.Source) + ">" + string(e.Target) + ":" + string(e.Kind)
}
