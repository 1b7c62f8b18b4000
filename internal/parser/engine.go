package parser

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// cachedParse is the last successful parse of one file: the tree plus the
// exact content it was parsed from, needed to describe edits on re-parse.
type cachedParse struct {
	tree    *tree_sitter.Tree
	content []byte
}

// Engine drives parsing through the registry and keeps the last successful
// tree per file so re-parses can reuse unchanged subtrees. The engine owns
// every cached tree; callers must not Close trees found in a ParseResult that
// came from an Engine.
type Engine struct {
	registry *Registry

	mu    sync.Mutex
	cache map[string]cachedParse
}

// NewEngine returns an engine over the given registry.
func NewEngine(reg *Registry) *Engine {
	return &Engine{
		registry: reg,
		cache:    make(map[string]cachedParse),
	}
}

// ParseFile parses one file, incrementally when a previous tree is cached for
// the path. Returns ErrUnsupportedLanguage when no adapter matches; the
// caller skips such files. A parse failure evicts the path's cache entry: the
// cached tree has already absorbed the edit, so it no longer matches the
// cached content and cannot serve as a baseline for the next re-parse.
func (e *Engine) ParseFile(ctx context.Context, repoID, path string, content []byte) (*ParseResult, error) {
	p, ok := e.registry.ForFile(path, content)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedLanguage)
	}

	e.mu.Lock()
	old, hasOld := e.cache[path]
	e.mu.Unlock()

	var oldTree *tree_sitter.Tree
	if hasOld {
		// The cached tree must be told what changed before tree-sitter may
		// reuse its subtrees.
		edit := computeEdit(old.content, content)
		old.tree.Edit(&edit)
		oldTree = old.tree
	}

	res, err := p.Parse(ctx, &ParseContext{
		RepoID:   repoID,
		FilePath: path,
		Content:  content,
		OldTree:  oldTree,
	})
	if err != nil {
		if hasOld {
			e.mu.Lock()
			if c, ok := e.cache[path]; ok && c.tree == old.tree {
				c.tree.Close()
				delete(e.cache, path)
			}
			e.mu.Unlock()
		}
		return nil, err
	}

	e.mu.Lock()
	if prev, ok := e.cache[path]; ok && prev.tree != res.Tree {
		prev.tree.Close()
	}
	e.cache[path] = cachedParse{tree: res.Tree, content: content}
	e.mu.Unlock()

	return res, nil
}

// Remove drops the cached tree for a path, typically on file deletion.
func (e *Engine) Remove(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.cache[path]; ok {
		c.tree.Close()
		delete(e.cache, path)
	}
}

// ClearCache drops every cached tree.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.cache {
		c.tree.Close()
	}
	e.cache = make(map[string]cachedParse)
}

// Close releases all cached trees and the registry's adapters.
func (e *Engine) Close() error {
	e.ClearCache()
	return e.registry.Close()
}

// computeEdit describes the change from old to new content as a single edit
// spanning everything between the longest common prefix and the longest
// common suffix. Editors report precise ranges; here whole-file writes are
// all we see, and the prefix/suffix bound recovers most of the reuse.
func computeEdit(oldContent, newContent []byte) tree_sitter.InputEdit {
	prefix := commonPrefix(oldContent, newContent)
	suffix := commonSuffix(oldContent[prefix:], newContent[prefix:])

	oldEnd := len(oldContent) - suffix
	newEnd := len(newContent) - suffix

	return tree_sitter.InputEdit{
		StartByte:      uint(prefix),
		OldEndByte:     uint(oldEnd),
		NewEndByte:     uint(newEnd),
		StartPosition:  pointAt(newContent, prefix),
		OldEndPosition: pointAt(oldContent, oldEnd),
		NewEndPosition: pointAt(newContent, newEnd),
	}
}

func commonPrefix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func commonSuffix(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[len(a)-1-i] != b[len(b)-1-i] {
			return i
		}
	}
	return n
}

// pointAt returns the row/column of a byte offset.
func pointAt(content []byte, offset int) tree_sitter.Point {
	if offset > len(content) {
		offset = len(content)
	}
	row := bytes.Count(content[:offset], []byte{'\n'})
	col := offset
	if i := bytes.LastIndexByte(content[:offset], '\n'); i >= 0 {
		col = offset - i - 1
	}
	return tree_sitter.Point{Row: uint(row), Column: uint(col)}
}
