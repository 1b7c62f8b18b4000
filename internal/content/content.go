// Package content maintains a secondary inverted index over raw file text,
// layered beside the graph for hybrid structural+text queries.
package content

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

// SearchResult is one matching line.
type SearchResult struct {
	File string `json:"file"`
	Line int    `json:"line"` // 1-based
	Text string `json:"text"`
}

// Stats summarizes the index.
type Stats struct {
	Files  int `json:"files"`
	Lines  int `json:"lines"`
	Tokens int `json:"tokens"`
}

// DefaultSearchLimit caps results when the caller passes no limit.
const DefaultSearchLimit = 50

// SearchManager is a token index over file content. Indexing a file replaces
// its previous entry wholesale, mirroring how graph patches replace a file's
// nodes.
type SearchManager struct {
	mu sync.RWMutex
	// token -> file -> sorted line numbers
	tokens map[string]map[string][]int
	lines  map[string][]string
}

// NewSearchManager returns an empty index.
func NewSearchManager() *SearchManager {
	return &SearchManager{
		tokens: make(map[string]map[string][]int),
		lines:  make(map[string][]string),
	}
}

// IndexFile (re)indexes one file's content.
func (m *SearchManager) IndexFile(path string, content []byte) {
	lines := strings.Split(string(content), "\n")

	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(path)
	m.lines[path] = lines
	for i, line := range lines {
		for _, tok := range tokenize(line) {
			byFile, ok := m.tokens[tok]
			if !ok {
				byFile = make(map[string][]int)
				m.tokens[tok] = byFile
			}
			nums := byFile[path]
			if len(nums) == 0 || nums[len(nums)-1] != i+1 {
				byFile[path] = append(nums, i+1)
			}
		}
	}
}

// RemoveFile drops a file from the index.
func (m *SearchManager) RemoveFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(path)
}

func (m *SearchManager) removeLocked(path string) {
	delete(m.lines, path)
	for tok, byFile := range m.tokens {
		if _, ok := byFile[path]; ok {
			delete(byFile, path)
			if len(byFile) == 0 {
				delete(m.tokens, tok)
			}
		}
	}
}

// Search returns lines containing every token of the query, ordered by file
// then line number.
func (m *SearchManager) Search(query string, limit int) []SearchResult {
	toks := tokenize(query)
	if len(toks) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Intersect per (file, line) across all query tokens.
	matches := m.linesFor(toks[0])
	for _, tok := range toks[1:] {
		next := m.linesFor(tok)
		for key := range matches {
			if !next[key] {
				delete(matches, key)
			}
		}
		if len(matches) == 0 {
			return nil
		}
	}

	results := make([]SearchResult, 0, len(matches))
	for key := range matches {
		results = append(results, SearchResult{
			File: key.file,
			Line: key.line,
			Text: m.lineText(key.file, key.line),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].File != results[j].File {
			return results[i].File < results[j].File
		}
		return results[i].Line < results[j].Line
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Stats reports index size.
func (m *SearchManager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Files: len(m.lines), Tokens: len(m.tokens)}
	for _, lines := range m.lines {
		st.Lines += len(lines)
	}
	return st
}

type lineKey struct {
	file string
	line int
}

func (m *SearchManager) linesFor(tok string) map[lineKey]bool {
	out := make(map[lineKey]bool)
	for file, nums := range m.tokens[tok] {
		for _, n := range nums {
			out[lineKey{file, n}] = true
		}
	}
	return out
}

func (m *SearchManager) lineText(file string, line int) string {
	lines := m.lines[file]
	if line < 1 || line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

// tokenize lowercases and splits on anything that is not a letter, digit, or
// underscore.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
