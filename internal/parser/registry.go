package parser

import (
	"bytes"
	"sync"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// Registry maps languages to their parser adapters. Files resolve to an
// adapter by extension first, content sniffing second; files that resolve to
// no adapter are skipped by callers, never errored.
type Registry struct {
	mu      sync.RWMutex
	parsers map[ast.Language]LanguageParser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[ast.Language]LanguageParser)}
}

// Register installs an adapter, replacing any previous adapter for the same
// language.
func (r *Registry) Register(p LanguageParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.Language()] = p
}

// Get returns the adapter for a language.
func (r *Registry) Get(lang ast.Language) (LanguageParser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[lang]
	return p, ok
}

// Languages returns the registered languages.
func (r *Registry) Languages() []ast.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	langs := make([]ast.Language, 0, len(r.parsers))
	for l := range r.parsers {
		langs = append(langs, l)
	}
	return langs
}

// ForFile resolves the adapter for a file. Extension wins; when the extension
// is unknown, the first content line is sniffed for a shebang.
func (r *Registry) ForFile(path string, content []byte) (LanguageParser, bool) {
	lang := ast.LanguageFromPath(path)
	if lang == ast.LangUnknown {
		lang = sniffLanguage(content)
	}
	if lang == ast.LangUnknown {
		return nil, false
	}
	return r.Get(lang)
}

// Close closes every registered adapter.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, p := range r.parsers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.parsers = make(map[ast.Language]LanguageParser)
	return first
}

// sniffLanguage inspects the first line of content for a shebang.
func sniffLanguage(content []byte) ast.Language {
	if !bytes.HasPrefix(content, []byte("#!")) {
		return ast.LangUnknown
	}
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	switch {
	case bytes.Contains(line, []byte("python")):
		return ast.LangPython
	case bytes.Contains(line, []byte("node")):
		return ast.LangJavaScript
	}
	return ast.LangUnknown
}
