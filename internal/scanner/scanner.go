package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/codegraph/internal/ast"
)

// DependencyMode governs how vendored/third-party directories are scanned.
type DependencyMode string

const (
	// DependencyModeExclude skips dependency directories entirely.
	DependencyModeExclude DependencyMode = "exclude"
	// DependencyModeInclude scans dependency directories like any other.
	DependencyModeInclude DependencyMode = "include"
	// DependencyModeSeparate scans dependency directories but tags their
	// files as vendored so consumers can keep them in a separate tree.
	DependencyModeSeparate DependencyMode = "separate"
)

// DiscoveredFile is one candidate file found by a scan. Ephemeral; nothing
// persists it.
type DiscoveredFile struct {
	Path     string // relative to the scan root, slash-separated
	Language ast.Language
	Size     int64
	Vendored bool
}

// ScanError records a per-path failure that did not abort the scan.
type ScanError struct {
	Path string
	Err  error
}

func (e ScanError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

// ScanResult summarizes one finished scan.
type ScanResult struct {
	Files           []DiscoveredFile
	FilesByLanguage map[ast.Language]int
	DurationMS      int64
	Errors          []ScanError
}

// defaultExcludeDirs are always skipped regardless of dependency mode.
var defaultExcludeDirs = map[string]bool{
	".git":        true,
	".hg":         true,
	".svn":        true,
	".idea":       true,
	".vscode":     true,
	"__pycache__": true,
}

// dependencyDirs hold third-party code and are subject to DependencyMode.
var dependencyDirs = map[string]bool{
	"node_modules":  true,
	"vendor":        true,
	"target":        true,
	"dist":          true,
	"build":         true,
	".venv":         true,
	"venv":          true,
	"site-packages": true,
}

// DefaultMaxFileSize is the per-file size cap; larger files are skipped.
const DefaultMaxFileSize = 10 * 1024 * 1024

// Options configures a Scanner. The zero value means: exclude dependencies,
// no extra excludes, all files included, default size cap.
type Options struct {
	Mode         DependencyMode
	ExcludeDirs  []string
	IncludeGlobs []string // relative-path globs, ** spans directories; empty includes all
	MaxFileSize  int64
}

// Scanner walks a repository root and yields candidate source files.
// Re-running a scan over an unchanged filesystem is deterministic: the walk
// is lexical and filters are pure.
type Scanner struct {
	root     string
	mode     DependencyMode
	exclude  map[string]bool
	includes []string
	maxSize  int64
	ignore   *gitignore.GitIgnore
}

// New validates the root and builds a scanner. An unreadable root is a
// repository-scoped failure and returns an error; everything below the root
// degrades to per-file errors during Scan.
func New(root string, opts Options) (*Scanner, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", root)
	}

	mode := opts.Mode
	if mode == "" {
		mode = DependencyModeExclude
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	exclude := make(map[string]bool, len(opts.ExcludeDirs))
	for _, d := range opts.ExcludeDirs {
		exclude[d] = true
	}

	s := &Scanner{
		root:     root,
		mode:     mode,
		exclude:  exclude,
		includes: opts.IncludeGlobs,
		maxSize:  maxSize,
	}

	// .gitignore is honored when present; a malformed one is ignored.
	if ign, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		s.ignore = ign
	}
	return s, nil
}

// Scan walks the root and returns every discovered file. Per-path errors are
// collected, never fatal. Cancellation is checked between directory entries.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	start := time.Now()
	res := &ScanResult{FilesByLanguage: make(map[ast.Language]int)}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			res.Errors = append(res.Errors, ScanError{Path: rel, Err: walkErr})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if defaultExcludeDirs[name] || s.exclude[name] {
				return fs.SkipDir
			}
			if dependencyDirs[name] && s.mode == DependencyModeExclude {
				return fs.SkipDir
			}
			if s.ignore != nil && s.ignore.MatchesPath(rel+"/") {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if s.ignore != nil && s.ignore.MatchesPath(rel) {
			return nil
		}
		if !s.matchesIncludes(rel) {
			return nil
		}

		lang := ast.LanguageFromPath(rel)
		if lang == ast.LangUnknown {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			res.Errors = append(res.Errors, ScanError{Path: rel, Err: err})
			return nil
		}
		if info.Size() > s.maxSize {
			return nil
		}

		res.Files = append(res.Files, DiscoveredFile{
			Path:     rel,
			Language: lang,
			Size:     info.Size(),
			Vendored: s.mode == DependencyModeSeparate && underDependencyDir(rel),
		})
		res.FilesByLanguage[lang]++
		return nil
	})

	res.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Root returns the scan root.
func (s *Scanner) Root() string { return s.root }

// Classify applies the same filters Scan uses while walking to a single
// root-relative slash path, so incremental callers accept exactly the files a
// bulk scan would. ok is false when the path is not a candidate: under an
// excluded, dependency, or ignored directory, outside the include globs, an
// unknown language, or over the size cap. Size is zero when the file cannot
// be statted; the caller decides what a missing file means.
func (s *Scanner) Classify(rel string) (DiscoveredFile, bool) {
	rel = filepath.ToSlash(rel)
	segs := strings.Split(rel, "/")
	dir := ""
	for _, seg := range segs[:len(segs)-1] {
		if defaultExcludeDirs[seg] || s.exclude[seg] {
			return DiscoveredFile{}, false
		}
		if dependencyDirs[seg] && s.mode == DependencyModeExclude {
			return DiscoveredFile{}, false
		}
		if dir == "" {
			dir = seg
		} else {
			dir += "/" + seg
		}
		if s.ignore != nil && s.ignore.MatchesPath(dir+"/") {
			return DiscoveredFile{}, false
		}
	}
	if s.ignore != nil && s.ignore.MatchesPath(rel) {
		return DiscoveredFile{}, false
	}
	if !s.matchesIncludes(rel) {
		return DiscoveredFile{}, false
	}
	lang := ast.LanguageFromPath(rel)
	if lang == ast.LangUnknown {
		return DiscoveredFile{}, false
	}

	f := DiscoveredFile{
		Path:     rel,
		Language: lang,
		Vendored: s.mode == DependencyModeSeparate && underDependencyDir(rel),
	}
	if info, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel))); err == nil {
		f.Size = info.Size()
		if f.Size > s.maxSize {
			return DiscoveredFile{}, false
		}
	}
	return f, true
}

func (s *Scanner) matchesIncludes(rel string) bool {
	if len(s.includes) == 0 {
		return true
	}
	base := filepath.Base(rel)
	for _, g := range s.includes {
		if matchGlob(g, rel) {
			return true
		}
		// A bare file glob like *.py matches by base name anywhere.
		if ok, _ := path.Match(g, base); ok {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated relative path against a glob pattern
// segment by segment. A "**" segment spans any number of path segments,
// including zero, so src/**/*.ts matches src/a.ts and src/a/b/c.ts.
func matchGlob(pattern, rel string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, segs []string) bool {
	if len(pat) == 0 {
		return len(segs) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(segs); i++ {
			if matchSegments(pat[1:], segs[i:]) {
				return true
			}
		}
		return false
	}
	if len(segs) == 0 {
		return false
	}
	if ok, _ := path.Match(pat[0], segs[0]); !ok {
		return false
	}
	return matchSegments(pat[1:], segs[1:])
}

// underDependencyDir reports whether any path segment is a dependency dir.
func underDependencyDir(rel string) bool {
	start := 0
	for i := 0; i <= len(rel); i++ {
		if i == len(rel) || rel[i] == '/' {
			if i > start && dependencyDirs[rel[start:i]] {
				return true
			}
			start = i + 1
		}
	}
	return false
}
