package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from codegraph.yml.
type ProjectConfig struct {
	Repo  string      `yaml:"repo,omitempty"` // repository id; defaults to the root directory name
	Scan  ScanConfig  `yaml:"scan,omitempty"`
	Index IndexConfig `yaml:"index,omitempty"`
	Watch WatchConfig `yaml:"watch,omitempty"`
}

// ScanConfig controls repository discovery.
type ScanConfig struct {
	IncludeGlobs   []string `yaml:"includeGlobs,omitempty"`
	ExcludeDirs    []string `yaml:"excludeDirs,omitempty"`
	DependencyMode string   `yaml:"dependencyMode,omitempty"` // exclude, include, or separate
	MaxFileSize    int64    `yaml:"maxFileSize,omitempty"`
}

// IndexConfig controls the bulk indexer.
type IndexConfig struct {
	Workers int `yaml:"workers,omitempty"`
}

// WatchConfig controls the file watcher.
type WatchConfig struct {
	DebounceMS int `yaml:"debounceMs,omitempty"`
	QueueSize  int `yaml:"queueSize,omitempty"`
}

// Debounce returns the configured debounce as a duration, zero when unset.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Load attempts to read codegraph.yml or codegraph.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists; a malformed file is an error.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"codegraph.yml", "codegraph.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// RepoID returns the configured repository id, falling back to the base name
// of root.
func (c *ProjectConfig) RepoID(root string) string {
	if c.Repo != "" {
		return c.Repo
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Base(root)
	}
	return filepath.Base(abs)
}
