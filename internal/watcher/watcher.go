// Package watcher turns OS file notifications into a debounced stream of
// change events. The stream is infinite and non-restartable: once closed, a
// new watcher must be created.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind classifies a filesystem change.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// ChangeEvent is one debounced filesystem change. Path is relative to the
// watch root, slash-separated.
type ChangeEvent struct {
	Path      string
	Kind      ChangeKind
	Timestamp time.Time
}

// Watcher is the event source consumed by the indexing pipeline. Events is
// closed after Close has flushed all pending events, so consumers drain
// naturally. Errors carries OS-level notification failures; the stream stays
// open after an error but may be incomplete.
type Watcher interface {
	Events() <-chan ChangeEvent
	Errors() <-chan error
	Close() error
}

// Options configures a watcher. Zero values select the defaults.
type Options struct {
	Debounce     time.Duration // window for coalescing rapid writes, default 100ms
	QueueSize    int           // bounded event channel capacity, default 256
	PollInterval time.Duration // polling fallback interval, default 5s
}

const (
	defaultDebounce     = 100 * time.Millisecond
	defaultQueueSize    = 256
	defaultPollInterval = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = defaultDebounce
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	return o
}

// New opens an fsnotify-backed watcher for root, falling back to polling when
// the OS facility is unavailable. Failure to watch the root itself is fatal.
func New(root string, opts Options) (Watcher, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	w, err := newFsWatcher(root, opts.withDefaults())
	if err != nil {
		return newPollingWatcher(root, opts.withDefaults())
	}
	return w, nil
}

// skipDir mirrors the scanner's always-excluded directories; watching them
// would only produce noise.
func skipDir(name string) bool {
	switch name {
	case ".git", ".hg", ".svn", ".idea", ".vscode", "__pycache__", "node_modules", "vendor", "target":
		return true
	}
	return false
}

// --- fsnotify implementation ---

type fsWatcher struct {
	root     string
	debounce time.Duration
	fsn      *fsnotify.Watcher
	events   chan ChangeEvent
	errs     chan error
	done     chan struct{}
	finished chan struct{}

	mu      sync.Mutex
	pending map[string]ChangeEvent
}

func newFsWatcher(root string, opts Options) (*fsWatcher, error) {
	fsn, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &fsWatcher{
		root:     root,
		debounce: opts.Debounce,
		fsn:      fsn,
		events:   make(chan ChangeEvent, opts.QueueSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		pending:  make(map[string]ChangeEvent),
	}
	if err := w.addRecursive(root); err != nil {
		fsn.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

func (w *fsWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return fs.SkipDir
		}
		return w.fsn.Add(path)
	})
}

func (w *fsWatcher) Events() <-chan ChangeEvent { return w.events }
func (w *fsWatcher) Errors() <-chan error      { return w.errs }

// Close stops the OS watch, flushes every pending coalesced event, and closes
// the event channel. Already-queued events stay in the channel for the
// consumer to drain.
func (w *fsWatcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	<-w.finished
	return w.fsn.Close()
}

func (w *fsWatcher) loop() {
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			w.flush(true)
			close(w.events)
			close(w.finished)
			return
		case ev, ok := <-w.fsn.Events:
			if !ok {
				w.flush(true)
				close(w.events)
				close(w.finished)
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsn.Errors:
			if ok && err != nil {
				select {
				case w.errs <- err:
				default:
				}
			}
		case <-ticker.C:
			w.flush(false)
		}
	}
}

func (w *fsWatcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return
	}

	// New directories join the watch set.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !skipDir(filepath.Base(ev.Name)) {
				_ = w.addRecursive(ev.Name)
			}
			return
		}
	}

	var kind ChangeKind
	switch {
	case ev.Op.Has(fsnotify.Create):
		kind = ChangeCreated
	case ev.Op.Has(fsnotify.Write):
		kind = ChangeModified
	case ev.Op.Has(fsnotify.Remove):
		kind = ChangeDeleted
	case ev.Op.Has(fsnotify.Rename):
		kind = ChangeRenamed
	default:
		return
	}

	w.mu.Lock()
	w.pending[rel] = coalesce(w.pending[rel], ChangeEvent{Path: rel, Kind: kind, Timestamp: time.Now()})
	w.mu.Unlock()
}

// coalesce merges successive changes to one path within the debounce window:
// create followed by writes stays a create; anything followed by a delete or
// rename ends gone.
func coalesce(prev, next ChangeEvent) ChangeEvent {
	if prev.Kind == "" {
		return next
	}
	if next.Kind != ChangeDeleted && next.Kind != ChangeRenamed && prev.Kind == ChangeCreated {
		next.Kind = ChangeCreated
	}
	return next
}

// flush emits pending events older than the debounce window, oldest first.
// When the queue is full an event stays pending and merges with later changes
// for the same path instead of being dropped. On force (shutdown) the flush
// waits briefly for the consumer before giving up.
func (w *fsWatcher) flush(force bool) {
	now := time.Now()
	w.mu.Lock()
	var ready []ChangeEvent
	for path, ev := range w.pending {
		if force || now.Sub(ev.Timestamp) >= w.debounce {
			ready = append(ready, ev)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].Timestamp.Equal(ready[j].Timestamp) {
			return ready[i].Timestamp.Before(ready[j].Timestamp)
		}
		return ready[i].Path < ready[j].Path
	})

	for _, ev := range ready {
		if force {
			select {
			case w.events <- ev:
			case <-time.After(time.Second):
				return // consumer is gone; stop rather than deadlock Close
			}
			continue
		}
		select {
		case w.events <- ev:
		default:
			w.mu.Lock()
			if later, ok := w.pending[ev.Path]; ok {
				w.pending[ev.Path] = coalesce(ev, later)
			} else {
				w.pending[ev.Path] = ev
			}
			w.mu.Unlock()
		}
	}
}
