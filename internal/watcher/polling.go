package watcher

import (
	"io/fs"
	"path/filepath"
	"time"
)

// pollingWatcher is the fallback when OS notifications are unavailable: it
// rescans the tree on an interval and diffs modification times. Higher
// latency, same event contract.
type pollingWatcher struct {
	root     string
	interval time.Duration
	events   chan ChangeEvent
	errs     chan error
	done     chan struct{}
	finished chan struct{}
	known    map[string]time.Time
}

func newPollingWatcher(root string, opts Options) (*pollingWatcher, error) {
	w := &pollingWatcher{
		root:     root,
		interval: opts.PollInterval,
		events:   make(chan ChangeEvent, opts.QueueSize),
		errs:     make(chan error, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		known:    make(map[string]time.Time),
	}
	w.known = w.snapshot()
	go w.loop()
	return w, nil
}

func (w *pollingWatcher) Events() <-chan ChangeEvent { return w.events }
func (w *pollingWatcher) Errors() <-chan error       { return w.errs }

func (w *pollingWatcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	<-w.finished
	return nil
}

func (w *pollingWatcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			close(w.events)
			close(w.finished)
			return
		case <-ticker.C:
			w.diff()
		}
	}
}

func (w *pollingWatcher) diff() {
	current := w.snapshot()
	for path, mod := range current {
		prev, ok := w.known[path]
		switch {
		case !ok:
			w.emit(ChangeEvent{Path: path, Kind: ChangeCreated, Timestamp: time.Now()})
		case mod.After(prev):
			w.emit(ChangeEvent{Path: path, Kind: ChangeModified, Timestamp: time.Now()})
		}
	}
	for path := range w.known {
		if _, ok := current[path]; !ok {
			w.emit(ChangeEvent{Path: path, Kind: ChangeDeleted, Timestamp: time.Now()})
		}
	}
	w.known = current
}

func (w *pollingWatcher) emit(ev ChangeEvent) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

func (w *pollingWatcher) snapshot() map[string]time.Time {
	out := make(map[string]time.Time)
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != w.root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return nil
		}
		out[filepath.ToSlash(rel)] = info.ModTime()
		return nil
	})
	return out
}
