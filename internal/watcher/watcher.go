// Package watcher polls source trees and reports batches of changed files.
package watcher

import (
	"cmp"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Op is the kind of change.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Event represents a file change event.
type Event struct {
	Path string
	Op   Op
}

// DefaultPollInterval is the default polling interval for file change detection.
const DefaultPollInterval = 500 * time.Millisecond

// skipDirs are never descended into.
var skipDirs = map[string]bool{".git": true, "node_modules": true, "vendor": true, "testdata": true}

// Watcher watches directories and single files for changes by polling.
type Watcher struct {
	dirs         []string
	files        []string // watched regardless of extension, e.g. the config file
	extensions   []string // e.g. [".go"]
	ignore       func(path string) bool
	debounce     time.Duration
	pollInterval time.Duration
	onChange     func(events []Event)

	mu      sync.Mutex
	pending []Event
	timer   *time.Timer
}

// New creates a watcher over dirs for files with one of extensions.
// onChange receives each debounced batch, sorted by path.
func New(dirs []string, extensions []string, debounce time.Duration, onChange func(events []Event)) *Watcher {
	return &Watcher{
		dirs:         dirs,
		extensions:   extensions,
		debounce:     debounce,
		pollInterval: DefaultPollInterval,
		onChange:     onChange,
	}
}

// SetPollInterval sets the polling interval for file change detection.
func (w *Watcher) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// AddFile watches a single file whatever its extension.
func (w *Watcher) AddFile(path string) {
	w.files = append(w.files, path)
}

// SetIgnore excludes matching paths, for example Go test files.
func (w *Watcher) SetIgnore(ignore func(path string) bool) {
	w.ignore = ignore
}

// IgnoreTests matches Go test files, which never affect generated types.
func IgnoreTests(path string) bool {
	return strings.HasSuffix(path, "_test.go")
}

// Watch polls until ctx is done. A batch still waiting for its debounce
// when ctx ends is dropped.
func (w *Watcher) Watch(ctx context.Context) error {
	snapshot := w.buildSnapshot()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			next := w.buildSnapshot()
			if events := diff(snapshot, next); len(events) > 0 {
				w.schedule(events)
			}
			snapshot = next
		}
	}
}

func (w *Watcher) schedule(events []Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, events...)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		pending := w.pending
		w.pending = nil
		w.mu.Unlock()
		if len(pending) > 0 {
			w.onChange(pending)
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
}

type fileInfo struct {
	modTime time.Time
	size    int64
}

func (w *Watcher) buildSnapshot() map[string]fileInfo {
	snap := make(map[string]fileInfo)
	add := func(path string, d fs.DirEntry) {
		if w.ignore != nil && w.ignore(path) {
			return
		}
		if info, err := d.Info(); err == nil {
			snap[path] = fileInfo{modTime: info.ModTime(), size: info.Size()}
		}
	}
	for _, dir := range w.dirs {
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != dir && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if slices.Contains(w.extensions, filepath.Ext(path)) {
				add(path, d)
			}
			return nil
		})
	}
	for _, path := range w.files {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			add(path, fs.FileInfoToDirEntry(info))
		}
	}
	return snap
}

func diff(old, new map[string]fileInfo) []Event {
	var events []Event
	for path, newInfo := range new {
		if oldInfo, ok := old[path]; ok {
			if !newInfo.modTime.Equal(oldInfo.modTime) || newInfo.size != oldInfo.size {
				events = append(events, Event{Path: path, Op: OpWrite})
			}
		} else {
			events = append(events, Event{Path: path, Op: OpCreate})
		}
	}
	for path := range old {
		if _, ok := new[path]; !ok {
			events = append(events, Event{Path: path, Op: OpRemove})
		}
	}
	slices.SortFunc(events, func(a, b Event) int { return cmp.Compare(a.Path, b.Path) })
	return events
}
