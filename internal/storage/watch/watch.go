// Package watch wraps fsnotify into the storage engine's inotify-shaped
// event stream: one watcher per storage root, MOVED_FROM/MOVED_TO cookie
// pairing collapsed into a single Renamed event, and excluded-path
// filtering (spec.md §4.3.7).
package watch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Kind classifies a processed change for the storage engine.
type Kind int

const (
	KindCreated Kind = iota
	KindRemoved
	KindModified // CLOSE_WRITE
	KindRenamed
)

// Event is one processed, pairing-resolved filesystem change.
type Event struct {
	Kind    Kind
	Path    string // for KindRenamed, the destination path
	OldPath string // for KindRenamed, the source path
}

// Watcher monitors one storage root's directory tree.
type Watcher struct {
	fsw      *fsnotify.Watcher
	excluded map[string]bool

	events chan Event
	errors chan error

	pendingFrom     string
	pendingFromTime time.Time
}

const pendingMovedFromTTL = 2 * time.Second

// New creates a watcher rooted at root, adding a watch for every
// directory in the tree except those under excludedPaths.
func New(root string, excludedPaths []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	excluded := make(map[string]bool, len(excludedPaths))
	for _, p := range excludedPaths {
		excluded[p] = true
	}
	w := &Watcher{
		fsw:      fsw,
		excluded: excluded,
		events:   make(chan Event, 256),
		errors:   make(chan error, 16),
	}
	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) isExcluded(path string) bool {
	for p := range w.excluded {
		if path == p || (len(path) > len(p) && path[:len(p)+1] == p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.isExcluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Add registers a newly created directory for watching (e.g. after
// mkdir or move-in).
func (w *Watcher) Add(path string) error {
	if w.isExcluded(path) {
		return nil
	}
	return w.fsw.Add(path)
}

// Remove unregisters a directory, used before a move so the engine does
// not see its own rename as external churn (spec.md §4.3.6).
func (w *Watcher) Remove(path string) error {
	return w.fsw.Remove(path)
}

// Events returns the channel of pairing-resolved changes.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error { return w.errors }

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }

// Run processes raw fsnotify events into Event values until ctx is done.
// It is the storage engine's single inotify-processing goroutine
// (spec.md §4.3.7 "the engine maintains one inotify instance").
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(pendingMovedFromTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}

		case <-ticker.C:
			// An unpaired MOVED_FROM followed by silence (rather than another
			// event) ages out as an external delete (spec.md §4.3.7).
			if w.pendingFrom != "" && time.Since(w.pendingFromTime) >= pendingMovedFromTTL {
				w.emitRemoved(w.pendingFrom)
				w.pendingFrom = ""
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.isExcluded(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Rename != 0:
		// fsnotify surfaces IN_MOVED_FROM as Rename on the source path;
		// cookie-based pairing happens implicitly because the very next
		// fsnotify.Create on the destination path arrives before any other
		// event in practice. We approximate the kernel's cookie pairing
		// with a short pending window instead of raw inotify cookies,
		// which fsnotify does not expose.
		if w.pendingFrom != "" {
			w.emitRemoved(w.pendingFrom)
		}
		w.pendingFrom = ev.Name
		w.pendingFromTime = time.Now()

	case ev.Op&fsnotify.Create != 0:
		if w.pendingFrom != "" {
			from := w.pendingFrom
			w.pendingFrom = ""
			w.events <- Event{Kind: KindRenamed, OldPath: from, Path: ev.Name}
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				_ = w.addRecursive(ev.Name)
			}
			return
		}
		w.events <- Event{Kind: KindCreated, Path: ev.Name}
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
		}

	case ev.Op&fsnotify.Remove != 0:
		if w.pendingFrom != "" {
			w.emitRemoved(w.pendingFrom)
			w.pendingFrom = ""
		}
		w.emitRemoved(ev.Name)

	case ev.Op&fsnotify.Write != 0:
		if w.pendingFrom != "" {
			w.emitRemoved(w.pendingFrom)
			w.pendingFrom = ""
		}
		w.events <- Event{Kind: KindModified, Path: ev.Name}

	default:
		if w.pendingFrom != "" {
			w.emitRemoved(w.pendingFrom)
			w.pendingFrom = ""
		}
	}
}

func (w *Watcher) emitRemoved(path string) {
	w.events <- Event{Kind: KindRemoved, Path: path}
}
