package storage

import (
	"os"
	"path/filepath"

	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage/watch"
)

// EventKind classifies a change the engine wants the responder to turn
// into an MTP event (spec.md §4.3.7).
type EventKind int

const (
	EventObjectAdded EventKind = iota
	EventObjectRemoved
	EventObjectInfoChanged
	EventStorageInfoChanged
)

// Event is one object-graph change worth telling the host about.
type Event struct {
	Kind      EventKind
	StorageID uint32
	Handle    Handle
}

// processWatchEvents is the per-storage goroutine that turns raw
// pairing-resolved filesystem changes into object-graph updates and
// engine events (spec.md §4.3.7 "the engine reacts to external
// filesystem activity the same way it reacts to MTP operations").
func (e *Engine) processWatchEvents(s *Storage, w *watch.Watcher) {
	for ev := range w.Events() {
		switch ev.Kind {
		case watch.KindCreated:
			e.handleExternalCreate(s, ev.Path)
		case watch.KindRemoved:
			e.handleExternalRemove(s, ev.Path)
		case watch.KindModified:
			e.handleExternalModify(s, ev.Path)
		case watch.KindRenamed:
			e.handleExternalRename(s, ev.OldPath, ev.Path)
		}
	}
}

func (e *Engine) handleExternalCreate(s *Storage, path string) {
	s.mu.RLock()
	_, exists := s.byPath[path]
	parentItem, parentOK := s.byPath[filepath.Dir(path)]
	s.mu.RUnlock()
	if exists || !parentOK {
		return
	}

	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	if info.Mode()&os.ModeSymlink != 0 {
		allowed, err := e.policy.Allowed(path, s.Root)
		if err != nil || !allowed {
			return
		}
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return
		}
		if info, err = os.Stat(resolved); err != nil {
			return
		}
	}

	id, err := s.puoids.Assign(path)
	if err != nil {
		return
	}
	format := mtptypes.FormatUndefined
	if info.IsDir() {
		format = mtptypes.FormatAssociation
	}

	s.mu.Lock()
	if _, exists := s.byPath[path]; exists {
		s.mu.Unlock()
		return
	}
	handle := s.allocHandle()
	item := &Item{
		Handle:  handle,
		Path:    path,
		PUOID:   id,
		ModTime: info.ModTime(),
		Info:    buildObjectInfo(s.ID, parentItem.Handle, filepath.Base(path), format, info),
	}
	s.insert(item, parentItem.Handle)
	if info.IsDir() && s.watcher != nil {
		if err := s.watcher.Add(path); err == nil {
			item.WatchActive = true
		}
	}
	s.mu.Unlock()

	e.emit(Event{Kind: EventObjectAdded, StorageID: s.ID, Handle: handle})
}

func (e *Engine) handleExternalRemove(s *Storage, path string) {
	s.mu.Lock()
	item, ok := s.byPath[path]
	if !ok {
		s.mu.Unlock()
		return
	}
	handle := item.Handle
	descendants := s.removeSubtreeLocked(item)
	s.mu.Unlock()

	_ = s.puoids.Forget(path)
	for _, d := range descendants {
		_ = s.puoids.Forget(d)
	}
	e.emit(Event{Kind: EventObjectRemoved, StorageID: s.ID, Handle: handle})
}

func (e *Engine) handleExternalModify(s *Storage, path string) {
	s.mu.Lock()
	item, ok := s.byPath[path]
	if !ok || item.IgnoreInotify {
		s.mu.Unlock()
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		s.mu.Unlock()
		return
	}
	item.ModTime = info.ModTime()
	item.Info.CompressedSize = uint32(info.Size())
	item.Info.ModificationDate = formatMTPTime(info.ModTime())
	handle := item.Handle
	s.mu.Unlock()

	e.emit(Event{Kind: EventObjectInfoChanged, StorageID: s.ID, Handle: handle})
}

func (e *Engine) handleExternalRename(s *Storage, oldPath, newPath string) {
	s.mu.Lock()
	item, ok := s.byPath[oldPath]
	if !ok {
		s.mu.Unlock()
		e.handleExternalCreate(s, newPath)
		return
	}
	newParentItem, ok := s.byPath[filepath.Dir(newPath)]
	if !ok {
		s.mu.Unlock()
		return
	}

	if oldParentHandle, ok := s.parent[item.Handle]; ok {
		siblings := s.children[oldParentHandle]
		for i, h := range siblings {
			if h == item.Handle {
				s.children[oldParentHandle] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	s.parent[item.Handle] = newParentItem.Handle
	s.children[newParentItem.Handle] = append(s.children[newParentItem.Handle], item.Handle)

	delete(s.byPath, oldPath)
	item.Path = newPath
	item.Info.Filename = filepath.Base(newPath)
	item.Info.ParentObject = uint32(newParentItem.Handle)
	s.byPath[newPath] = item
	s.rewriteDescendantPathsLocked(item, oldPath, newPath)

	handle := item.Handle
	wasWatched := item.WatchActive
	s.mu.Unlock()

	if wasWatched && s.watcher != nil {
		_ = s.watcher.Add(newPath)
	}

	e.emit(Event{Kind: EventObjectInfoChanged, StorageID: s.ID, Handle: handle})
}

// emit delivers ev to the engine's event channel, dropping it with a
// log line rather than blocking the watch goroutine if the consumer
// has fallen behind.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		if e.logger != nil {
			e.logger.Warn("storage: event queue full, dropping event", "kind", ev.Kind, "storage_id", ev.StorageID, "handle", ev.Handle)
		}
	}
}

// Events returns the channel of object-graph changes the responder
// turns into MTP events.
func (e *Engine) Events() <-chan Event { return e.events }
