// Package storage implements the MTP storage engine: an arena-based
// object graph per configured storage root, filesystem-backed object
// creation/read/write/delete/copy/move, and on-demand property value
// retrieval (spec.md §4.3).
//
// The C++ original models the graph as a heap-allocated polytree of
// StorageItem nodes (parent/first-child/next-sibling pointers) plus two
// side hash maps (handle→item, path→item). Go has no raw pointers worth
// threading through a tree like that, so this package keeps the object
// graph as an arena: one map[Handle]*Item plus parent/children index
// maps, all addressed by value rather than pointer-chasing siblings.
package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage/puoid"
	"github.com/marmos91/mtpd/internal/storage/watch"
)

// Handle is a process-lifetime-unique object handle (spec.md §3). Handle
// 0 is a storage's root folder; 0xFFFFFFFF is the wildcard "all objects".
type Handle uint32

const (
	RootHandle     Handle = 0
	AllObjects     Handle = 0xFFFFFFFF
	InvalidHandle  Handle = 0xFFFFFFFE
)

// Item is one node of the storage's object graph (spec.md §3
// "StorageItem").
type Item struct {
	Handle Handle
	Path   string
	PUOID  puoid.ID

	Info *container.ObjectInfo

	WatchActive  bool // has an inotify watch (directories only)
	EventsOn     bool // host has queried this object's info at least once
	IgnoreInotify bool // responder-initiated write in progress; suppress external events

	ModTime time.Time
}

// IsDirectory reports whether this item represents an association
// (directory) object.
func (it *Item) IsDirectory() bool {
	return it.Info != nil && it.Info.Format == mtptypes.FormatAssociation
}

// Storage holds one configured storage root's object graph.
type Storage struct {
	mu sync.RWMutex

	ID          uint32
	Root        string
	Description string
	VolumeLabel string

	nextHandle Handle
	items      map[Handle]*Item
	byPath     map[string]*Item
	parent     map[Handle]Handle
	children   map[Handle][]Handle

	puoids        *puoid.Store
	writeSessions map[Handle]*writeSession

	watcher     *watch.Watcher
	watchCancel context.CancelFunc

	freeSpaceBytes      uint64
	freeSpaceStepBytes  uint64 // 1% of max capacity (spec.md §4.3.7)
	maxCapacityBytes    uint64
}

// Close stops this storage's watcher goroutine, if any.
func (s *Storage) Close() error {
	if s.watchCancel != nil {
		s.watchCancel()
	}
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// newStorage constructs an empty storage graph rooted at root with
// handle 0 pre-allocated for the root directory.
func newStorage(id uint32, root, description, volumeLabel string, puoids *puoid.Store, maxCapacity uint64) *Storage {
	s := &Storage{
		ID:               id,
		Root:             root,
		Description:      description,
		VolumeLabel:      volumeLabel,
		nextHandle:       1,
		items:            make(map[Handle]*Item),
		byPath:           make(map[string]*Item),
		parent:           make(map[Handle]Handle),
		children:         make(map[Handle][]Handle),
		puoids:           puoids,
		writeSessions:    make(map[Handle]*writeSession),
		maxCapacityBytes: maxCapacity,
	}
	s.freeSpaceStepBytes = maxCapacity / 100
	rootItem := &Item{
		Handle: RootHandle,
		Path:   root,
		Info: &container.ObjectInfo{
			StorageID: id,
			Format:    mtptypes.FormatAssociation,
			Filename:  "",
		},
	}
	s.insert(rootItem, InvalidHandle)
	return s
}

// insert adds item to all three indexes under parentHandle (spec.md §3
// invariant: "exists in all three indexes ... or in none").
func (s *Storage) insert(item *Item, parentHandle Handle) {
	s.items[item.Handle] = item
	s.byPath[item.Path] = item
	if parentHandle != InvalidHandle {
		s.parent[item.Handle] = parentHandle
		s.children[parentHandle] = append(s.children[parentHandle], item.Handle)
	}
}

// remove deletes item from all three indexes.
func (s *Storage) remove(h Handle) {
	item, ok := s.items[h]
	if !ok {
		return
	}
	delete(s.items, h)
	delete(s.byPath, item.Path)
	if parentHandle, ok := s.parent[h]; ok {
		siblings := s.children[parentHandle]
		for i, sib := range siblings {
			if sib == h {
				s.children[parentHandle] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
		delete(s.parent, h)
	}
	delete(s.children, h)
}

// removeSubtreeLocked removes item and every descendant from the three
// indexes, unregistering any inotify watches along the way, and returns
// the descendants' paths so the caller can forget their PUOIDs outside
// the lock. Callers must hold s.mu.
func (s *Storage) removeSubtreeLocked(item *Item) []string {
	var paths []string
	for _, childHandle := range append([]Handle(nil), s.children[item.Handle]...) {
		child, ok := s.items[childHandle]
		if !ok {
			continue
		}
		paths = append(paths, child.Path)
		paths = append(paths, s.removeSubtreeLocked(child)...)
	}
	if item.IsDirectory() && item.WatchActive && s.watcher != nil {
		_ = s.watcher.Remove(item.Path)
	}
	s.remove(item.Handle)
	return paths
}

// handleCounter is shared by every storage, so a handle identifies one
// object across all mounted storages.
var handleCounter atomic.Uint32

// allocHandle returns the next process-lifetime-unique handle; the
// sequence is shared across storages.
func (s *Storage) allocHandle() Handle {
	return Handle(handleCounter.Add(1))
}

// ByHandle looks up an item by handle.
func (s *Storage) ByHandle(h Handle) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[h]
	return item, ok
}

// ByPath looks up an item by absolute filesystem path.
func (s *Storage) ByPath(path string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byPath[path]
	return item, ok
}

// Children returns the handles of an item's direct children.
func (s *Storage) Children(h Handle) []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Handle, len(s.children[h]))
	copy(out, s.children[h])
	return out
}

// Parent returns h's parent handle, or InvalidHandle for the root.
func (s *Storage) Parent(h Handle) Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parent[h]
	if !ok {
		return InvalidHandle
	}
	return p
}

// AllHandles returns a snapshot of every handle currently live, for the
// 0xFFFFFFFF wildcard operations (spec.md §4.3.5).
func (s *Storage) AllHandles() []Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Handle, 0, len(s.items))
	for h := range s.items {
		out = append(out, h)
	}
	return out
}

// FreeSpace returns the cached free-space figure in bytes.
func (s *Storage) FreeSpace() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freeSpaceBytes
}

// SetFreeSpace updates the cached free-space figure and reports whether
// the change crossed the 1%-of-capacity reporting threshold (spec.md
// §4.3.7 "threshold: 1% step of maximum capacity, to avoid flooding
// during large writes").
func (s *Storage) SetFreeSpace(bytes uint64) (crossedThreshold bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freeSpaceStepBytes == 0 {
		s.freeSpaceBytes = bytes
		return true
	}
	prevStep := s.freeSpaceBytes / s.freeSpaceStepBytes
	newStep := bytes / s.freeSpaceStepBytes
	s.freeSpaceBytes = bytes
	return prevStep != newStep
}
