package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage/puoid"
	"github.com/marmos91/mtpd/internal/storage/symlink"
	"github.com/marmos91/mtpd/internal/storage/watch"
)

// ReadyFunc is invoked when a storage finishes enumeration (spec.md
// §4.3.1 "storagePluginReady(storageId)").
type ReadyFunc func(storageID uint32)

// Engine owns one Storage per configured root and dispatches operations
// to the owning storage by handle or storage id (spec.md §4.3).
type Engine struct {
	logger *slog.Logger
	policy symlink.Policy

	mu        sync.RWMutex
	storages  map[uint32]*Storage
	onReady   ReadyFunc
	stateDir  string
	events    chan Event
}

// Config describes one storage root to mount.
type Config struct {
	ID          uint32
	Root        string
	Description string
	VolumeLabel string
	FSUUID      string
	MaxCapacity uint64
	ReadOnly    bool
	Excluded    []string
}

// NewEngine constructs an empty engine. stateDir is where per-storage
// PUOID databases are kept (spec.md §6 "$HOME/.local/mtp").
func NewEngine(logger *slog.Logger, stateDir string, onReady ReadyFunc) *Engine {
	return &Engine{
		logger:   logger,
		policy:   symlink.FromEnvironment(),
		storages: make(map[uint32]*Storage),
		onReady:  onReady,
		stateDir: stateDir,
		events:   make(chan Event, 256),
	}
}

// Mount adds a storage root and enumerates it asynchronously (spec.md
// §4.3.1 "Enumeration runs asynchronously from a queued task so the
// caller is not blocked").
func (e *Engine) Mount(cfg Config) error {
	puoidStore, err := puoid.Open(e.stateDir, cfg.VolumeLabel, cfg.FSUUID)
	if err != nil {
		return fmt.Errorf("storage: open puoid store for %s: %w", cfg.Root, err)
	}

	s := newStorage(cfg.ID, cfg.Root, cfg.Description, cfg.VolumeLabel, puoidStore, cfg.MaxCapacity)

	e.mu.Lock()
	e.storages[cfg.ID] = s
	e.mu.Unlock()

	w, err := watch.New(cfg.Root, cfg.Excluded)
	if err != nil {
		e.logger.Warn("storage: inotify watch setup failed, external changes will not be detected", "root", cfg.Root, "error", err)
	} else {
		s.watcher = w
		ctx, cancel := context.WithCancel(context.Background())
		s.watchCancel = cancel
		if root, ok := s.ByHandle(RootHandle); ok {
			root.WatchActive = true
		}
		go w.Run(ctx)
		go e.processWatchEvents(s, w)
	}

	go e.enumerate(s, cfg.Excluded)
	return nil
}

// Storage returns the storage owning id.
func (e *Engine) Storage(id uint32) (*Storage, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.storages[id]
	if !ok {
		return nil, mtperr.New("storage.Storage", mtptypes.InvalidStorageID)
	}
	return s, nil
}

// StorageIDs returns every mounted storage id.
func (e *Engine) StorageIDs() []uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]uint32, 0, len(e.storages))
	for id := range e.storages {
		ids = append(ids, id)
	}
	return ids
}

// StorageOf returns the storage that owns handle h, searching every
// mounted storage (handles are globally unique, spec.md §3 invariant).
func (e *Engine) StorageOf(h Handle) (*Storage, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.storages {
		if _, ok := s.ByHandle(h); ok {
			return s, nil
		}
	}
	return nil, mtperr.New("storage.StorageOf", mtptypes.InvalidObjectHandle)
}

// enumerate walks root breadth-first, allocating handles and PUOIDs
// (spec.md §4.3.1), then emits storagePluginReady via onReady.
func (e *Engine) enumerate(s *Storage, excluded []string) {
	type queued struct {
		path   string
		handle Handle
	}
	seenPaths := map[string]bool{s.Root: true}
	queue := []queued{{path: s.Root, handle: RootHandle}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(cur.path)
		if err != nil {
			e.logger.Warn("storage: enumerate: read dir failed", "path", cur.path, "error", err)
			continue
		}

		for _, entry := range entries {
			childPath := filepath.Join(cur.path, entry.Name())
			if isExcluded(childPath, excluded) {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.Mode()&os.ModeSymlink != 0 {
				allowed, err := e.policy.Allowed(childPath, s.Root)
				if err != nil || !allowed {
					continue
				}
				if resolved, err := filepath.EvalSymlinks(childPath); err == nil {
					if resolvedInfo, err := os.Stat(resolved); err == nil {
						info = resolvedInfo
					}
				}
			}

			s.mu.Lock()
			item, exists := s.byPath[childPath]
			if !exists {
				h := s.allocHandle()
				id, found, err := s.puoids.Lookup(childPath)
				if err != nil {
					s.mu.Unlock()
					continue
				}
				if !found {
					id, err = s.puoids.Assign(childPath)
					if err != nil {
						s.mu.Unlock()
						continue
					}
				}
				format := mtptypes.FormatUndefined
				if info.IsDir() {
					format = mtptypes.FormatAssociation
				}
				item = &Item{
					Handle:  h,
					Path:    childPath,
					PUOID:   id,
					ModTime: info.ModTime(),
				}
				item.Info = buildObjectInfo(s.ID, cur.handle, entry.Name(), format, info)
				if info.IsDir() {
					item.WatchActive = true
				}
				s.insert(item, cur.handle)
			}
			s.mu.Unlock()

			seenPaths[childPath] = true
			if info.IsDir() {
				queue = append(queue, queued{path: childPath, handle: item.Handle})
			}
		}
	}

	e.purgeStale(s, seenPaths)

	if e.onReady != nil {
		e.onReady(s.ID)
	}
}

func (e *Engine) purgeStale(s *Storage, seen map[string]bool) {
	paths, err := s.puoids.Paths()
	if err != nil {
		return
	}
	for _, p := range paths {
		if !seen[p] {
			_ = s.puoids.Forget(p)
		}
	}
}

func isExcluded(path string, excluded []string) bool {
	for _, p := range excluded {
		if path == p {
			return true
		}
	}
	return false
}

func buildObjectInfo(storageID uint32, parent Handle, name string, format mtptypes.FormatCode, info os.FileInfo) *container.ObjectInfo {
	size := uint32(info.Size())
	if info.Size() > 0xFFFFFFFE {
		size = mtptypes.UnknownLength
	}
	return &container.ObjectInfo{
		StorageID:        storageID,
		Format:           format,
		CompressedSize:   size,
		ParentObject:     uint32(parent),
		Filename:         name,
		ModificationDate: formatMTPTime(info.ModTime()),
	}
}

func formatMTPTime(t time.Time) string {
	return t.UTC().Format("20060102T150405")
}
