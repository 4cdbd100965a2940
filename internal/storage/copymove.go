package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// CopyItem copies srcHandle into dstParent, either within this storage
// or (when dst is a different *Storage) across storages (spec.md
// §4.3.6).
func (s *Storage) CopyItem(srcHandle Handle, dst *Storage, dstParent Handle) (Handle, error) {
	const op = "storage.CopyItem"

	srcItem, ok := s.ByHandle(srcHandle)
	if !ok {
		return 0, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}
	dstParentItem, ok := dst.ByHandle(dstParent)
	if !ok {
		return 0, mtperr.New(op, mtptypes.InvalidParentObject)
	}

	if srcItem.IsDirectory() && strings.HasPrefix(dstParentItem.Path, srcItem.Path+string(filepath.Separator)) {
		return 0, mtperr.New(op, mtptypes.InvalidParentObject)
	}

	crossStorage := dst != s
	var newHandle Handle
	if crossStorage {
		// Cross-storage copy reuses the source handle (spec.md §4.3.6:
		// "safe because handles are globally unique").
		newHandle = srcHandle
	} else {
		dst.mu.Lock()
		newHandle = dst.allocHandle()
		dst.mu.Unlock()
	}

	if err := s.copyRecursive(srcItem, dst, dstParent, newHandle); err != nil {
		return 0, err
	}
	return newHandle, nil
}

func (s *Storage) copyRecursive(src *Item, dst *Storage, dstParent, newHandle Handle) error {
	const op = "storage.CopyItem"

	dst.mu.RLock()
	dstParentItem := dst.items[dstParent]
	dst.mu.RUnlock()
	dstPath := filepath.Join(dstParentItem.Path, src.Info.Filename)

	if src.IsDirectory() {
		if err := os.MkdirAll(dstPath, 0o755); err != nil {
			return mtperr.Wrap(op, mtptypes.AccessDenied, err)
		}
	} else {
		if err := copyFileBytes(src.Path, dstPath); err != nil {
			return mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
	}

	dst.mu.Lock()
	id, err := dst.puoids.Assign(dstPath)
	if err != nil {
		dst.mu.Unlock()
		return mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	newInfo := *src.Info
	newInfo.StorageID = dst.ID
	newInfo.ParentObject = uint32(dstParent)
	newItem := &Item{
		Handle:  newHandle,
		Path:    dstPath,
		PUOID:   id,
		ModTime: src.ModTime,
		Info:    &newInfo,
	}
	dst.insert(newItem, dstParent)
	dst.mu.Unlock()

	if src.IsDirectory() {
		for _, childHandle := range s.Children(src.Handle) {
			child, ok := s.ByHandle(childHandle)
			if !ok {
				continue
			}
			dst.mu.Lock()
			childHandleOut := dst.allocHandle()
			dst.mu.Unlock()
			if err := s.copyRecursive(child, dst, newHandle, childHandleOut); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyFileBytes(srcPath, dstPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dstPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// MoveItem moves srcHandle to dstParent, either a same-storage rename
// (spec.md §4.3.6: "rename(2), then rewrite indexes and walk all
// descendants") or a cross-storage copy+delete.
func (s *Storage) MoveItem(srcHandle Handle, dst *Storage, dstParent Handle) error {
	const op = "storage.MoveItem"

	if dst == s {
		return s.moveWithinStorage(srcHandle, dstParent)
	}

	newHandle, err := s.CopyItem(srcHandle, dst, dstParent)
	if err != nil {
		return err
	}
	_ = newHandle
	return s.deleteOne(srcHandle)
}

func (s *Storage) moveWithinStorage(srcHandle, dstParent Handle) error {
	const op = "storage.MoveItem"

	s.mu.Lock()
	srcItem, ok := s.items[srcHandle]
	if !ok {
		s.mu.Unlock()
		return mtperr.New(op, mtptypes.InvalidObjectHandle)
	}
	dstParentItem, ok := s.items[dstParent]
	if !ok {
		s.mu.Unlock()
		return mtperr.New(op, mtptypes.InvalidParentObject)
	}
	if srcItem.IsDirectory() && strings.HasPrefix(dstParentItem.Path, srcItem.Path+string(filepath.Separator)) {
		s.mu.Unlock()
		return mtperr.New(op, mtptypes.InvalidParentObject)
	}
	oldPath := srcItem.Path
	newPath := filepath.Join(dstParentItem.Path, srcItem.Info.Filename)

	// fsnotify tracks watches by the path they were registered with, so a
	// renamed directory's own watch (and its watched descendants') would
	// keep reporting events under the stale prefix unless torn down and
	// re-added under the new path (spec.md §4.3.6).
	var watchedPaths []string
	if s.watcher != nil && srcItem.IsDirectory() {
		watchedPaths = collectWatchedPathsLocked(srcItem, s)
		for _, p := range watchedPaths {
			_ = s.watcher.Remove(p)
		}
	}
	s.mu.Unlock()

	if err := os.Rename(oldPath, newPath); err != nil {
		if s.watcher != nil {
			for _, p := range watchedPaths {
				_ = s.watcher.Add(p)
			}
		}
		return mtperr.Wrap(op, mtptypes.AccessDenied, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if oldParent, ok := s.parent[srcHandle]; ok {
		siblings := s.children[oldParent]
		for i, h := range siblings {
			if h == srcHandle {
				s.children[oldParent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	s.parent[srcHandle] = dstParent
	s.children[dstParent] = append(s.children[dstParent], srcHandle)

	delete(s.byPath, oldPath)
	srcItem.Path = newPath
	srcItem.Info.Filename = filepath.Base(newPath)
	srcItem.Info.ParentObject = uint32(dstParent)
	s.byPath[newPath] = srcItem

	s.rewriteDescendantPathsLocked(srcItem, oldPath, newPath)

	if s.watcher != nil {
		for _, p := range watchedPaths {
			_ = s.watcher.Add(newPath + strings.TrimPrefix(p, oldPath))
		}
	}
	return nil
}

// collectWatchedPathsLocked returns the paths of item and every
// descendant directory currently holding an inotify watch. Callers
// must hold s.mu.
func collectWatchedPathsLocked(item *Item, s *Storage) []string {
	var paths []string
	if item.WatchActive {
		paths = append(paths, item.Path)
	}
	for _, childHandle := range s.children[item.Handle] {
		child, ok := s.items[childHandle]
		if !ok || !child.IsDirectory() {
			continue
		}
		paths = append(paths, collectWatchedPathsLocked(child, s)...)
	}
	return paths
}

// rewriteDescendantPathsLocked updates every descendant's cached path
// after a rename. Callers must hold s.mu.
func (s *Storage) rewriteDescendantPathsLocked(item *Item, oldRoot, newRoot string) {
	for _, childHandle := range s.children[item.Handle] {
		child, ok := s.items[childHandle]
		if !ok {
			continue
		}
		oldChildPath := child.Path
		child.Path = newRoot + strings.TrimPrefix(oldChildPath, oldRoot)
		delete(s.byPath, oldChildPath)
		s.byPath[child.Path] = child
		s.rewriteDescendantPathsLocked(child, oldRoot, newRoot)
	}
}
