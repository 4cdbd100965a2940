package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// forbiddenFilenameChars matches characters MTP hosts are disallowed
// from using in a filename (spec.md §4.3.3), plus C0 control characters.
var forbiddenFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// AddItem creates a new object under parent from a host-supplied
// ObjectInfo dataset (spec.md §4.3.3).
func (s *Storage) AddItem(parent Handle, info *container.ObjectInfo) (Handle, error) {
	const op = "storage.AddItem"

	s.mu.Lock()
	parentItem, ok := s.items[parent]
	s.mu.Unlock()
	if !ok {
		return 0, mtperr.New(op, mtptypes.InvalidParentObject)
	}

	if forbiddenFilenameChars.MatchString(info.Filename) {
		return 0, mtperr.New(op, mtptypes.InvalidParameter)
	}

	path := filepath.Join(parentItem.Path, info.Filename)
	if _, err := os.Lstat(path); err == nil {
		return 0, mtperr.New(op, mtptypes.InvalidParameter)
	}

	if info.Format == mtptypes.FormatAssociation {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return 0, mtperr.Wrap(op, mtptypes.AccessDenied, err)
		}
	} else {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return 0, mtperr.Wrap(op, mtptypes.AccessDenied, err)
		}
		if err := chownToRealUser(f); err != nil {
			f.Close()
			os.Remove(path)
			return 0, mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
		size := info.CompressedSize
		if size != mtptypes.UnknownLength && size > 0 {
			if err := unix.Fallocate(int(f.Fd()), 0, 0, int64(size)); err != nil {
				_ = f.Truncate(int64(size))
			}
		} else {
			_ = f.Truncate(0)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return 0, mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
	}

	modTime := time.Now()
	if info.ModificationDate != "" {
		if t, err := parseMTPTime(info.ModificationDate); err == nil {
			modTime = t
		}
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		return 0, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.puoids.Assign(path)
	if err != nil {
		return 0, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	handle := s.allocHandle()
	item := &Item{
		Handle:  handle,
		Path:    path,
		PUOID:   id,
		ModTime: modTime,
		Info: &container.ObjectInfo{
			StorageID:        s.ID,
			Format:           info.Format,
			CompressedSize:   info.CompressedSize,
			ParentObject:     uint32(parent),
			Filename:         info.Filename,
			ModificationDate: formatMTPTime(modTime),
		},
	}
	s.insert(item, parent)

	if info.Format == mtptypes.FormatAssociation {
		if s.watcher != nil {
			if err := s.watcher.Add(path); err == nil {
				item.WatchActive = true
			}
		}
		if err := s.enumerateSubtreeLocked(item); err != nil {
			return 0, mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
	}

	return handle, nil
}

// enumerateSubtreeLocked recursively enumerates a newly created
// directory's existing contents. Callers must hold s.mu.
func (s *Storage) enumerateSubtreeLocked(dir *Item) error {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		childPath := filepath.Join(dir.Path, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		id, err := s.puoids.Assign(childPath)
		if err != nil {
			continue
		}
		format := mtptypes.FormatUndefined
		if info.IsDir() {
			format = mtptypes.FormatAssociation
		}
		child := &Item{
			Handle:  s.allocHandle(),
			Path:    childPath,
			PUOID:   id,
			ModTime: info.ModTime(),
			Info:    buildObjectInfo(s.ID, dir.Handle, entry.Name(), format, info),
		}
		s.insert(child, dir.Handle)
		if info.IsDir() {
			if s.watcher != nil {
				if err := s.watcher.Add(childPath); err == nil {
					child.WatchActive = true
				}
			}
			if err := s.enumerateSubtreeLocked(child); err != nil {
				return err
			}
		}
	}
	return nil
}

func chownToRealUser(f *os.File) error {
	uid := unix.Getuid()
	gid := unix.Getgid()
	return unix.Fchown(int(f.Fd()), uid, gid)
}

func parseMTPTime(s string) (time.Time, error) {
	layouts := []string{"20060102T150405", "20060102T150405.0"}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, fmt.Errorf("storage: parse MTP date %q: %w", s, lastErr)
}
