package storage

import (
	"os"

	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// DeleteItem deletes handle (or, if handle is AllObjects, every object
// matching formatFilter) and returns the aggregate outcome code
// (spec.md §4.3.5).
func (s *Storage) DeleteItem(h Handle, formatFilter mtptypes.FormatCode) error {
	const op = "storage.DeleteItem"

	if h != AllObjects {
		return s.deleteOne(h)
	}

	s.mu.RLock()
	handles := make([]Handle, 0, len(s.items))
	for handle, item := range s.items {
		if handle == RootHandle {
			continue
		}
		if formatFilter != mtptypes.FormatUndefined && item.Info.Format != formatFilter {
			continue
		}
		handles = append(handles, handle)
	}
	s.mu.RUnlock()

	var succeeded, failed int
	var lastErr error
	for _, handle := range handles {
		if _, ok := s.ByHandle(handle); !ok {
			continue // already removed as part of a parent's subtree
		}
		if err := s.deleteOne(handle); err != nil {
			failed++
			lastErr = err
		} else {
			succeeded++
		}
	}

	switch {
	case failed == 0:
		return nil
	case succeeded == 0:
		return lastErr
	default:
		return mtperr.New(op, mtptypes.PartialDeletion)
	}
}

func (s *Storage) deleteOne(h Handle) error {
	const op = "storage.DeleteItem"

	if h == RootHandle {
		return mtperr.New(op, mtptypes.ObjectWriteProtected)
	}

	item, ok := s.ByHandle(h)
	if !ok {
		return mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	if item.IsDirectory() {
		children := s.Children(h)
		failed := false
		for _, child := range children {
			if err := s.deleteOne(child); err != nil {
				failed = true
			}
		}
		if failed {
			return mtperr.New(op, mtptypes.PartialDeletion)
		}
		if err := os.Remove(item.Path); err != nil {
			return mtperr.Wrap(op, mtptypes.AccessDenied, err)
		}
	} else {
		if err := os.Remove(item.Path); err != nil {
			return mtperr.Wrap(op, mtptypes.AccessDenied, err)
		}
	}

	s.mu.Lock()
	s.remove(h)
	s.mu.Unlock()
	_ = s.puoids.Forget(item.Path)
	return nil
}
