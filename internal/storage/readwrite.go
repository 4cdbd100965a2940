package storage

import (
	"io"
	"os"

	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// ReadData opens the backing file and reads exactly length bytes from
// offset (spec.md §4.3.4 "Uses a single open per call").
func (s *Storage) ReadData(h Handle, offset int64, length int, out []byte) (int, error) {
	const op = "storage.ReadData"

	item, ok := s.ByHandle(h)
	if !ok {
		return 0, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	f, err := os.Open(item.Path)
	if err != nil {
		return 0, mtperr.Wrap(op, mtptypes.AccessDenied, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	n, err := io.ReadFull(f, out[:length])
	if err != nil {
		return n, mtperr.Wrap(op, mtptypes.IncompleteTransfer, err)
	}
	return n, nil
}

// writeSession tracks an in-progress SendObject/SendPartialObject64
// write so inotify events it generates can be suppressed (spec.md
// §4.3.4 "ignore inotify for this object").
type writeSession struct {
	f *os.File
}

// WriteData opens (on first) or continues (on subsequent) a segmented
// write of buf (spec.md §4.3.4).
func (s *Storage) WriteData(h Handle, buf []byte, first, last bool) error {
	const op = "storage.WriteData"

	item, ok := s.ByHandle(h)
	if !ok {
		return mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	s.mu.Lock()
	if first {
		item.IgnoreInotify = true
		f, err := os.OpenFile(item.Path, os.O_RDWR, 0o644)
		if err != nil {
			s.mu.Unlock()
			return mtperr.Wrap(op, mtptypes.AccessDenied, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			s.mu.Unlock()
			return mtperr.Wrap(op, mtptypes.GeneralError, err)
		}
		s.writeSessions[h] = &writeSession{f: f}
	}
	session, ok := s.writeSessions[h]
	s.mu.Unlock()
	if !ok {
		return mtperr.New(op, mtptypes.GeneralError)
	}

	if _, err := session.f.Write(buf); err != nil {
		return mtperr.Wrap(op, mtptypes.IncompleteTransfer, err)
	}

	if last {
		return s.finishWrite(item, session)
	}
	return nil
}

// WritePartialData is the Android extension path: seek to an explicit
// offset, write, preserve cached mtime on close (spec.md §4.3.4).
func (s *Storage) WritePartialData(h Handle, offset int64, buf []byte, first, last bool) error {
	const op = "storage.WritePartialData"

	item, ok := s.ByHandle(h)
	if !ok {
		return mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	s.mu.Lock()
	if first {
		item.IgnoreInotify = true
		f, err := os.OpenFile(item.Path, os.O_RDWR, 0o644)
		if err != nil {
			s.mu.Unlock()
			return mtperr.Wrap(op, mtptypes.AccessDenied, err)
		}
		s.writeSessions[h] = &writeSession{f: f}
	}
	session, ok := s.writeSessions[h]
	s.mu.Unlock()
	if !ok {
		return mtperr.New(op, mtptypes.GeneralError)
	}

	if _, err := session.f.Seek(offset, io.SeekStart); err != nil {
		return mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	if _, err := session.f.Write(buf); err != nil {
		return mtperr.Wrap(op, mtptypes.IncompleteTransfer, err)
	}

	if last {
		return s.finishWrite(item, session)
	}
	return nil
}

// finishWrite flushes, truncates to the current write position, closes,
// and re-applies the cached modification time (spec.md §4.3.4: "both the
// intermediate writes and the close can disturb mtime").
func (s *Storage) finishWrite(item *Item, session *writeSession) error {
	const op = "storage.finishWrite"

	pos, err := session.f.Seek(0, io.SeekCurrent)
	if err != nil {
		session.f.Close()
		return mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	if err := session.f.Truncate(pos); err != nil {
		session.f.Close()
		return mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	if err := session.f.Close(); err != nil {
		return mtperr.Wrap(op, mtptypes.GeneralError, err)
	}

	s.mu.Lock()
	delete(s.writeSessions, item.Handle)
	modTime := item.ModTime
	item.Info.CompressedSize = uint32(pos)
	item.IgnoreInotify = false
	s.mu.Unlock()

	if err := os.Chtimes(item.Path, modTime, modTime); err != nil {
		return mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return nil
}

// TruncateItem ftruncates the backing file to size.
func (s *Storage) TruncateItem(h Handle, size int64) error {
	const op = "storage.TruncateItem"
	item, ok := s.ByHandle(h)
	if !ok {
		return mtperr.New(op, mtptypes.InvalidObjectHandle)
	}
	if err := os.Truncate(item.Path, size); err != nil {
		return mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	s.mu.Lock()
	item.Info.CompressedSize = uint32(size)
	s.mu.Unlock()
	return nil
}
