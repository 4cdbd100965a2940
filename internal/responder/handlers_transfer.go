package responder

import (
	"context"
	"os"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage"
)

// sendSession tracks an object between SendObjectInfo and the SendObject
// (or SendObjectPropList) data phase that follows it: expectedSize lets
// handleSendObject detect a short transfer, and pendingProps lets property
// values staged ahead of the bytes be applied once the write completes
// (spec.md §4.6.5 "SendObject data acceptance").
type sendSession struct {
	expectedSize uint64
	pendingProps map[mtptypes.PropCode]container.Value
}

// abortPartialSendObject deletes the object a cancelled SendObject was
// still writing into (spec.md §4.6.1 "partial objects being received are
// deleted").
func (r *Responder) abortPartialSendObject(req *container.Container) {
	r.mu.Lock()
	h := r.pendingWriteHandle
	r.pendingWriteHandle = 0
	delete(r.sends, h)
	r.mu.Unlock()

	if h == 0 {
		return
	}
	s, err := r.storages.StorageOf(h)
	if err != nil {
		return
	}
	_ = s.DeleteItem(h, 0)
}

// resolveWritableStorage picks the storage a SendObjectInfo with
// storageID 0 should target: the first mounted storage not marked
// read-only (spec.md §4.3.3 "a storage id of 0x00000000 lets the
// responder choose").
func (r *Responder) resolveWritableStorage() (*storage.Storage, error) {
	for _, id := range r.storages.StorageIDs() {
		if r.readOnly[id] {
			continue
		}
		if s, err := r.storages.Storage(id); err == nil {
			return s, nil
		}
	}
	return nil, mtperr.New("responder.resolveWritableStorage", mtptypes.StoreNotAvailable)
}

// clippedExtent returns how many bytes of [offset, offset+length) fall
// within a size-byte object. Callers must have already rejected
// offset > size; offset == size (and size == 0) legitimately clip to 0.
func clippedExtent(size, offset uint64, length uint32) uint64 {
	if offset >= size {
		return 0
	}
	remaining := size - offset
	if uint64(length) < remaining {
		return uint64(length)
	}
	return remaining
}

func (r *Responder) sendExtent(ctx context.Context, req *container.Container, h storage.Handle, offset uint64, length uint32) (*container.Container, error) {
	const op = "responder.sendExtent"

	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	item, ok := s.ByHandle(h)
	if !ok {
		return nil, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	info, err := os.Stat(item.Path)
	if err != nil {
		return nil, mtperr.Wrap(op, mtptypes.AccessDenied, err)
	}
	size := uint64(info.Size())
	if offset > size {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	n := clippedExtent(size, offset, length)

	buf := make([]byte, n)
	if n > 0 {
		if _, err := s.ReadData(h, int64(offset), int(n), buf); err != nil {
			return nil, err
		}
	}

	data := container.NewData(req.Code, req.TxID, buf)
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID, uint32(n)), nil
}

// handleGetObject streams the object's full content (spec.md §4.6.4).
func handleGetObject(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObject"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	return r.sendExtent(ctx, req, storage.Handle(params[0]), 0, mtptypes.UnknownLength)
}

// handleGetPartialObject streams a clipped [offset, offset+length) extent
// (spec.md §4.6.4).
func handleGetPartialObject(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetPartialObject"

	params, err := req.Params()
	if err != nil || len(params) < 3 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	return r.sendExtent(ctx, req, storage.Handle(params[0]), uint64(params[1]), params[2])
}

// handleGetPartialObject64 is the Android extension carrying a 64-bit
// offset split across two parameters (spec.md §4.6.4).
func handleGetPartialObject64(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetPartialObject64"

	params, err := req.Params()
	if err != nil || len(params) < 4 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	offset := uint64(params[1]) | uint64(params[2])<<32
	return r.sendExtent(ctx, req, storage.Handle(params[0]), offset, params[3])
}

// handleTruncateObject64 ftruncates to a 64-bit size (spec.md §4.6.4
// Android extension).
func handleTruncateObject64(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.TruncateObject64"

	params, err := req.Params()
	if err != nil || len(params) < 3 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	size := int64(uint64(params[1]) | uint64(params[2])<<32)

	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	if err := s.TruncateItem(h, size); err != nil {
		return nil, err
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleBeginEditObject and handleEndEditObject bracket a sequence of
// SendPartialObject64 writes (spec.md §4.6.4 Android extension); the
// storage engine needs no extra bookkeeping around the bracket itself.
func handleBeginEditObject(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.BeginEditObject"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	if _, err := r.storages.StorageOf(storage.Handle(params[0])); err != nil {
		return nil, err
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

func handleEndEditObject(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.EndEditObject"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	if _, err := r.storages.StorageOf(storage.Handle(params[0])); err != nil {
		return nil, err
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleSendObjectInfo creates the object the following SendObject data
// phase will write into (spec.md §4.3.3, §4.6.5).
func handleSendObjectInfo(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SendObjectInfo"

	params, err := req.Params()
	if err != nil || len(params) < 2 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	storageID, parent := params[0], storage.Handle(params[1])

	info, err := data.Decoder().DecodeObjectInfo()
	if err != nil {
		return nil, mtperr.Wrap(op, mtptypes.InvalidDataset, err)
	}

	var s *storage.Storage
	if storageID == 0 {
		s, err = r.resolveWritableStorage()
	} else if r.readOnly[storageID] {
		err = mtperr.New(op, mtptypes.StoreReadOnly)
	} else {
		s, err = r.storages.Storage(storageID)
	}
	if err != nil {
		return nil, err
	}

	h, err := s.AddItem(parent, info)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.pendingWriteHandle = h
	r.sends[h] = &sendSession{expectedSize: uint64(info.CompressedSize)}
	r.mu.Unlock()

	return container.NewResponse(mtptypes.OK, req.TxID, s.ID, uint32(parent), uint32(h)), nil
}

// handleSendObject accepts the byte stream for the object SendObjectInfo
// just created, applies any staged property values, and emits
// ObjectAdded (spec.md §4.6.5). A short transfer (fewer bytes received
// than SendObjectInfo declared) truncates the object to zero and reports
// IncompleteTransfer rather than accepting a partial write as OK.
func handleSendObject(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SendObject"

	r.mu.Lock()
	h := r.pendingWriteHandle
	r.pendingWriteHandle = 0
	session := r.sends[h]
	delete(r.sends, h)
	r.mu.Unlock()

	if h == 0 {
		return nil, mtperr.New(op, mtptypes.NoValidObjectInfo)
	}

	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	if err := s.WriteData(h, data.Payload, true, true); err != nil {
		return nil, err
	}

	if session != nil && uint64(len(data.Payload)) < session.expectedSize {
		if err := s.TruncateItem(h, 0); err != nil {
			return nil, err
		}
		return nil, mtperr.New(op, mtptypes.IncompleteTransfer)
	}

	item, _ := s.ByHandle(h)
	if session != nil {
		for code, val := range session.pendingProps {
			if code == mtptypes.PropObjectFileName {
				continue
			}
			if code == mtptypes.PropName && item != nil && val.Str == item.Info.Filename {
				continue
			}
			if err := r.applyObjectProp(s, h, code, val); err != nil {
				r.logger.Warn("responder: deferred property apply failed", "handle", h, "prop", code, "error", err)
			}
		}
	}

	r.emitObjectAdded(s, h)
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleSendPartialObject64 is the Android random-access write extension
// (spec.md §4.6.4).
func handleSendPartialObject64(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error) {
	const op = "responder.SendPartialObject64"

	params, err := req.Params()
	if err != nil || len(params) < 3 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	offset := int64(uint64(params[1]) | uint64(params[2])<<32)

	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	if err := s.WritePartialData(h, offset, data.Payload, true, true); err != nil {
		return nil, err
	}
	return container.NewResponse(mtptypes.OK, req.TxID, uint32(len(data.Payload))), nil
}

func (r *Responder) emitObjectAdded(s *storage.Storage, h storage.Handle) {
	r.queueEvent(mtptypes.EventObjectAdded, uint32(h))
}
