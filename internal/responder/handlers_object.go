package responder

import (
	"context"
	"os"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage"
)

const thumbReadCap = 10 * 1024 * 1024 // spec.md §4.3.8's 10 MiB representative-sample cap, reused for GetThumb

// storagesFor resolves the storage(s) a GetNumObjects/GetObjectHandles
// request spans: every mounted storage for the 0xFFFFFFFF wildcard, or
// the one named by storageID (spec.md §4.3.5/§6).
func (r *Responder) storagesFor(storageID uint32) ([]*storage.Storage, error) {
	if storageID != mtptypes.AllStorageIDs {
		s, err := r.storages.Storage(storageID)
		if err != nil {
			return nil, err
		}
		return []*storage.Storage{s}, nil
	}
	var out []*storage.Storage
	for _, id := range r.storages.StorageIDs() {
		s, err := r.storages.Storage(id)
		if err == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func handlesOf(s *storage.Storage, parent storage.Handle, formatFilter uint32) []storage.Handle {
	var handles []storage.Handle
	if parent == storage.AllObjects {
		handles = s.AllHandles()
	} else {
		handles = s.Children(parent)
	}
	if formatFilter == 0 {
		return handles
	}
	var out []storage.Handle
	for _, h := range handles {
		item, ok := s.ByHandle(h)
		if ok && uint16(item.Info.Format) == uint16(formatFilter) {
			out = append(out, h)
		}
	}
	return out
}

// handleGetNumObjects counts matching objects across the requested
// storage scope and returns the count as a response parameter, with no
// data phase (spec.md §6 operation set).
func handleGetNumObjects(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetNumObjects"

	params, err := req.Params()
	if err != nil || len(params) < 3 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}

	storages, err := r.storagesFor(params[0])
	if err != nil {
		return nil, err
	}
	var count uint32
	for _, s := range storages {
		count += uint32(len(handlesOf(s, storage.Handle(params[2]), params[1])))
	}
	return container.NewResponse(mtptypes.OK, req.TxID, count), nil
}

// handleGetObjectHandles streams the matching handle set as a data
// container, then replies OK.
func handleGetObjectHandles(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObjectHandles"

	params, err := req.Params()
	if err != nil || len(params) < 3 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}

	storages, err := r.storagesFor(params[0])
	if err != nil {
		return nil, err
	}
	var handles []uint32
	for _, s := range storages {
		for _, h := range handlesOf(s, storage.Handle(params[2]), params[1]) {
			handles = append(handles, uint32(h))
		}
	}

	enc := container.NewEncoder()
	enc.WriteArray(handles)
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleGetObjectInfo streams the ObjectInfo dataset for the requested
// handle (spec.md §3 "ObjectInfo").
func handleGetObjectInfo(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetObjectInfo"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])

	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	item, ok := s.ByHandle(h)
	if !ok {
		return nil, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}
	item.EventsOn = true

	enc := container.NewEncoder()
	enc.EncodeObjectInfo(item.Info)
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleGetThumb streams a representative thumbnail's raw bytes
// (spec.md §4.4: "Receipt of a Ready signal ... triggers ... events";
// here the thumbnail is simply read back if already cached).
func handleGetThumb(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetThumb"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])

	s, err := r.storages.StorageOf(h)
	if err != nil {
		return nil, err
	}
	item, ok := s.ByHandle(h)
	if !ok {
		return nil, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}
	if r.thumbnails == nil {
		return nil, mtperr.New(op, mtptypes.NoThumbnailPresent)
	}
	thumbPath, ready := r.thumbnails(item.Path)
	if !ready {
		return nil, mtperr.New(op, mtptypes.NoThumbnailPresent)
	}
	bytes, err := os.ReadFile(thumbPath)
	if err != nil {
		return nil, mtperr.New(op, mtptypes.NoThumbnailPresent)
	}
	if len(bytes) > thumbReadCap {
		bytes = bytes[:thumbReadCap]
	}

	data := container.NewData(req.Code, req.TxID, bytes)
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleDeleteObject deletes one handle, or every matching object under
// the 0xFFFFFFFF wildcard, across every mounted storage (spec.md
// §4.3.5).
func handleDeleteObject(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.DeleteObject"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	h := storage.Handle(params[0])
	formatFilter := mtptypes.FormatUndefined
	if len(params) > 1 && params[1] != 0 {
		formatFilter = mtptypes.FormatCode(params[1])
	}

	if h != storage.AllObjects {
		s, err := r.storages.StorageOf(h)
		if err != nil {
			return nil, err
		}
		if err := s.DeleteItem(h, formatFilter); err != nil {
			return nil, err
		}
		return container.NewResponse(mtptypes.OK, req.TxID), nil
	}

	var lastErr error
	for _, id := range r.storages.StorageIDs() {
		s, err := r.storages.Storage(id)
		if err != nil {
			continue
		}
		if err := s.DeleteItem(storage.AllObjects, formatFilter); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleCopyObject copies srcHandle into (destStorageID, destParent),
// returning the new handle as a response parameter (spec.md §4.3.6).
func handleCopyObject(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.CopyObject"

	params, err := req.Params()
	if err != nil || len(params) < 3 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	src := storage.Handle(params[0])
	dstParent := storage.Handle(params[2])

	srcStorage, err := r.storages.StorageOf(src)
	if err != nil {
		return nil, err
	}
	dstStorage, err := r.storages.Storage(params[1])
	if err != nil {
		return nil, err
	}

	newHandle, err := srcStorage.CopyItem(src, dstStorage, dstParent)
	if err != nil {
		return nil, err
	}
	return container.NewResponse(mtptypes.OK, req.TxID, uint32(newHandle)), nil
}

// handleMoveObject moves srcHandle to (destStorageID, destParent)
// (spec.md §4.3.6).
func handleMoveObject(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.MoveObject"

	params, err := req.Params()
	if err != nil || len(params) < 3 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}
	src := storage.Handle(params[0])
	dstParent := storage.Handle(params[2])

	srcStorage, err := r.storages.StorageOf(src)
	if err != nil {
		return nil, err
	}
	dstStorage, err := r.storages.Storage(params[1])
	if err != nil {
		return nil, err
	}

	if err := srcStorage.MoveItem(src, dstStorage, dstParent); err != nil {
		return nil, err
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}
