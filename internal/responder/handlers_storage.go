package responder

import (
	"context"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// handleGetStorageIDs streams every mounted storage id as a UINT32 array
// (spec.md §3 "StorageIDs").
func handleGetStorageIDs(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	ids := r.storages.StorageIDs()
	enc := container.NewEncoder()
	enc.WriteArray(ids)
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap("responder.GetStorageIDs", mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleGetStorageInfo streams the StorageInfo dataset for the requested
// storage id (spec.md §3 "StorageInfo").
func handleGetStorageInfo(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.GetStorageInfo"

	params, err := req.Params()
	if err != nil || len(params) < 1 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}

	s, err := r.storages.Storage(params[0])
	if err != nil {
		return nil, err
	}
	info, err := s.Info(r.readOnly[params[0]])
	if err != nil {
		return nil, mtperr.Wrap(op, mtptypes.StoreNotAvailable, err)
	}

	enc := container.NewEncoder()
	enc.EncodeStorageInfo(info)
	data := container.NewData(req.Code, req.TxID, enc.Bytes())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap(op, mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}
