package responder

import (
	"context"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage"
)

// handleGetDeviceInfo streams the static GetDeviceInfo dataset as a data
// container, then replies OK (spec.md §4.1, §4.6.3 "GetDeviceInfo ...
// uses synthetic session 1" path doesn't apply here — this op runs
// before any session exists at all).
func handleGetDeviceInfo(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	data := container.NewData(req.Code, req.TxID, r.devInfo.Dataset())
	if err := r.transport.SendContainer(ctx, data); err != nil {
		return nil, mtperr.Wrap("responder.GetDeviceInfo", mtptypes.GeneralError, err)
	}
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleOpenSession establishes the responder's session id (spec.md
// §4.6.3 pre-check 1). A second OpenSession while one is active fails
// with SessionAlreadyOpen.
func handleOpenSession(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	const op = "responder.OpenSession"

	params, err := req.Params()
	if err != nil || len(params) < 1 || params[0] == 0 {
		return nil, mtperr.New(op, mtptypes.InvalidParameter)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessionID != 0 {
		return nil, mtperr.New(op, mtptypes.SessionAlreadyOpen)
	}
	r.sessionID = params[0]
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}

// handleCloseSession tears down the session and any in-flight write
// state (spec.md §4.6.1: a fresh session starts from IDLE with no
// pending transfers).
func handleCloseSession(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error) {
	r.mu.Lock()
	r.sessionID = 0
	r.state = StateIdle
	r.pending = nil
	r.sends = make(map[storage.Handle]*sendSession)
	r.mu.Unlock()
	return container.NewResponse(mtptypes.OK, req.TxID), nil
}
