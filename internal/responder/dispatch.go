package responder

import (
	"context"
	"sort"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

// commandHandler processes a command with no data phase (or the command
// phase of one that sends data device→host) and produces the response.
// Handlers that stream a data container themselves (GetObject and
// friends) use ctx to send it before returning.
type commandHandler func(ctx context.Context, r *Responder, req *container.Container) (*container.Container, error)

// dataHandler processes the data container for a command whose data
// phase flows host→device, producing the response once the full data
// container has been reassembled.
type dataHandler func(ctx context.Context, r *Responder, req, data *container.Container) (*container.Container, error)

// operation is one entry of the dispatch table, mirroring the teacher's
// procedure-table shape (name/handler/flag triple, keyed densely by
// operation code per spec.md §4.6.2).
type operation struct {
	Name         string
	HasDataPhase bool
	Handle       commandHandler
	HandleData   dataHandler
}

// dispatchTable maps operation codes to their handler metadata. Built
// once at package init, mirroring the teacher's NfsDispatchTable shape.
var dispatchTable map[uint16]*operation

func init() {
	dispatchTable = map[uint16]*operation{
		uint16(mtptypes.OpGetDeviceInfo):      {Name: "GetDeviceInfo", Handle: handleGetDeviceInfo},
		uint16(mtptypes.OpOpenSession):        {Name: "OpenSession", Handle: handleOpenSession},
		uint16(mtptypes.OpCloseSession):       {Name: "CloseSession", Handle: handleCloseSession},
		uint16(mtptypes.OpGetStorageIDs):      {Name: "GetStorageIDs", Handle: handleGetStorageIDs},
		uint16(mtptypes.OpGetStorageInfo):     {Name: "GetStorageInfo", Handle: handleGetStorageInfo},
		uint16(mtptypes.OpGetNumObjects):      {Name: "GetNumObjects", Handle: handleGetNumObjects},
		uint16(mtptypes.OpGetObjectHandles):   {Name: "GetObjectHandles", Handle: handleGetObjectHandles},
		uint16(mtptypes.OpGetObjectInfo):      {Name: "GetObjectInfo", Handle: handleGetObjectInfo},
		uint16(mtptypes.OpGetObject):          {Name: "GetObject", Handle: handleGetObject},
		uint16(mtptypes.OpGetThumb):           {Name: "GetThumb", Handle: handleGetThumb},
		uint16(mtptypes.OpDeleteObject):       {Name: "DeleteObject", Handle: handleDeleteObject},
		uint16(mtptypes.OpCopyObject):         {Name: "CopyObject", Handle: handleCopyObject},
		uint16(mtptypes.OpMoveObject):         {Name: "MoveObject", Handle: handleMoveObject},
		uint16(mtptypes.OpGetPartialObject):   {Name: "GetPartialObject", Handle: handleGetPartialObject},
		uint16(mtptypes.OpGetPartialObject64): {Name: "GetPartialObject64", Handle: handleGetPartialObject64},
		uint16(mtptypes.OpTruncateObject64):   {Name: "TruncateObject64", Handle: handleTruncateObject64},
		uint16(mtptypes.OpBeginEditObject):    {Name: "BeginEditObject", Handle: handleBeginEditObject},
		uint16(mtptypes.OpEndEditObject):      {Name: "EndEditObject", Handle: handleEndEditObject},

		uint16(mtptypes.OpGetDevicePropDesc):  {Name: "GetDevicePropDesc", Handle: handleGetDevicePropDesc},
		uint16(mtptypes.OpGetDevicePropValue): {Name: "GetDevicePropValue", Handle: handleGetDevicePropValue},

		uint16(mtptypes.OpGetObjectPropsSupported): {Name: "GetObjectPropsSupported", Handle: handleGetObjectPropsSupported},
		uint16(mtptypes.OpGetObjectPropDesc):       {Name: "GetObjectPropDesc", Handle: handleGetObjectPropDesc},
		uint16(mtptypes.OpGetObjectPropValue):      {Name: "GetObjectPropValue", Handle: handleGetObjectPropValue},
		uint16(mtptypes.OpGetObjectPropList):       {Name: "GetObjectPropList", Handle: handleGetObjectPropList},
		uint16(mtptypes.OpGetObjectReferences):     {Name: "GetObjectReferences", Handle: handleGetObjectReferences},

		uint16(mtptypes.OpSendObjectInfo): {Name: "SendObjectInfo", HasDataPhase: true, HandleData: handleSendObjectInfo},
		uint16(mtptypes.OpSendObject):     {Name: "SendObject", HasDataPhase: true, HandleData: handleSendObject},
		uint16(mtptypes.OpSendPartialObject64): {Name: "SendPartialObject64", HasDataPhase: true, HandleData: handleSendPartialObject64},
		uint16(mtptypes.OpSendObjectPropList):  {Name: "SendObjectPropList", HasDataPhase: true, HandleData: handleSendObjectPropList},
		uint16(mtptypes.OpSetDevicePropValue):  {Name: "SetDevicePropValue", HasDataPhase: true, HandleData: handleSetDevicePropValue},
		uint16(mtptypes.OpSetObjectPropValue):  {Name: "SetObjectPropValue", HasDataPhase: true, HandleData: handleSetObjectPropValue},
		uint16(mtptypes.OpSetObjectPropList):   {Name: "SetObjectPropList", HasDataPhase: true, HandleData: handleSetObjectPropList},
		uint16(mtptypes.OpSetObjectReferences): {Name: "SetObjectReferences", HasDataPhase: true, HandleData: handleSetObjectReferences},
	}
}

// SupportedOperations returns every operation code this responder
// dispatches natively, sorted ascending. internal/daemon uses this to
// populate the GetDeviceInfo OperationsSupported array (spec.md §4.1)
// without duplicating the dispatch table's key set by hand.
func SupportedOperations() []uint16 {
	codes := make([]uint16, 0, len(dispatchTable))
	for code := range dispatchTable {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// noSessionRequired lists operations that may run before OpenSession
// establishes a session (spec.md §4.6.3 pre-check 1).
var noSessionRequired = map[uint16]bool{
	uint16(mtptypes.OpGetDeviceInfo):           true,
	uint16(mtptypes.OpOpenSession):             true,
	uint16(mtptypes.OpGetObjectPropsSupported): true,
}

// precheck applies spec.md §4.6.3's pre-checks common to every operation,
// returning a non-nil error if the command should be rejected without
// reaching its handler.
func (r *Responder) precheck(req *container.Container) error {
	const op = "responder.precheck"

	if !noSessionRequired[req.Code] && r.sessionID == 0 {
		return mtperr.New(op, mtptypes.SessionNotOpen)
	}
	if req.TxID == 0 || req.TxID == mtptypes.UnknownLength {
		return mtperr.New(op, mtptypes.InvalidTransID)
	}
	return nil
}
