package responder

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/deviceinfo"
	"github.com/marmos91/mtpd/internal/extension"
	"github.com/marmos91/mtpd/internal/metrics"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/propreg"
	"github.com/marmos91/mtpd/internal/storage"
)

// Transport is the subset of internal/transport/functionfs.Transport the
// responder drives: receiving reassembled containers, replying on the
// bulk-in endpoint, and queuing asynchronous events (spec.md §5 "one
// event loop thread ... inter-thread communication is via queued
// delivery").
type Transport interface {
	Containers() <-chan *container.Container
	SendContainer(ctx context.Context, c *container.Container) error
	QueueEvent(c *container.Container)
	SetDeviceStatus(code uint16)
}

// Signaler is the subset of the transport that delivers control-plane
// notifications (spec.md §4.5.2 bindUSB/unbindUSB/startIO/stopIO/
// suspend/resume/cancelTransaction/deviceReset).
type Signaler interface {
	Signals() <-chan Signal
}

// Signal mirrors functionfs.Signal so this package does not need to
// import the transport package just for a plain value type.
type Signal struct {
	Kind SignalKind
}

// SignalKind mirrors functionfs.SignalKind.
type SignalKind int

const (
	SignalBindUSB SignalKind = iota
	SignalUnbindUSB
	SignalStartIO
	SignalStopIO
	SignalSuspend
	SignalResume
	SignalCancelTransaction
	SignalDeviceReset
)

// Config wires a Responder to its collaborators.
type Config struct {
	Logger     *slog.Logger
	Transport  Transport
	Signals    Signaler
	Storage    *storage.Engine
	DeviceInfo *deviceinfo.Provider
	Registry   *propreg.Registry
	Extensions *extension.Manager
	Thumbnails storage.ThumbnailLookup

	// ReadOnly marks storage ids mounted read-only (spec.md §6 StorageInfo
	// AccessCapability); the storage engine itself does not track this.
	ReadOnly map[uint32]bool

	// Metrics records transaction throughput and outcome codes. Nil is
	// safe: every ResponderMetrics method is a no-op on a nil receiver.
	Metrics *metrics.ResponderMetrics
}

// pendingCommand is the command container awaiting its data phase
// (spec.md §4.6.1 WAIT_DATA).
type pendingCommand struct {
	req   *container.Container
	op    *operation
	start time.Time
}

// Responder is the single event-loop actor that owns the state machine,
// dispatch table, and session (spec.md §5 "one event loop thread hosts
// the responder state machine, the storage engine, and the property
// registry — all handler code runs serialized on this thread").
type Responder struct {
	logger     *slog.Logger
	transport  Transport
	signals    Signaler
	storages   *storage.Engine
	devInfo    *deviceinfo.Provider
	registry   *propreg.Registry
	extensions *extension.Manager
	thumbnails storage.ThumbnailLookup
	readOnly   map[uint32]bool
	metrics    *metrics.ResponderMetrics

	mu        sync.Mutex
	state     State
	sessionID uint32

	pending      *pendingCommand
	savedState   State // state to restore from TX_CANCEL/SUSPEND
	sends        map[storage.Handle]*sendSession

	// pendingWriteHandle is the object SendObjectInfo most recently
	// created, awaiting the SendObject data phase that supplies its bytes
	// (spec.md §4.6.5 "SendObject ... writes into the handle created by
	// the preceding SendObjectInfo").
	pendingWriteHandle storage.Handle
}

// NewResponder constructs a Responder in the IDLE state.
func NewResponder(cfg Config) *Responder {
	return &Responder{
		logger:     cfg.Logger,
		transport:  cfg.Transport,
		signals:    cfg.Signals,
		storages:   cfg.Storage,
		devInfo:    cfg.DeviceInfo,
		registry:   cfg.Registry,
		extensions: cfg.Extensions,
		thumbnails: cfg.Thumbnails,
		readOnly:   cfg.ReadOnly,
		metrics:    cfg.Metrics,
		sends:      make(map[storage.Handle]*sendSession),
	}
}

// State returns the responder's current state machine state.
func (r *Responder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run is the event loop: it serializes containers, transport signals,
// and storage-engine events onto one goroutine until ctx is cancelled
// (spec.md §5 "Scheduling model").
func (r *Responder) Run(ctx context.Context) error {
	var signalCh <-chan Signal
	if r.signals != nil {
		signalCh = r.signals.Signals()
	}
	var storageEvents <-chan storage.Event
	if r.storages != nil {
		storageEvents = r.storages.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-r.transport.Containers():
			if !ok {
				return nil
			}
			r.handleIncoming(ctx, req)
		case sig, ok := <-signalCh:
			if !ok {
				signalCh = nil
				continue
			}
			r.handleSignal(sig)
		case ev, ok := <-storageEvents:
			if !ok {
				storageEvents = nil
				continue
			}
			r.emitStorageEvent(ev)
		}
	}
}

// handleIncoming routes a reassembled container to either command
// dispatch (IDLE) or data-phase completion (WAIT_DATA), per spec.md
// §4.6.1. A container of an unexpected type in the current state is
// logged and dropped, and the pending transaction is reset to IDLE; the
// transport itself is not reset.
func (r *Responder) handleIncoming(ctx context.Context, c *container.Container) {
	r.mu.Lock()
	state := r.state
	pending := r.pending
	r.mu.Unlock()

	switch {
	case state == StateWaitData && c.Type == mtptypes.ContainerTypeData:
		r.completeDataPhase(ctx, pending, c)
	case c.Type == mtptypes.ContainerTypeCommand:
		r.dispatchCommand(ctx, c)
	default:
		r.logger.Warn("responder: container in unexpected state, resetting transaction",
			"state", state, "container_type", c.Type)
		r.resetTransaction()
	}
}

func (r *Responder) resetTransaction() {
	r.mu.Lock()
	r.state = StateIdle
	r.pending = nil
	r.mu.Unlock()
}

// dispatchCommand runs pre-checks, then either completes synchronously
// or transitions to WAIT_DATA (spec.md §4.6.2).
func (r *Responder) dispatchCommand(ctx context.Context, req *container.Container) {
	start := time.Now()

	r.mu.Lock()
	if r.state == StateTxCancel {
		r.state = StateIdle
		r.transport.SetDeviceStatus(mtptypes.DeviceStatusOK)
	}
	r.mu.Unlock()

	if err := r.precheck(req); err != nil {
		r.respondError(ctx, req, err)
		r.observe(operationName(req.Code, nil), err, start)
		return
	}

	op, ok := dispatchTable[req.Code]
	if !ok {
		hasDataPhase, claimed := r.extensions.HasDataPhase(req.Code)
		if !claimed {
			err := mtperr.New("responder.dispatchCommand", mtptypes.OperationNotSupported)
			r.respondError(ctx, req, err)
			r.observe(operationName(req.Code, nil), err, start)
			return
		}
		if hasDataPhase {
			r.enterWaitData(req, nil, start)
			return
		}
		resp, _, err := r.extensions.Dispatch(ctx, req, nil)
		r.respond(ctx, req, resp, err)
		r.observe(operationName(req.Code, nil), err, start)
		return
	}

	if op.HasDataPhase {
		r.enterWaitData(req, op, start)
		return
	}

	resp, err := op.Handle(ctx, r, req)
	r.respond(ctx, req, resp, err)
	r.observe(op.Name, err, start)
}

func (r *Responder) enterWaitData(req *container.Container, op *operation, start time.Time) {
	r.mu.Lock()
	r.state = StateWaitData
	r.pending = &pendingCommand{req: req, op: op, start: start}
	r.mu.Unlock()
}

// completeDataPhase runs the data-phase handler for the operation that
// entered WAIT_DATA, then returns to IDLE (spec.md §4.6.1 WAIT_DATA →
// WAIT_RESP → IDLE).
func (r *Responder) completeDataPhase(ctx context.Context, pending *pendingCommand, data *container.Container) {
	r.mu.Lock()
	r.state = StateIdle
	r.pending = nil
	r.mu.Unlock()

	if pending == nil {
		return
	}

	var resp *container.Container
	var err error
	if pending.op != nil {
		resp, err = pending.op.HandleData(ctx, r, pending.req, data)
	} else {
		resp, _, err = r.extensions.Dispatch(ctx, pending.req, data)
	}
	r.respond(ctx, pending.req, resp, err)
	r.observe(operationName(pending.req.Code, pending.op), err, pending.start)
}

// respond sends resp if non-nil, else synthesizes a response container
// from err's MTP response code (spec.md §4.6.3 "Failures set the cached
// response code ... then the error response is sent").
func (r *Responder) respond(ctx context.Context, req *container.Container, resp *container.Container, err error) {
	if resp == nil {
		var params []uint32
		resp = container.NewResponse(mtperr.CodeOf(err), req.TxID, params...)
	}
	if sendErr := r.transport.SendContainer(ctx, resp); sendErr != nil {
		r.logger.Error("responder: send response failed", "error", sendErr, "txid", req.TxID)
	}
}

func (r *Responder) respondError(ctx context.Context, req *container.Container, err error) {
	resp := container.NewResponse(mtperr.CodeOf(err), req.TxID)
	if sendErr := r.transport.SendContainer(ctx, resp); sendErr != nil {
		r.logger.Error("responder: send error response failed", "error", sendErr, "txid", req.TxID)
	}
}

// operationName names a transaction for metrics/logging: the dispatch
// table's operation name when known, else the raw operation code.
func operationName(code uint16, op *operation) string {
	if op != nil {
		return op.Name
	}
	return "0x" + strconv.FormatUint(uint64(code), 16)
}

// observe records transaction throughput and outcome code, a no-op when
// no metrics sink is configured.
func (r *Responder) observe(name string, err error, start time.Time) {
	if r.metrics == nil {
		return
	}
	code := strconv.FormatUint(uint64(mtperr.CodeOf(err)), 16)
	r.metrics.ObserveTransaction(name, code, time.Since(start))
}

// handleSignal reacts to a transport control-plane notification
// (spec.md §4.6.1 "any → TX_CANCEL", "any → SUSPEND").
func (r *Responder) handleSignal(sig Signal) {
	switch sig.Kind {
	case SignalCancelTransaction:
		r.enterTxCancel()
	case SignalDeviceReset:
		r.resetTransaction()
		r.transport.SetDeviceStatus(mtptypes.DeviceStatusOK)
	case SignalSuspend:
		r.mu.Lock()
		r.savedState = r.state
		r.state = StateSuspend
		r.mu.Unlock()
	case SignalResume:
		r.mu.Lock()
		r.state = r.savedState
		r.mu.Unlock()
	case SignalStartIO, SignalStopIO, SignalBindUSB, SignalUnbindUSB:
		// No responder-visible state change; the transport owns endpoint
		// lifecycle for these.
	}
}

// enterTxCancel aborts any in-flight data phase, deletes a partially
// received SendObject, and reports TransactionCancelled until the next
// command (spec.md §4.6.1, §5 "Cancellation").
func (r *Responder) enterTxCancel() {
	r.mu.Lock()
	pending := r.pending
	r.state = StateTxCancel
	r.pending = nil
	r.mu.Unlock()

	r.transport.SetDeviceStatus(mtptypes.DeviceStatusTxCancel)
	r.metrics.RecordTxCancel()

	if pending != nil && pending.op != nil && pending.op.Name == "SendObject" {
		r.abortPartialSendObject(pending.req)
	}
}
