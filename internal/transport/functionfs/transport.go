package functionfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/metrics"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

const (
	// bulkReadChunk matches spec.md §4.5.2's "reads up to 16 KiB per syscall".
	bulkReadChunk = 16 * 1024

	signalQueueCap    = 32
	containerQueueCap = 64
	// interruptQueueCap is the bounded event queue of spec.md §4.5.2;
	// overflow drops the oldest queued event.
	interruptQueueCap = 512
)

// Config names the FunctionFS mount point the gadget was bound under
// (typically exposed by configfs as /dev/ffs-<function-name>).
type Config struct {
	MountPoint string
}

// Transport drives one FunctionFS gadget function: descriptor setup on
// ep0, then four goroutines for the control reader, bulk reader, bulk
// writer, and interrupt writer (spec.md §4.5).
type Transport struct {
	logger     *slog.Logger
	mountPoint string

	ep0 *endpoint
	ep1 *endpoint // bulk-in, write-only
	ep2 *endpoint // bulk-out, read-only
	ep3 *endpoint // interrupt-in, write-only

	signals    chan Signal
	containers chan *container.Container

	writeJobs chan writeJob

	intrMu    sync.Mutex
	intrQueue [][]byte
	intrWake  chan struct{}

	deviceStatus atomic.Uint32

	resolveUnknown UnknownLengthResolver

	metrics *metrics.TransportMetrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type writeJob struct {
	data   []byte
	end    bool
	result chan error
}

// New constructs a Transport for the gadget mounted at cfg.MountPoint.
// Call WriteDescriptors, then Activate once the storage engine is ready
// (spec.md §4.5.1).
func New(logger *slog.Logger, cfg Config) *Transport {
	return &Transport{
		logger:     logger,
		mountPoint: cfg.MountPoint,
		signals:    make(chan Signal, signalQueueCap),
		containers: make(chan *container.Container, containerQueueCap),
		writeJobs:  make(chan writeJob),
		intrWake:   make(chan struct{}, 1),
	}
}

// SetUnknownLengthResolver installs the callback used to resolve
// 0xFFFFFFFF-length containers (spec.md §4.5.3).
func (t *Transport) SetUnknownLengthResolver(r UnknownLengthResolver) {
	t.resolveUnknown = r
}

// SetMetrics installs the sink for bulk byte counts, read errors, and
// control-plane signal counts. Nil is safe: every TransportMetrics
// method is a no-op on a nil receiver.
func (t *Transport) SetMetrics(m *metrics.TransportMetrics) {
	t.metrics = m
}

// WriteDescriptors opens ep0 and writes the descriptor and strings blocks
// (spec.md §4.5.1 step 1 and 2). It must be called before Activate.
func (t *Transport) WriteDescriptors() error {
	ep0, err := openEndpoint(filepath.Join(t.mountPoint, "ep0"), unix.O_RDWR)
	if err != nil {
		return fmt.Errorf("functionfs: open ep0: %w", err)
	}
	if _, err := ep0.f.Write(buildDescriptors()); err != nil {
		ep0.Close()
		return fmt.Errorf("functionfs: write descriptors: %w", err)
	}
	if _, err := ep0.f.Write(buildStrings()); err != nil {
		ep0.Close()
		return fmt.Errorf("functionfs: write strings: %w", err)
	}
	t.ep0 = ep0
	return nil
}

// Activate opens the bulk and interrupt endpoints and starts the four
// transport goroutines. Callers defer this until the storage engine
// signals ready, so the host never observes attach-then-stall (spec.md
// §4.5.1).
func (t *Transport) Activate(ctx context.Context) error {
	ep1, err := openEndpoint(filepath.Join(t.mountPoint, "ep1"), unix.O_WRONLY)
	if err != nil {
		return fmt.Errorf("functionfs: open ep1: %w", err)
	}
	ep2, err := openEndpoint(filepath.Join(t.mountPoint, "ep2"), unix.O_RDONLY)
	if err != nil {
		ep1.Close()
		return fmt.Errorf("functionfs: open ep2: %w", err)
	}
	ep3, err := openEndpoint(filepath.Join(t.mountPoint, "ep3"), unix.O_WRONLY)
	if err != nil {
		ep1.Close()
		ep2.Close()
		return fmt.Errorf("functionfs: open ep3: %w", err)
	}
	t.ep1, t.ep2, t.ep3 = ep1, ep2, ep3
	t.deviceStatus.Store(uint32(mtptypes.DeviceStatusOK))

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(4)
	go t.runControlReader(runCtx)
	go t.runBulkReader(runCtx)
	go t.runBulkWriter(runCtx)
	go t.runInterruptWriter(runCtx)
	return nil
}

// Close cancels the transport's goroutines, waits for them to exit, and
// closes every open endpoint file.
func (t *Transport) Close() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
	var firstErr error
	for _, ep := range []*endpoint{t.ep0, t.ep1, t.ep2, t.ep3} {
		if err := ep.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Signals returns the channel of control-plane notifications (bind,
// unbind, start/stop I/O, suspend/resume, cancel, device reset).
func (t *Transport) Signals() <-chan Signal { return t.signals }

// Containers returns the channel of fully reassembled command/data
// containers read from the bulk-out endpoint.
func (t *Transport) Containers() <-chan *container.Container { return t.containers }

// SetDeviceStatus updates the status record returned from a class-specific
// GET_DEVICE_STATUS control request (spec.md §4.5.2).
func (t *Transport) SetDeviceStatus(code uint16) { t.deviceStatus.Store(uint32(code)) }

func (t *Transport) emitSignal(k SignalKind) {
	t.metrics.RecordSignal(k.String())
	select {
	case t.signals <- Signal{Kind: k}:
	default:
		t.logger.Warn("functionfs: signal queue full, dropping", "signal", k.String())
	}
}

func (t *Transport) runControlReader(ctx context.Context) {
	defer t.wg.Done()
	buf := make([]byte, rawEventSize)
	for {
		if err := t.ep0.waitReadable(ctx); err != nil {
			return
		}
		n, err := t.ep0.f.Read(buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			t.metrics.RecordReadError("control")
			t.logger.Warn("functionfs: ep0 read error", "error", err)
			continue
		}
		kind, req, ok := parseEvent(buf[:n])
		if !ok {
			continue
		}
		switch kind {
		case eventBind:
			t.emitSignal(SignalBindUSB)
		case eventUnbind:
			t.emitSignal(SignalUnbindUSB)
		case eventEnable:
			t.emitSignal(SignalStartIO)
		case eventDisable:
			t.emitSignal(SignalStopIO)
		case eventSuspend:
			t.emitSignal(SignalSuspend)
		case eventResume:
			t.emitSignal(SignalResume)
		case eventSetup:
			t.handleSetup(req)
		}
	}
}

// handleSetup answers a class-specific control request on ep0. Anything
// the gadget doesn't recognize is stalled by issuing a zero-length
// transfer in the direction the host didn't ask for, which the kernel
// maps to a protocol stall (spec.md §4.5.2).
func (t *Transport) handleSetup(req ctrlRequest) {
	switch req.bRequest {
	case reqGetDeviceStatus:
		status := uint16(t.deviceStatus.Load())
		if _, err := t.ep0.f.Write(deviceStatusRecord(status)); err != nil {
			t.logger.Warn("functionfs: device status reply failed", "error", err)
		}
	case reqCancel:
		t.emitSignal(SignalCancelTransaction)
		t.ackSetup(req)
	case reqDeviceReset:
		t.emitSignal(SignalDeviceReset)
		t.ackSetup(req)
	default:
		t.stall(req)
	}
}

func (t *Transport) ackSetup(req ctrlRequest) {
	if req.deviceToHost() {
		_, _ = t.ep0.f.Write(nil)
	} else {
		_, _ = t.ep0.f.Read(nil)
	}
}

func (t *Transport) stall(req ctrlRequest) {
	if req.deviceToHost() {
		_, _ = t.ep0.f.Read(nil)
	} else {
		_, _ = t.ep0.f.Write(nil)
	}
}

func (t *Transport) runBulkReader(ctx context.Context) {
	defer t.wg.Done()
	buf := make([]byte, bulkReadChunk)
	r := newReassembler(t.resolveUnknown)
	for {
		if err := t.ep2.waitReadable(ctx); err != nil {
			return
		}
		n, err := t.ep2.f.Read(buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			t.metrics.RecordReadError("bulk_out")
			t.logger.Warn("functionfs: ep2 read error", "error", err)
			continue
		}
		t.metrics.RecordBulkBytesIn(n)
		containers, err := r.feed(buf[:n])
		if err != nil {
			t.logger.Warn("functionfs: container reassembly failed", "error", err)
			continue
		}
		for _, c := range containers {
			select {
			case t.containers <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}
