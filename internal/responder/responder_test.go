package responder_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/deviceinfo"
	"github.com/marmos91/mtpd/internal/extension"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/propreg"
	"github.com/marmos91/mtpd/internal/responder"
	"github.com/marmos91/mtpd/internal/storage"
)

// fakeTransport is an in-memory stand-in for functionfs.Transport: it
// lets a test feed commands in and inspect what the responder would have
// written to the bulk-in endpoint.
type fakeTransport struct {
	mu       sync.Mutex
	in       chan *container.Container
	sent     []*container.Container
	events   []*container.Container
	status   uint16
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan *container.Container, 8)}
}

func (f *fakeTransport) Containers() <-chan *container.Container { return f.in }

func (f *fakeTransport) SendContainer(ctx context.Context, c *container.Container) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return nil
}

func (f *fakeTransport) QueueEvent(c *container.Container) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, c)
}

func (f *fakeTransport) SetDeviceStatus(code uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
}

func (f *fakeTransport) lastSent() *container.Container {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// sentContainers returns a snapshot of every container handed to
// SendContainer so far, in order.
func (f *fakeTransport) sentContainers() []*container.Container {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*container.Container, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeTransport) deviceStatus() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

type fakeSignaler struct {
	ch chan responder.Signal
}

func newFakeSignaler() *fakeSignaler { return &fakeSignaler{ch: make(chan responder.Signal, 4)} }

func (f *fakeSignaler) Signals() <-chan responder.Signal { return f.ch }

func newTestResponder(t *testing.T) (*responder.Responder, *fakeTransport, *fakeSignaler, *storage.Engine) {
	t.Helper()

	dir := t.TempDir()
	root := t.TempDir()

	ready := make(chan uint32, 1)
	engine := storage.NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)), dir, func(id uint32) { ready <- id })
	require.NoError(t, engine.Mount(storage.Config{ID: 1, Root: root, Description: "internal", VolumeLabel: "INTERNAL"}))
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("storage never became ready")
	}

	devInfo, err := deviceinfo.New(dir, deviceinfo.Static{Manufacturer: "Test", Model: "Unit"})
	require.NoError(t, err)

	transport := newFakeTransport()
	signals := newFakeSignaler()

	r := responder.NewResponder(responder.Config{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Transport:  transport,
		Signals:    signals,
		Storage:    engine,
		DeviceInfo: devInfo,
		Registry:   propreg.New(propreg.Capabilities{}),
		Extensions: extension.NewManager(),
		ReadOnly:   map[uint32]bool{},
	})
	return r, transport, signals, engine
}

func runResponder(t *testing.T, r *responder.Responder) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestOpenSessionThenGetStorageIDs(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 1)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.Type == mtptypes.ContainerTypeResponse
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetStorageIDs), 2)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.Type == mtptypes.ContainerTypeResponse && resp.TxID == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestCommandBeforeSessionFails(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetStorageIDs), 1)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.SessionNotOpen, mtptypes.ResponseCode(transport.lastSent().Code))
	require.Equal(t, responder.StateIdle, r.State())
}

func TestSetDevicePropValueEntersWaitDataThenReturnsIdle(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 1)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)

	transport.in <- container.NewCommand(uint16(mtptypes.OpSetDevicePropValue), 2, uint32(mtptypes.PropDeviceFriendlyName))
	require.Eventually(t, func() bool { return r.State() == responder.StateWaitData }, time.Second, time.Millisecond)

	enc := container.NewEncoder()
	enc.WriteString("my-device")
	transport.in <- container.NewData(uint16(mtptypes.OpSetDevicePropValue), 2, enc.Bytes())

	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 2 && resp.Type == mtptypes.ContainerTypeResponse
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))
	require.Equal(t, responder.StateIdle, r.State())
}

func TestCancelTransactionEntersTxCancelThenClearsOnNextCommand(t *testing.T) {
	r, transport, signals, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 1)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)

	signals.ch <- responder.Signal{Kind: responder.SignalCancelTransaction}
	require.Eventually(t, func() bool { return r.State() == responder.StateTxCancel }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return transport.deviceStatus() == mtptypes.DeviceStatusTxCancel }, time.Second, time.Millisecond)

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetStorageIDs), 2)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, responder.StateIdle, r.State())
	require.Equal(t, uint16(mtptypes.DeviceStatusOK), transport.deviceStatus())
}

func TestSuspendResumeRestoresState(t *testing.T) {
	r, _, signals, _ := newTestResponder(t)
	runResponder(t, r)

	before := r.State()
	signals.ch <- responder.Signal{Kind: responder.SignalSuspend}
	require.Eventually(t, func() bool { return r.State() == responder.StateSuspend }, time.Second, time.Millisecond)

	signals.ch <- responder.Signal{Kind: responder.SignalResume}
	require.Eventually(t, func() bool { return r.State() == before }, time.Second, time.Millisecond)
}
