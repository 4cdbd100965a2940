package extension_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/extension"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

type fakeExtension struct {
	name      string
	ops       map[uint16]bool
	devProps  map[mtptypes.PropCode]container.Value
	setErr    error
	responded *container.Container
	handled   []uint16
}

func (f *fakeExtension) Name() string { return f.name }

func (f *fakeExtension) HandlesOperation(opCode uint16) (bool, bool) {
	hasDataPhase, claimed := f.ops[opCode]
	return hasDataPhase, claimed
}

func (f *fakeExtension) HandleOperation(_ context.Context, req *container.Container, _ *container.Container) (*container.Container, error) {
	f.handled = append(f.handled, req.Code)
	return f.responded, nil
}

func (f *fakeExtension) GetDeviceProperty(code mtptypes.PropCode) (container.Value, bool) {
	v, ok := f.devProps[code]
	return v, ok
}

func (f *fakeExtension) SetDeviceProperty(code mtptypes.PropCode, _ container.Value) (bool, error) {
	if _, ok := f.devProps[code]; !ok {
		return false, nil
	}
	return true, f.setErr
}

func TestManagerDispatchStopsAtFirstClaim(t *testing.T) {
	first := &fakeExtension{name: "first", ops: map[uint16]bool{0x9001: true}}
	second := &fakeExtension{name: "second", ops: map[uint16]bool{0x9001: true, 0x9002: true}}

	m := extension.NewManager()
	m.Register(first)
	m.Register(second)

	resp, claimed, err := m.Dispatch(context.Background(), &container.Container{Code: 0x9001}, nil)
	require.NoError(t, err)
	require.True(t, claimed)
	require.Nil(t, resp)
	require.Equal(t, []uint16{0x9001}, first.handled)
	require.Empty(t, second.handled)
}

func TestManagerDispatchFallsThroughToLaterExtension(t *testing.T) {
	first := &fakeExtension{name: "first", ops: map[uint16]bool{0x9001: true}}
	second := &fakeExtension{name: "second", ops: map[uint16]bool{0x9002: false}}

	m := extension.NewManager()
	m.Register(first)
	m.Register(second)

	_, claimed, err := m.Dispatch(context.Background(), &container.Container{Code: 0x9002}, nil)
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, []uint16{0x9002}, second.handled)
}

func TestManagerDispatchUnclaimedReturnsFalse(t *testing.T) {
	m := extension.NewManager()
	m.Register(&fakeExtension{name: "first", ops: map[uint16]bool{0x9001: true}})

	resp, claimed, err := m.Dispatch(context.Background(), &container.Container{Code: 0x9999}, nil)
	require.NoError(t, err)
	require.False(t, claimed)
	require.Nil(t, resp)
}

func TestManagerHasDataPhaseReflectsClaimingExtension(t *testing.T) {
	m := extension.NewManager()
	m.Register(&fakeExtension{name: "first", ops: map[uint16]bool{0x9001: true, 0x9002: false}})

	hasDataPhase, claimed := m.HasDataPhase(0x9001)
	require.True(t, claimed)
	require.True(t, hasDataPhase)

	hasDataPhase, claimed = m.HasDataPhase(0x9002)
	require.True(t, claimed)
	require.False(t, hasDataPhase)

	_, claimed = m.HasDataPhase(0x9999)
	require.False(t, claimed)
}

func TestManagerGetDevicePropertyStopsAtFirstMatch(t *testing.T) {
	first := &fakeExtension{name: "first", devProps: map[mtptypes.PropCode]container.Value{}}
	second := &fakeExtension{name: "second", devProps: map[mtptypes.PropCode]container.Value{
		mtptypes.PropBatteryLevel: {U8: 80},
	}}

	m := extension.NewManager()
	m.Register(first)
	m.Register(second)

	v, ok := m.GetDeviceProperty(mtptypes.PropBatteryLevel)
	require.True(t, ok)
	require.Equal(t, uint8(80), v.U8)

	_, ok = m.GetDeviceProperty(mtptypes.PropSyncPartner)
	require.False(t, ok)
}

func TestManagerSetDevicePropertyPropagatesError(t *testing.T) {
	wantErr := errors.New("read-only property")
	m := extension.NewManager()
	m.Register(&fakeExtension{
		name:     "first",
		devProps: map[mtptypes.PropCode]container.Value{mtptypes.PropBatteryLevel: {}},
		setErr:   wantErr,
	})

	claimed, err := m.SetDeviceProperty(mtptypes.PropBatteryLevel, container.Value{})
	require.True(t, claimed)
	require.ErrorIs(t, err, wantErr)
}

func TestManagerSetDevicePropertyUnclaimedReturnsFalse(t *testing.T) {
	m := extension.NewManager()
	claimed, err := m.SetDeviceProperty(mtptypes.PropBatteryLevel, container.Value{})
	require.NoError(t, err)
	require.False(t, claimed)
}
