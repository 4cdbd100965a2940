package functionfs

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/mtptypes"
)

func rawSetupEvent(req ctrlRequest) []byte {
	b := make([]byte, rawEventSize)
	b[0] = req.bRequestType
	b[1] = req.bRequest
	binary.LittleEndian.PutUint16(b[2:4], req.wValue)
	binary.LittleEndian.PutUint16(b[4:6], req.wIndex)
	binary.LittleEndian.PutUint16(b[6:8], req.wLength)
	b[8] = byte(eventSetup)
	return b
}

func TestParseEventExtractsSetupRequest(t *testing.T) {
	raw := rawSetupEvent(ctrlRequest{bRequestType: 0xA1, bRequest: reqGetDeviceStatus, wLength: 4})
	kind, req, ok := parseEvent(raw)
	require.True(t, ok)
	require.Equal(t, eventSetup, kind)
	require.Equal(t, reqGetDeviceStatus, req.bRequest)
	require.Equal(t, uint16(4), req.wLength)
	require.True(t, req.deviceToHost())
}

func TestParseEventTooShortFails(t *testing.T) {
	_, _, ok := parseEvent(make([]byte, 4))
	require.False(t, ok)
}

func TestParseEventRecognizesLifecycleEvents(t *testing.T) {
	for _, kind := range []eventKind{eventBind, eventUnbind, eventEnable, eventDisable, eventSuspend, eventResume} {
		raw := make([]byte, rawEventSize)
		raw[8] = byte(kind)
		got, _, ok := parseEvent(raw)
		require.True(t, ok)
		require.Equal(t, kind, got)
	}
}

func TestDeviceStatusRecordEncodesLengthAndCode(t *testing.T) {
	rec := deviceStatusRecord(mtptypes.DeviceStatusBusy)
	require.Len(t, rec, 4)
	require.Equal(t, uint16(4), binary.LittleEndian.Uint16(rec[0:2]))
	require.Equal(t, mtptypes.DeviceStatusBusy, binary.LittleEndian.Uint16(rec[2:4]))
}

func TestSignalKindString(t *testing.T) {
	require.Equal(t, "bindUSB", SignalBindUSB.String())
	require.Equal(t, "cancelTransaction", SignalCancelTransaction.String())
}
