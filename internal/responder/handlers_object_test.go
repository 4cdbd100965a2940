package responder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

func openSession(t *testing.T, transport *fakeTransport) {
	t.Helper()
	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 1)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)
}

// sendFile drives the SendObjectInfo + SendObject pair a host uses to
// upload a new file, returning the new object's handle.
func sendFile(t *testing.T, transport *fakeTransport, parent uint32, name string, body []byte) uint32 {
	t.Helper()

	enc := container.NewEncoder()
	enc.EncodeObjectInfo(&container.ObjectInfo{
		Format:         mtptypes.FormatText,
		CompressedSize: uint32(len(body)),
		Filename:       name,
	})
	txID := uint32(time.Now().UnixNano()&0x7FFFFFFF) | 1
	transport.in <- container.NewCommand(uint16(mtptypes.OpSendObjectInfo), txID, 1, parent)
	transport.in <- container.NewData(uint16(mtptypes.OpSendObjectInfo), txID, enc.Bytes())

	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == txID
	}, time.Second, time.Millisecond)
	resp := transport.lastSent()
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(resp.Code))
	params, err := resp.Params()
	require.NoError(t, err)
	require.Len(t, params, 3)
	handle := params[2]

	txID2 := txID + 1
	transport.in <- container.NewCommand(uint16(mtptypes.OpSendObject), txID2)
	transport.in <- container.NewData(uint16(mtptypes.OpSendObject), txID2, body)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == txID2
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))

	return handle
}

func TestSendObjectInfoThenSendObjectRoundTrip(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)
	openSession(t, transport)

	handle := sendFile(t, transport, 0, "hello.txt", []byte("hello world"))
	require.NotZero(t, handle)

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetObject), 100, handle)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 100
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestGetObjectHandlesListsUploadedFile(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)
	openSession(t, transport)

	sendFile(t, transport, 0, "a.txt", []byte("a"))

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetObjectHandles), 50, mtptypes.AllStorageIDs, 0, 0)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 50 && resp.Type == mtptypes.ContainerTypeResponse
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestDeleteObjectRemovesUploadedFile(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)
	openSession(t, transport)

	handle := sendFile(t, transport, 0, "doomed.txt", []byte("bye"))

	transport.in <- container.NewCommand(uint16(mtptypes.OpDeleteObject), 200, handle, 0)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 200
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetObjectInfo), 201, handle)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 201
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.InvalidObjectHandle, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestGetPartialObjectClipsToRemainingLength(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)
	openSession(t, transport)

	handle := sendFile(t, transport, 0, "partial.txt", []byte("0123456789"))

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetPartialObject), 300, handle, 5, 100)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 300
	}, time.Second, time.Millisecond)
	resp := transport.lastSent()
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(resp.Code))
	params, err := resp.Params()
	require.NoError(t, err)
	require.Equal(t, []uint32{5}, params)
}

func TestGetPartialObjectPastEndOfFileFails(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)
	openSession(t, transport)

	handle := sendFile(t, transport, 0, "short.txt", []byte("0123456789"))

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetPartialObject), 301, handle, 200, 10)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 301
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.InvalidParameter, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestGetPartialObjectAtEndOfFileReturnsEmpty(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)
	openSession(t, transport)

	handle := sendFile(t, transport, 0, "exact.txt", []byte("0123456789"))

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetPartialObject), 302, handle, 10, 10)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 302
	}, time.Second, time.Millisecond)
	resp := transport.lastSent()
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(resp.Code))
	params, err := resp.Params()
	require.NoError(t, err)
	require.Equal(t, []uint32{0}, params)
}

func TestSendObjectShortTransferTruncatesAndReportsIncomplete(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)
	openSession(t, transport)

	enc := container.NewEncoder()
	enc.EncodeObjectInfo(&container.ObjectInfo{
		Format:         mtptypes.FormatText,
		CompressedSize: 10,
		Filename:       "truncated.txt",
	})
	txID := uint32(1000)
	transport.in <- container.NewCommand(uint16(mtptypes.OpSendObjectInfo), txID, 1, 0)
	transport.in <- container.NewData(uint16(mtptypes.OpSendObjectInfo), txID, enc.Bytes())
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == txID
	}, time.Second, time.Millisecond)
	resp := transport.lastSent()
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(resp.Code))
	params, err := resp.Params()
	require.NoError(t, err)
	handle := params[2]

	txID2 := txID + 1
	transport.in <- container.NewCommand(uint16(mtptypes.OpSendObject), txID2)
	transport.in <- container.NewData(uint16(mtptypes.OpSendObject), txID2, []byte("short"))
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == txID2
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.IncompleteTransfer, mtptypes.ResponseCode(transport.lastSent().Code))

	txID3 := txID2 + 1
	transport.in <- container.NewCommand(uint16(mtptypes.OpGetObjectInfo), txID3, handle)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == txID3
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))

	var infoData *container.Container
	for _, c := range transport.sentContainers() {
		if c.TxID == txID3 && c.Type == mtptypes.ContainerTypeData {
			infoData = c
		}
	}
	require.NotNil(t, infoData)
	info, err := infoData.Decoder().DecodeObjectInfo()
	require.NoError(t, err)
	require.Equal(t, uint32(0), info.CompressedSize)
}
