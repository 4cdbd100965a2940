package responder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

func TestGetDeviceInfoRequiresNoSession(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetDeviceInfo), 1)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestUnknownOperationIsNotSupported(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 1)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)

	transport.in <- container.NewCommand(0xBEEF, 2)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OperationNotSupported, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestZeroAndMaxTransactionIDsRejected(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 1)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetStorageIDs), 0)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 0
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.InvalidTransID, mtptypes.ResponseCode(transport.lastSent().Code))

	transport.in <- container.NewCommand(uint16(mtptypes.OpGetStorageIDs), 0xFFFFFFFF)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 0xFFFFFFFF
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.InvalidTransID, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestSecondOpenSessionFailsWithSessionAlreadyOpen(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 1)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 2, 1)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.SessionAlreadyOpen, mtptypes.ResponseCode(transport.lastSent().Code))
}

func TestCloseSessionResetsSessionID(t *testing.T) {
	r, transport, _, _ := newTestResponder(t)
	runResponder(t, r)

	transport.in <- container.NewCommand(uint16(mtptypes.OpOpenSession), 1, 7)
	require.Eventually(t, func() bool { return transport.lastSent() != nil }, time.Second, time.Millisecond)

	transport.in <- container.NewCommand(uint16(mtptypes.OpCloseSession), 2)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.OK, mtptypes.ResponseCode(transport.lastSent().Code))

	// A command after CloseSession should once again require a session.
	transport.in <- container.NewCommand(uint16(mtptypes.OpGetStorageIDs), 3)
	require.Eventually(t, func() bool {
		resp := transport.lastSent()
		return resp != nil && resp.TxID == 3
	}, time.Second, time.Millisecond)
	require.Equal(t, mtptypes.SessionNotOpen, mtptypes.ResponseCode(transport.lastSent().Code))
}
