package functionfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

func marshal(t *testing.T, c *container.Container) []byte {
	t.Helper()
	hdr := make([]byte, 12)
	putHeader(hdr, c)
	return append(hdr, c.Payload...)
}

func TestReassemblerEmitsCompleteContainer(t *testing.T) {
	r := newReassembler(nil)
	c := container.NewCommand(uint16(mtptypes.OpGetDeviceInfo), 1)
	got, err := r.feed(marshal(t, c))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, c.Code, got[0].Code)
	require.Equal(t, c.TxID, got[0].TxID)
}

func TestReassemblerHandlesSplitAcrossFeeds(t *testing.T) {
	r := newReassembler(nil)
	c := container.NewCommand(uint16(mtptypes.OpOpenSession), 7, 1)
	raw := marshal(t, c)

	got, err := r.feed(raw[:5])
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = r.feed(raw[5:])
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint32(7), got[0].TxID)
}

func TestReassemblerHandlesMultipleContainersInOneFeed(t *testing.T) {
	r := newReassembler(nil)
	a := container.NewCommand(uint16(mtptypes.OpGetStorageIDs), 1)
	b := container.NewCommand(uint16(mtptypes.OpGetObjectInfo), 2, 0x42)

	buf := append(marshal(t, a), marshal(t, b)...)
	got, err := r.feed(buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, uint32(1), got[0].TxID)
	require.Equal(t, uint32(2), got[1].TxID)
}

func TestReassemblerUsesUnknownLengthResolver(t *testing.T) {
	payload := make([]byte, 20)
	resolverCalls := 0
	r := newReassembler(func(partial []byte) (uint64, bool) {
		resolverCalls++
		return uint64(mtptypes.HeaderSize + len(payload)), true
	})

	c := &container.Container{Type: mtptypes.ContainerTypeData, Code: uint16(mtptypes.OpSendObject), TxID: 3, Payload: payload}
	hdr := make([]byte, 12)
	putHeader(hdr, c)
	// Overwrite the length field with the "unknown" sentinel, as the host
	// does for >4 GiB SendObject transfers (spec.md §4.5.3).
	hdr[0], hdr[1], hdr[2], hdr[3] = 0xFF, 0xFF, 0xFF, 0xFF

	got, err := r.feed(append(hdr, payload...))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, 1, resolverCalls)
}

func TestReassemblerRejectsLengthShorterThanHeader(t *testing.T) {
	r := newReassembler(nil)
	short := make([]byte, 12)
	short[0] = 4 // declares a length smaller than the header itself
	_, err := r.feed(short)
	require.Error(t, err)
}
