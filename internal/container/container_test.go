package container_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
)

func TestContainerWireRoundTrip(t *testing.T) {
	e := container.NewEncoder()
	e.WriteUint32(0xDEADBEEF)
	e.WriteString("hello.jpg")

	c := container.NewData(uint16(mtptypes.OpGetObjectInfo), 7, e.Bytes())

	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, c.Len(), n)

	got, err := container.ReadFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, c.Type, got.Type)
	require.Equal(t, c.Code, got.Code)
	require.Equal(t, c.TxID, got.TxID)
	require.Equal(t, c.Payload, got.Payload)

	d := got.Decoder()
	v, err := d.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), v)
	s, err := d.ReadString()
	require.NoError(t, err)
	require.Equal(t, "hello.jpg", s)
}

func TestContainerParams(t *testing.T) {
	c := container.NewCommand(uint16(mtptypes.OpGetObjectHandles), 1, 1, 0xFFFFFFFF, 0)

	params, err := c.Params()
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 0xFFFFFFFF, 0}, params)
}

func TestArray16RoundTrip(t *testing.T) {
	e := container.NewEncoder()
	e.WriteArray16([]uint16{0x1001, 0x1002, 0x100D})
	d := container.NewDecoder(e.Bytes())
	got, err := d.ReadArray16()
	require.NoError(t, err)
	require.Equal(t, []uint16{0x1001, 0x1002, 0x100D}, got)
}

func TestArray16RoundTripEmpty(t *testing.T) {
	e := container.NewEncoder()
	e.WriteArray16(nil)
	d := container.NewDecoder(e.Bytes())
	got, err := d.ReadArray16()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestStringRoundTripEmpty(t *testing.T) {
	e := container.NewEncoder()
	e.WriteString("")
	d := container.NewDecoder(e.Bytes())
	s, err := d.ReadString()
	require.NoError(t, err)
	require.Equal(t, "", s)
}

func TestValueRoundTrip(t *testing.T) {
	cases := []container.Value{
		container.UInt8(0x42),
		container.UInt16(0x1234),
		container.UInt32(0xCAFEBABE),
		container.UInt64(0x0102030405060708),
		container.Str("Internal Storage"),
	}
	for _, v := range cases {
		e := container.NewEncoder()
		require.NoError(t, e.EncodeValue(v))
		d := container.NewDecoder(e.Bytes())
		got, err := d.DecodeValue(v.Type)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestValueBlobRoundTrip(t *testing.T) {
	blob := container.Bytes([]byte{1, 2, 3, 4})
	e := container.NewEncoder()
	require.NoError(t, e.EncodeValue(blob))
	d := container.NewDecoder(e.Bytes())
	got, err := d.DecodeValue(blob.Type)
	require.NoError(t, err)
	require.Equal(t, blob.Blob, got.Blob)
}

func TestObjectInfoRoundTrip(t *testing.T) {
	oi := &container.ObjectInfo{
		StorageID:        0x00010001,
		Format:           mtptypes.FormatEXIFJPEG,
		CompressedSize:   123456,
		ParentObject:     0,
		Filename:         "IMG_0001.JPG",
		CaptureDate:      "20260101T000000",
		ModificationDate: "20260101T000000",
	}
	e := container.NewEncoder()
	e.EncodeObjectInfo(oi)
	d := container.NewDecoder(e.Bytes())
	got, err := d.DecodeObjectInfo()
	require.NoError(t, err)
	require.Equal(t, oi, got)
}

func TestPropListEntryRoundTrip(t *testing.T) {
	p := &container.PropListEntry{
		Handle:   5,
		PropCode: mtptypes.PropObjectFileName,
		DataType: mtptypes.DataTypeString,
		Value:    container.Str("IMG_0001.JPG"),
	}
	e := container.NewEncoder()
	require.NoError(t, e.EncodePropListEntry(p))
	d := container.NewDecoder(e.Bytes())
	got, err := d.DecodePropListEntry()
	require.NoError(t, err)
	require.Equal(t, p, got)
}
