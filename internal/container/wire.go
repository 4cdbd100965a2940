package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/mtpd/internal/mtptypes"
)

// WriteTo serializes the full container (header + payload) to w.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	var hdr [mtptypes.HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], c.Len())
	binary.LittleEndian.PutUint16(hdr[4:6], uint16(c.Type))
	binary.LittleEndian.PutUint16(hdr[6:8], c.Code)
	binary.LittleEndian.PutUint32(hdr[8:12], c.TxID)

	n, err := w.Write(hdr[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(c.Payload)
	return int64(n + m), err
}

// ReadFrom reads one full container (header + payload) from r.
func ReadFrom(r io.Reader) (*Container, error) {
	length, ctype, code, txID, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	if length == mtptypes.UnknownLength {
		return nil, fmt.Errorf("container: unknown-length (>4GiB) container requires out-of-band size")
	}
	if length < mtptypes.HeaderSize {
		return nil, fmt.Errorf("container: length %d shorter than header", length)
	}
	payload := make([]byte, length-mtptypes.HeaderSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Container{Type: mtptypes.ContainerType(ctype), Code: code, TxID: txID, Payload: payload}, nil
}

// Decoder returns a payload Decoder positioned at the start of the container payload.
func (c *Container) Decoder() *Decoder { return NewDecoder(c.Payload) }

// Params decodes the payload as a flat array of uint32 parameters, as used
// by command and response containers (spec.md §4.1).
func (c *Container) Params() ([]uint32, error) {
	d := c.Decoder()
	var params []uint32
	for d.Remaining() >= 4 {
		v, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		params = append(params, v)
	}
	return params, nil
}
