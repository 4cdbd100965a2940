package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/mtpd/internal/mtptypes"
)

// Decoder reads little-endian MTP payload fields from a byte slice.
type Decoder struct {
	b   []byte
	off int
}

// NewDecoder wraps a payload for sequential decoding.
func NewDecoder(b []byte) *Decoder { return &Decoder{b: b} }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.b) - d.off }

func (d *Decoder) need(n int) error {
	if d.Remaining() < n {
		return fmt.Errorf("container: short read: need %d, have %d", n, d.Remaining())
	}
	return nil
}

func (d *Decoder) ReadUint8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.b[d.off]
	d.off++
	return v, nil
}

func (d *Decoder) ReadInt8() (int8, error) {
	v, err := d.ReadUint8()
	return int8(v), err
}

func (d *Decoder) ReadUint16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.b[d.off:])
	d.off += 2
	return v, nil
}

func (d *Decoder) ReadInt16() (int16, error) {
	v, err := d.ReadUint16()
	return int16(v), err
}

func (d *Decoder) ReadUint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.b[d.off:])
	d.off += 4
	return v, nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

func (d *Decoder) ReadUint64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.b[d.off:])
	d.off += 8
	return v, nil
}

func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

func (d *Decoder) ReadUint128() ([16]byte, error) {
	var v [16]byte
	if err := d.need(16); err != nil {
		return v, err
	}
	copy(v[:], d.b[d.off:d.off+16])
	d.off += 16
	return v, nil
}

// ReadArray reads a length-prefixed array of uint32 (spec.md §4.1).
func (d *Decoder) ReadArray() ([]uint32, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	const maxArrayLen = 1 << 20
	if n > maxArrayLen {
		return nil, fmt.Errorf("container: array length %d exceeds maximum", n)
	}
	out := make([]uint32, n)
	for i := range out {
		out[i], err = d.ReadUint32()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadArray16 reads a length-prefixed array of uint16, the companion of
// WriteArray16.
func (d *Decoder) ReadArray16() ([]uint16, error) {
	n, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	const maxArrayLen = 1 << 20
	if n > maxArrayLen {
		return nil, fmt.Errorf("container: array length %d exceeds maximum", n)
	}
	out := make([]uint16, n)
	for i := range out {
		out[i], err = d.ReadUint16()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ReadString reads a length-prefixed UCS-2 string (spec.md §4.1): a single
// zero byte if empty, else a code-unit count (including the NUL terminator)
// followed by that many little-endian UCS-2 code units.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadUint8()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	units := make([]uint16, n)
	for i := range units {
		units[i], err = d.ReadUint16()
		if err != nil {
			return "", err
		}
	}
	// Drop the trailing NUL code unit.
	if len(units) > 0 && units[len(units)-1] == 0 {
		units = units[:len(units)-1]
	}
	return ucs2ToUTF8(units), nil
}

func (d *Decoder) ReadDateTime() (string, error) { return d.ReadString() }

// ReadRaw consumes exactly n bytes verbatim.
func (d *Decoder) ReadRaw(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	out := d.b[d.off : d.off+n]
	d.off += n
	return out, nil
}

// Drain returns and consumes all remaining bytes.
func (d *Decoder) Drain() []byte {
	out := d.b[d.off:]
	d.off = len(d.b)
	return out
}

func ucs2ToUTF8(units []uint16) string {
	r := make([]rune, len(units))
	for i, u := range units {
		r[i] = rune(u)
	}
	return string(r)
}

// DecodeHeader parses the fixed container header from the front of a byte
// stream (spec.md §4.1): length, type, code, transaction id.
func DecodeHeader(r io.Reader) (length uint32, ctype uint16, code uint16, txID uint32, err error) {
	var hdr [mtptypes.HeaderSize]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return
	}
	length = binary.LittleEndian.Uint32(hdr[0:4])
	ctype = binary.LittleEndian.Uint16(hdr[4:6])
	code = binary.LittleEndian.Uint16(hdr[6:8])
	txID = binary.LittleEndian.Uint32(hdr[8:12])
	return
}
