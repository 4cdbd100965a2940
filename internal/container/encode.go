package container

import (
	"bytes"
	"encoding/binary"
)

// Encoder accumulates a container's payload in little-endian wire format.
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated payload.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

func (e *Encoder) WriteUint8(v uint8)   { e.buf.WriteByte(v) }
func (e *Encoder) WriteInt8(v int8)     { e.buf.WriteByte(byte(v)) }
func (e *Encoder) WriteUint16(v uint16) { _ = binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *Encoder) WriteInt16(v int16)   { _ = binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *Encoder) WriteUint32(v uint32) { _ = binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *Encoder) WriteInt32(v int32)   { _ = binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *Encoder) WriteUint64(v uint64) { _ = binary.Write(&e.buf, binary.LittleEndian, v) }
func (e *Encoder) WriteInt64(v int64)   { _ = binary.Write(&e.buf, binary.LittleEndian, v) }

// WriteUint128 writes a 128-bit unsigned integer as two little-endian
// 64-bit halves (low half first), matching the PUOID wire layout (spec.md §3).
func (e *Encoder) WriteUint128(v [16]byte) { e.buf.Write(v[:]) }

// WriteRaw appends already-encoded bytes verbatim (used for opaque byte
// sequences such as thumbnail data or property-list blobs).
func (e *Encoder) WriteRaw(b []byte) { e.buf.Write(b) }

// WriteArray writes a length-prefixed array of uint32 (spec.md §4.1).
func (e *Encoder) WriteArray(vals []uint32) {
	e.WriteUint32(uint32(len(vals)))
	for _, v := range vals {
		e.WriteUint32(v)
	}
}

// WriteArray16 writes a length-prefixed array of uint16 (spec.md §4.1):
// used for the UINT16-element arrays of the device info dataset
// (OperationsSupported, EventsSupported, DevicePropertiesSupported,
// CaptureFormats, PlaybackFormats) and ObjectPropsSupported responses.
func (e *Encoder) WriteArray16(vals []uint16) {
	e.WriteUint32(uint32(len(vals)))
	for _, v := range vals {
		e.WriteUint16(v)
	}
}

// WriteString writes a length-prefixed UCS-2 string with trailing NUL
// (spec.md §4.1): a single zero byte-count if the string is empty, else the
// code-unit count (including the terminator) followed by UCS-2LE code units.
func (e *Encoder) WriteString(s string) {
	units := utf8ToUCS2(s)
	if len(units) == 0 {
		e.WriteUint8(0)
		return
	}
	e.WriteUint8(uint8(len(units) + 1)) // +1 for the NUL terminator
	for _, u := range units {
		e.WriteUint16(u)
	}
	e.WriteUint16(0)
}

// WriteDateTime writes an MTP date-time string ("YYYYMMDDThhmmss[.s]").
func (e *Encoder) WriteDateTime(s string) { e.WriteString(s) }

// utf8ToUCS2 converts a Go string to UCS-2 code units, dropping characters
// outside the Basic Multilingual Plane (MTP filenames are defined over UCS-2,
// not full UTF-16 with surrogate pairs).
func utf8ToUCS2(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		if r > 0xFFFF {
			r = '?'
		}
		units = append(units, uint16(r))
	}
	return units
}
