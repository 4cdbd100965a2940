package container

import (
	"fmt"

	"github.com/marmos91/mtpd/internal/mtptypes"
)

// Value is the sum type used for heterogeneous property and parameter
// values (spec.md §9: "Object-property values are heterogeneous. Represent
// as a sum type ... Serialization is a dispatch on this tag"). Exactly one
// field is meaningful, selected by Type.
type Value struct {
	Type mtptypes.DataType

	I8   int8
	U8   uint8
	I16  int16
	U16  uint16
	I32  int32
	U32  uint32
	I64  int64
	U64  uint64
	U128 [16]byte
	Str  string
	Arr  []Value
	Blob []byte
}

func Int8(v int8) Value     { return Value{Type: mtptypes.DataTypeInt8, I8: v} }
func UInt8(v uint8) Value   { return Value{Type: mtptypes.DataTypeUInt8, U8: v} }
func Int16(v int16) Value   { return Value{Type: mtptypes.DataTypeInt16, I16: v} }
func UInt16(v uint16) Value { return Value{Type: mtptypes.DataTypeUInt16, U16: v} }
func Int32(v int32) Value   { return Value{Type: mtptypes.DataTypeInt32, I32: v} }
func UInt32(v uint32) Value { return Value{Type: mtptypes.DataTypeUInt32, U32: v} }
func Int64(v int64) Value   { return Value{Type: mtptypes.DataTypeInt64, I64: v} }
func UInt64(v uint64) Value { return Value{Type: mtptypes.DataTypeUInt64, U64: v} }
func UInt128(v [16]byte) Value {
	return Value{Type: mtptypes.DataTypeUInt128, U128: v}
}
func Str(s string) Value    { return Value{Type: mtptypes.DataTypeString, Str: s} }
func Bytes(b []byte) Value  { return Value{Type: mtptypes.DataTypeUInt8 | mtptypes.DataTypeArrayMask, Blob: b} }

// EncodeValue appends v's wire representation, dispatching on v.Type
// (spec.md §9 "Serialization is a dispatch on this tag").
func (e *Encoder) EncodeValue(v Value) error {
	if v.Type.IsArray() {
		if v.Type.Elem() == mtptypes.DataTypeUInt8 && v.Blob != nil {
			e.WriteUint32(uint32(len(v.Blob)))
			e.WriteRaw(v.Blob)
			return nil
		}
		e.WriteUint32(uint32(len(v.Arr)))
		for _, elem := range v.Arr {
			if err := e.EncodeValue(elem); err != nil {
				return err
			}
		}
		return nil
	}
	switch v.Type {
	case mtptypes.DataTypeInt8:
		e.WriteInt8(v.I8)
	case mtptypes.DataTypeUInt8:
		e.WriteUint8(v.U8)
	case mtptypes.DataTypeInt16:
		e.WriteInt16(v.I16)
	case mtptypes.DataTypeUInt16:
		e.WriteUint16(v.U16)
	case mtptypes.DataTypeInt32:
		e.WriteInt32(v.I32)
	case mtptypes.DataTypeUInt32:
		e.WriteUint32(v.U32)
	case mtptypes.DataTypeInt64:
		e.WriteInt64(v.I64)
	case mtptypes.DataTypeUInt64:
		e.WriteUint64(v.U64)
	case mtptypes.DataTypeUInt128:
		e.WriteUint128(v.U128)
	case mtptypes.DataTypeString:
		e.WriteString(v.Str)
	default:
		return fmt.Errorf("container: unsupported value datatype %#x", uint16(v.Type))
	}
	return nil
}

// DecodeValue reads a value tagged by dt, the inverse of EncodeValue.
func (d *Decoder) DecodeValue(dt mtptypes.DataType) (Value, error) {
	if dt.IsArray() {
		n, err := d.ReadUint32()
		if err != nil {
			return Value{}, err
		}
		if dt.Elem() == mtptypes.DataTypeUInt8 {
			b, err := d.ReadRaw(int(n))
			if err != nil {
				return Value{}, err
			}
			return Value{Type: dt, Blob: append([]byte{}, b...)}, nil
		}
		elems := make([]Value, n)
		for i := range elems {
			elems[i], err = d.DecodeValue(dt.Elem())
			if err != nil {
				return Value{}, err
			}
		}
		return Value{Type: dt, Arr: elems}, nil
	}
	switch dt {
	case mtptypes.DataTypeInt8:
		v, err := d.ReadInt8()
		return Value{Type: dt, I8: v}, err
	case mtptypes.DataTypeUInt8:
		v, err := d.ReadUint8()
		return Value{Type: dt, U8: v}, err
	case mtptypes.DataTypeInt16:
		v, err := d.ReadInt16()
		return Value{Type: dt, I16: v}, err
	case mtptypes.DataTypeUInt16:
		v, err := d.ReadUint16()
		return Value{Type: dt, U16: v}, err
	case mtptypes.DataTypeInt32:
		v, err := d.ReadInt32()
		return Value{Type: dt, I32: v}, err
	case mtptypes.DataTypeUInt32:
		v, err := d.ReadUint32()
		return Value{Type: dt, U32: v}, err
	case mtptypes.DataTypeInt64:
		v, err := d.ReadInt64()
		return Value{Type: dt, I64: v}, err
	case mtptypes.DataTypeUInt64:
		v, err := d.ReadUint64()
		return Value{Type: dt, U64: v}, err
	case mtptypes.DataTypeUInt128:
		v, err := d.ReadUint128()
		return Value{Type: dt, U128: v}, err
	case mtptypes.DataTypeString:
		v, err := d.ReadString()
		return Value{Type: dt, Str: v}, err
	default:
		return Value{}, fmt.Errorf("container: unsupported value datatype %#x", uint16(dt))
	}
}

// AsUint64 widens any integer Value to uint64, for code that only needs a
// numeric comparison (e.g. size fields regardless of their wire width).
func (v Value) AsUint64() uint64 {
	switch v.Type {
	case mtptypes.DataTypeInt8:
		return uint64(v.I8)
	case mtptypes.DataTypeUInt8:
		return uint64(v.U8)
	case mtptypes.DataTypeInt16:
		return uint64(v.I16)
	case mtptypes.DataTypeUInt16:
		return uint64(v.U16)
	case mtptypes.DataTypeInt32:
		return uint64(v.I32)
	case mtptypes.DataTypeUInt32:
		return uint64(v.U32)
	case mtptypes.DataTypeInt64:
		return uint64(v.I64)
	case mtptypes.DataTypeUInt64:
		return v.U64
	default:
		return 0
	}
}
