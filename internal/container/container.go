// Package container implements the MTP container wire format: little-endian
// framing of command/data/response/event containers and their typed payload
// values (spec.md §4.1).
//
// Unlike the Sun RPC / XDR codecs this package's author previously worked
// with (big-endian, 4-byte aligned), MTP containers are tightly packed
// little-endian with no padding; strings are UCS-2 rather than UTF-8.
package container

import "github.com/marmos91/mtpd/internal/mtptypes"

// Container is one framed unit of the MTP wire protocol.
type Container struct {
	Type    mtptypes.ContainerType
	Code    uint16
	TxID    uint32
	Payload []byte
}

// Len returns the total on-wire length of the container including its header.
func (c *Container) Len() uint32 {
	return mtptypes.HeaderSize + uint32(len(c.Payload))
}

// NewCommand builds a command container with encoded parameters.
func NewCommand(code uint16, txID uint32, params ...uint32) *Container {
	enc := NewEncoder()
	for _, p := range params {
		enc.WriteUint32(p)
	}
	return &Container{Type: mtptypes.ContainerTypeCommand, Code: code, TxID: txID, Payload: enc.Bytes()}
}

// NewResponse builds a response container with encoded parameters.
func NewResponse(code mtptypes.ResponseCode, txID uint32, params ...uint32) *Container {
	enc := NewEncoder()
	for _, p := range params {
		enc.WriteUint32(p)
	}
	return &Container{Type: mtptypes.ContainerTypeResponse, Code: uint16(code), TxID: txID, Payload: enc.Bytes()}
}

// NewData builds a data container carrying an arbitrary payload.
func NewData(code uint16, txID uint32, payload []byte) *Container {
	return &Container{Type: mtptypes.ContainerTypeData, Code: code, TxID: txID, Payload: payload}
}

// NewEvent builds an event container with up to mtptypes.MaxEventParams parameters.
func NewEvent(code mtptypes.EventCode, txID uint32, params ...uint32) *Container {
	if len(params) > mtptypes.MaxEventParams {
		params = params[:mtptypes.MaxEventParams]
	}
	enc := NewEncoder()
	for _, p := range params {
		enc.WriteUint32(p)
	}
	return &Container{Type: mtptypes.ContainerTypeEvent, Code: uint16(code), TxID: txID, Payload: enc.Bytes()}
}
