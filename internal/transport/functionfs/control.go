package functionfs

import "encoding/binary"

// FunctionFS event types delivered on ep0 (linux/usb/functionfs.h,
// struct usb_functionfs_event).
type eventKind uint8

const (
	eventBind eventKind = iota
	eventUnbind
	eventEnable
	eventDisable
	eventSetup
	eventSuspend
	eventResume
)

// rawEventSize is sizeof(struct usb_functionfs_event): an 8-byte
// usb_ctrlrequest union member, a 1-byte type, and 3 bytes of padding.
const rawEventSize = 12

// ctrlRequest mirrors struct usb_ctrlrequest, the setup packet delivered
// with a FUNCTIONFS_SETUP event.
type ctrlRequest struct {
	bRequestType uint8
	bRequest     uint8
	wValue       uint16
	wIndex       uint16
	wLength      uint16
}

func (r ctrlRequest) deviceToHost() bool { return r.bRequestType&0x80 != 0 }

func parseEvent(b []byte) (eventKind, ctrlRequest, bool) {
	if len(b) < rawEventSize {
		return 0, ctrlRequest{}, false
	}
	req := ctrlRequest{
		bRequestType: b[0],
		bRequest:     b[1],
		wValue:       binary.LittleEndian.Uint16(b[2:4]),
		wIndex:       binary.LittleEndian.Uint16(b[4:6]),
		wLength:      binary.LittleEndian.Uint16(b[6:8]),
	}
	return eventKind(b[8]), req, true
}

// PTP/MTP (USB Still Image) class-specific control requests (PIMA 15740 /
// USB Still Image Capture Device spec.md §4.5.2).
const (
	reqCancel           uint8 = 0x64
	reqGetExtEventData  uint8 = 0x65
	reqDeviceReset      uint8 = 0x66
	reqGetDeviceStatus  uint8 = 0x67
)

// deviceStatusRecord builds the four-byte GET_DEVICE_STATUS reply: a
// 2-byte record length followed by a 2-byte status code (spec.md §4.5.2).
func deviceStatusRecord(code uint16) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], 4)
	binary.LittleEndian.PutUint16(buf[2:4], code)
	return buf
}

// SignalKind identifies a control-plane notification the transport raises
// for the responder to act on (spec.md §4.5.2's startIO/stopIO/bindUSB/
// unbindUSB/deviceReset/cancelTransaction signals).
type SignalKind int

const (
	SignalBindUSB SignalKind = iota
	SignalUnbindUSB
	SignalStartIO
	SignalStopIO
	SignalSuspend
	SignalResume
	SignalCancelTransaction
	SignalDeviceReset
)

func (k SignalKind) String() string {
	switch k {
	case SignalBindUSB:
		return "bindUSB"
	case SignalUnbindUSB:
		return "unbindUSB"
	case SignalStartIO:
		return "startIO"
	case SignalStopIO:
		return "stopIO"
	case SignalSuspend:
		return "suspend"
	case SignalResume:
		return "resume"
	case SignalCancelTransaction:
		return "cancelTransaction"
	case SignalDeviceReset:
		return "deviceReset"
	default:
		return "unknown"
	}
}

// Signal is one control-plane notification delivered on Transport.Signals().
type Signal struct {
	Kind SignalKind
}
