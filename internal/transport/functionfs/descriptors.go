package functionfs

import (
	"bytes"
	"encoding/binary"
)

// FunctionFS descriptor block magic numbers and flags (linux/usb/functionfs.h).
const (
	descriptorsMagicV2 = 0x0000000a

	hasFSDesc = 0x1
	hasHSDesc = 0x2

	stringsMagic = 0x00000002
)

// Still Image class (PTP/MTP) interface identifiers, USB-IF class 0x06.
const (
	classStillImage   = 0x06
	subclassStillCam  = 0x01
	protocolBulkOnly  = 0x01
	epAttrBulk        = 0x02
	epAttrInterrupt   = 0x03
	epAddrIn          = 0x80 // direction bit, OR'd with endpoint number
	fullSpeedMaxBulk  = 64
	highSpeedMaxBulk  = 512
	intrMaxPacketSize = 28
	fsIntrIntervalMs  = 16 // spec.md §4.5.1: 16ms full-speed interrupt interval
	hsIntrIntervalUf  = 4  // spec.md §4.5.1: 4 microframes high-speed
)

// epNumber is the logical (host-facing) endpoint number assigned to each
// pipe, independent of the kernel-chosen bEndpointAddress for the gadget's
// ep1/ep2/ep3 files.
const (
	epNumBulkIn  = 1
	epNumBulkOut = 2
	epNumIntrIn  = 3
)

func writeU8(buf *bytes.Buffer, v uint8)   { buf.WriteByte(v) }
func writeU16(buf *bytes.Buffer, v uint16) { _ = binary.Write(buf, binary.LittleEndian, v) }
func writeU32(buf *bytes.Buffer, v uint32) { _ = binary.Write(buf, binary.LittleEndian, v) }

// interfaceDescriptor encodes a standard USB interface descriptor for the
// single PTP-class "Still Image" interface this gadget exposes.
func interfaceDescriptor(buf *bytes.Buffer) {
	writeU8(buf, 9) // bLength
	writeU8(buf, 4) // bDescriptorType: INTERFACE
	writeU8(buf, 0) // bInterfaceNumber
	writeU8(buf, 0) // bAlternateSetting
	writeU8(buf, 3) // bNumEndpoints: bulk-in, bulk-out, interrupt-in
	writeU8(buf, classStillImage)
	writeU8(buf, subclassStillCam)
	writeU8(buf, protocolBulkOnly)
	writeU8(buf, 1) // iInterface: index into the strings block
}

func endpointDescriptor(buf *bytes.Buffer, addr uint8, attrs uint8, maxPacket uint16, interval uint8) {
	writeU8(buf, 7) // bLength
	writeU8(buf, 5) // bDescriptorType: ENDPOINT
	writeU8(buf, addr)
	writeU8(buf, attrs)
	writeU16(buf, maxPacket)
	writeU8(buf, interval)
}

func fullSpeedDescriptors() []byte {
	var buf bytes.Buffer
	interfaceDescriptor(&buf)
	endpointDescriptor(&buf, epNumBulkIn|epAddrIn, epAttrBulk, fullSpeedMaxBulk, 0)
	endpointDescriptor(&buf, epNumBulkOut, epAttrBulk, fullSpeedMaxBulk, 0)
	endpointDescriptor(&buf, epNumIntrIn|epAddrIn, epAttrInterrupt, intrMaxPacketSize, fsIntrIntervalMs)
	return buf.Bytes()
}

func highSpeedDescriptors() []byte {
	var buf bytes.Buffer
	interfaceDescriptor(&buf)
	endpointDescriptor(&buf, epNumBulkIn|epAddrIn, epAttrBulk, highSpeedMaxBulk, 0)
	endpointDescriptor(&buf, epNumBulkOut, epAttrBulk, highSpeedMaxBulk, 0)
	endpointDescriptor(&buf, epNumIntrIn|epAddrIn, epAttrInterrupt, intrMaxPacketSize, hsIntrIntervalUf)
	return buf.Bytes()
}

// buildDescriptors assembles the FunctionFS descriptors block written to
// ep0 at activation time: a v2 header followed by the full-speed and
// high-speed descriptor sets (spec.md §4.5.1 step 1).
func buildDescriptors() []byte {
	fs := fullSpeedDescriptors()
	hs := highSpeedDescriptors()

	var hdr bytes.Buffer
	writeU32(&hdr, descriptorsMagicV2)
	// length placeholder, patched below
	writeU32(&hdr, 0)
	writeU32(&hdr, hasFSDesc|hasHSDesc)
	writeU32(&hdr, uint32(len(fs)))
	writeU32(&hdr, uint32(len(hs)))

	out := hdr.Bytes()
	out = append(out, fs...)
	out = append(out, hs...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)))
	return out
}

// buildStrings assembles the strings block: one language (US English) with
// one interface-name string, "MTP" (spec.md §4.5.1 step 2).
func buildStrings() []byte {
	const langUSEnglish = 0x0409
	name := "MTP"

	var body bytes.Buffer
	writeU16(&body, langUSEnglish)
	body.WriteString(name)
	body.WriteByte(0)

	var hdr bytes.Buffer
	writeU32(&hdr, stringsMagic)
	writeU32(&hdr, 0) // length placeholder
	writeU32(&hdr, 1) // str_count
	writeU32(&hdr, 1) // lang_count

	out := hdr.Bytes()
	out = append(out, body.Bytes()...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)))
	return out
}
