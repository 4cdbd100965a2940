package mtptypes

// OpCode is an MTP operation code (the Command container's Code field).
type OpCode uint16

// Standard PTP/MTP operations (spec.md §6).
const (
	OpGetDeviceInfo          OpCode = 0x1001
	OpOpenSession            OpCode = 0x1002
	OpCloseSession           OpCode = 0x1003
	OpGetStorageIDs          OpCode = 0x1004
	OpGetStorageInfo         OpCode = 0x1005
	OpGetNumObjects          OpCode = 0x1006
	OpGetObjectHandles       OpCode = 0x1007
	OpGetObjectInfo          OpCode = 0x1008
	OpGetObject              OpCode = 0x1009
	OpGetThumb               OpCode = 0x100A
	OpDeleteObject           OpCode = 0x100B
	OpSendObjectInfo         OpCode = 0x100C
	OpSendObject             OpCode = 0x100D
	OpCopyObject             OpCode = 0x1017
	OpMoveObject             OpCode = 0x1019
	OpGetPartialObject       OpCode = 0x101B
	OpGetDevicePropDesc      OpCode = 0x1014
	OpGetDevicePropValue     OpCode = 0x1015
	OpSetDevicePropValue     OpCode = 0x1016
	OpGetObjectPropsSupported OpCode = 0x9801
	OpGetObjectPropDesc      OpCode = 0x9802
	OpGetObjectPropValue     OpCode = 0x9803
	OpSetObjectPropValue     OpCode = 0x9804
	OpGetObjectPropList      OpCode = 0x9805
	OpSetObjectPropList      OpCode = 0x9806
	OpSendObjectPropList     OpCode = 0x9808
	OpGetObjectReferences    OpCode = 0x9810
	OpSetObjectReferences    OpCode = 0x9811
)

// Android extension operations (0x95xx, spec.md §6).
const (
	OpGetPartialObject64 OpCode = 0x95C1
	OpSendPartialObject64 OpCode = 0x95C2
	OpTruncateObject64   OpCode = 0x95C3
	OpBeginEditObject    OpCode = 0x95C4
	OpEndEditObject      OpCode = 0x95C5
)

// HasDataPhase lists the operations whose command phase is followed by a
// host→device data container (spec.md §4.6.2).
var HasDataPhase = map[OpCode]bool{
	OpSendObjectInfo:      true,
	OpSendObject:          true,
	OpSetObjectPropList:   true,
	OpSendObjectPropList:  true,
	OpSetDevicePropValue:  true,
	OpSetObjectPropValue:  true,
	OpSetObjectReferences: true,
	OpSendPartialObject64: true,
}
