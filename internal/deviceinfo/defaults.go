package deviceinfo

import "github.com/marmos91/mtpd/internal/mtptypes"

// DefaultOperationsSupported lists the standard operation set this
// responder implements (spec.md §9 "Standard" operation list), plus the
// Android >4 GiB extension operations.
func DefaultOperationsSupported() []uint16 {
	return []uint16{
		uint16(mtptypes.OpGetDeviceInfo),
		uint16(mtptypes.OpOpenSession),
		uint16(mtptypes.OpCloseSession),
		uint16(mtptypes.OpGetStorageIDs),
		uint16(mtptypes.OpGetStorageInfo),
		uint16(mtptypes.OpGetNumObjects),
		uint16(mtptypes.OpGetObjectHandles),
		uint16(mtptypes.OpGetObjectInfo),
		uint16(mtptypes.OpGetObject),
		uint16(mtptypes.OpGetThumb),
		uint16(mtptypes.OpDeleteObject),
		uint16(mtptypes.OpSendObjectInfo),
		uint16(mtptypes.OpSendObject),
		uint16(mtptypes.OpCopyObject),
		uint16(mtptypes.OpMoveObject),
		uint16(mtptypes.OpGetPartialObject),
		uint16(mtptypes.OpGetDevicePropDesc),
		uint16(mtptypes.OpGetDevicePropValue),
		uint16(mtptypes.OpSetDevicePropValue),
		uint16(mtptypes.OpGetObjectPropsSupported),
		uint16(mtptypes.OpGetObjectPropDesc),
		uint16(mtptypes.OpGetObjectPropValue),
		uint16(mtptypes.OpSetObjectPropValue),
		uint16(mtptypes.OpGetObjectPropList),
		uint16(mtptypes.OpSetObjectPropList),
		uint16(mtptypes.OpSendObjectPropList),
		uint16(mtptypes.OpGetObjectReferences),
		uint16(mtptypes.OpSetObjectReferences),
		uint16(mtptypes.OpGetPartialObject64),
		uint16(mtptypes.OpSendPartialObject64),
		uint16(mtptypes.OpTruncateObject64),
		uint16(mtptypes.OpBeginEditObject),
		uint16(mtptypes.OpEndEditObject),
	}
}

// DefaultEventsSupported lists the event set this responder emits
// (spec.md §9 "Event set").
func DefaultEventsSupported() []uint16 {
	return []uint16{
		uint16(mtptypes.EventObjectAdded),
		uint16(mtptypes.EventObjectRemoved),
		uint16(mtptypes.EventStoreAdded),
		uint16(mtptypes.EventStoreRemoved),
		uint16(mtptypes.EventDevicePropChanged),
		uint16(mtptypes.EventObjectInfoChanged),
		uint16(mtptypes.EventDeviceInfoChanged),
		uint16(mtptypes.EventRequestObjectTransfer),
		uint16(mtptypes.EventStoreFull),
		uint16(mtptypes.EventStorageInfoChanged),
		uint16(mtptypes.EventObjectPropChanged),
	}
}

// DefaultDevicePropertiesSupported lists the device-level properties this
// responder exposes via Get/SetDevicePropValue.
func DefaultDevicePropertiesSupported() []uint16 {
	return []uint16{
		uint16(mtptypes.PropBatteryLevel),
		uint16(mtptypes.PropSyncPartner),
		uint16(mtptypes.PropDeviceFriendlyName),
	}
}

// DefaultCaptureFormats and DefaultPlaybackFormats list the object formats
// this responder can receive from / send to the host.
func DefaultCaptureFormats() []uint16 {
	return []uint16{
		uint16(mtptypes.FormatAssociation),
		uint16(mtptypes.FormatText),
		uint16(mtptypes.FormatEXIFJPEG),
		uint16(mtptypes.FormatJFIF),
		uint16(mtptypes.FormatMP3),
		uint16(mtptypes.FormatWAV),
		uint16(mtptypes.FormatMP4),
	}
}

func DefaultPlaybackFormats() []uint16 { return DefaultCaptureFormats() }
