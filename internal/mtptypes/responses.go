package mtptypes

// ResponseCode is the MTP response-code space (spec.md §6/§7). Numeric
// values are part of the wire protocol and MUST be preserved.
type ResponseCode uint16

const (
	OK                       ResponseCode = 0x2001
	GeneralError             ResponseCode = 0x2002
	SessionNotOpen           ResponseCode = 0x2003
	InvalidTransID           ResponseCode = 0x2004
	OperationNotSupported    ResponseCode = 0x2005
	ParameterNotSupported    ResponseCode = 0x2006
	IncompleteTransfer       ResponseCode = 0x2007
	InvalidStorageID         ResponseCode = 0x2008
	InvalidObjectHandle      ResponseCode = 0x2009
	DevicePropNotSupported   ResponseCode = 0x200A
	InvalidObjectFormatCode  ResponseCode = 0x200B
	StoreFull                ResponseCode = 0x200C
	ObjectWriteProtected     ResponseCode = 0x200D
	StoreReadOnly            ResponseCode = 0x200E
	AccessDenied             ResponseCode = 0x200F
	NoThumbnailPresent       ResponseCode = 0x2010
	SelfTestFailed           ResponseCode = 0x2011
	PartialDeletion          ResponseCode = 0x2012
	StoreNotAvailable        ResponseCode = 0x2013
	SpecByFormatUnsupported  ResponseCode = 0x2014
	NoValidObjectInfo        ResponseCode = 0x2015
	InvalidCodeFormat        ResponseCode = 0x2016
	UnknownVendorCode        ResponseCode = 0x2017
	CaptureAlreadyTerminated ResponseCode = 0x2018
	DeviceBusy               ResponseCode = 0x2019
	InvalidParentObject      ResponseCode = 0x201A
	InvalidDevicePropFormat  ResponseCode = 0x201B
	InvalidDevicePropValue   ResponseCode = 0x201C
	InvalidParameter         ResponseCode = 0x201D
	SessionAlreadyOpen       ResponseCode = 0x201E
	TransactionCancelled     ResponseCode = 0x201F
	SpecOfDestUnsupported    ResponseCode = 0x2020

	// Object property extensions (vendor-extended, MTP).
	InvalidObjectPropCode  ResponseCode = 0xA801
	InvalidObjectPropFmt   ResponseCode = 0xA802
	InvalidObjectPropValue ResponseCode = 0xA803
	InvalidObjectRef       ResponseCode = 0xA804
	GroupNotSupported      ResponseCode = 0xA805
	InvalidDataset         ResponseCode = 0xA806
	SpecByGroupUnsupported ResponseCode = 0xA807
	SpecByDepthUnsupported ResponseCode = 0xA808
	ObjectTooLarge         ResponseCode = 0xA809
	ObjectPropNotSupported ResponseCode = 0xA80A
)

func (r ResponseCode) String() string {
	if name, ok := responseNames[r]; ok {
		return name
	}
	return "Unknown"
}

var responseNames = map[ResponseCode]string{
	OK:                       "OK",
	GeneralError:             "General_Error",
	SessionNotOpen:           "Session_Not_Open",
	InvalidTransID:           "Invalid_TransactionID",
	OperationNotSupported:    "Operation_Not_Supported",
	ParameterNotSupported:    "Parameter_Not_Supported",
	IncompleteTransfer:       "Incomplete_Transfer",
	InvalidStorageID:         "Invalid_StorageID",
	InvalidObjectHandle:      "Invalid_ObjectHandle",
	DevicePropNotSupported:   "DeviceProp_Not_Supported",
	InvalidObjectFormatCode:  "Invalid_ObjectFormatCode",
	StoreFull:                "Store_Full",
	ObjectWriteProtected:     "Object_WriteProtected",
	StoreReadOnly:            "Store_Read_Only",
	AccessDenied:             "Access_Denied",
	NoThumbnailPresent:       "No_Thumbnail_Present",
	SelfTestFailed:           "SelfTest_Failed",
	PartialDeletion:          "Partial_Deletion",
	StoreNotAvailable:        "Store_Not_Available",
	SpecByFormatUnsupported:  "Specification_By_Format_Unsupported",
	NoValidObjectInfo:        "No_Valid_ObjectInfo",
	InvalidCodeFormat:        "Invalid_Code_Format",
	UnknownVendorCode:        "Unknown_Vendor_Code",
	CaptureAlreadyTerminated: "Capture_Already_Terminated",
	DeviceBusy:               "Device_Busy",
	InvalidParentObject:      "Invalid_ParentObject",
	InvalidDevicePropFormat:  "Invalid_DeviceProp_Format",
	InvalidDevicePropValue:   "Invalid_DeviceProp_Value",
	InvalidParameter:         "Invalid_Parameter",
	SessionAlreadyOpen:       "Session_Already_Open",
	TransactionCancelled:     "Transaction_Cancelled",
	SpecOfDestUnsupported:    "Specification_Of_Destination_Unsupported",
	InvalidObjectPropCode:    "Invalid_ObjectPropCode",
	InvalidObjectPropFmt:     "Invalid_ObjectProp_Format",
	InvalidObjectPropValue:   "Invalid_ObjectProp_Value",
	InvalidObjectRef:         "Invalid_ObjectReference",
	GroupNotSupported:        "Group_Not_Supported",
	InvalidDataset:           "Invalid_Dataset",
	SpecByGroupUnsupported:   "Specification_By_Group_Unsupported",
	SpecByDepthUnsupported:   "Specification_By_Depth_Unsupported",
	ObjectTooLarge:           "Object_Too_Large",
	ObjectPropNotSupported:   "ObjectProp_Not_Supported",
}

// Device status records returned on GET_DEVICE_STATUS class requests
// (spec.md §4.5.2, §6).
const (
	DeviceStatusOK        uint16 = 0x2001
	DeviceStatusBusy      uint16 = 0x2019
	DeviceStatusTxCancel  uint16 = 0x201F
)
