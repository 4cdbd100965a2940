package mtptypes

// PropCode identifies an object or device property.
type PropCode uint16

// Common object properties (spec.md §4.2), shared by every format category.
const (
	PropStorageID        PropCode = 0xDC01
	PropObjectFormat     PropCode = 0xDC02
	PropProtectionStatus PropCode = 0xDC03
	PropObjectSize       PropCode = 0xDC04
	PropObjectFileName   PropCode = 0xDC07
	PropDateCreated      PropCode = 0xDC08
	PropDateModified     PropCode = 0xDC09
	PropParentObject     PropCode = 0xDC0B
	PropPersistentUID    PropCode = 0xDC41
	PropName             PropCode = 0xDC44
	PropNonConsumable    PropCode = 0xDC4E
)

// Image-specific properties.
const (
	PropWidth              PropCode = 0xDC81
	PropHeight             PropCode = 0xDC82
	PropRepSampleFormat    PropCode = 0xDC86
	PropRepSampleWidth     PropCode = 0xDC87
	PropRepSampleHeight    PropCode = 0xDC88
	PropRepSampleData      PropCode = 0xDC91
)

// Audio-specific properties.
const (
	PropArtist        PropCode = 0xDC8E
	PropAlbumName     PropCode = 0xDC92
	PropTrack         PropCode = 0xDC8B
	PropGenre         PropCode = 0xDC8C
	PropUseCount      PropCode = 0xDC8D
	PropDuration      PropCode = 0xDC89
	PropBitrateType   PropCode = 0xDE91
	PropSampleRate    PropCode = 0xDE93
	PropChannels      PropCode = 0xDE94
	PropWaveCodec     PropCode = 0xDE95
	PropAudioBitrate  PropCode = 0xDE96
	PropDRMStatus     PropCode = 0xDE9A
)

// Video-specific properties (audio set plus these).
const (
	PropVideoFourCC  PropCode = 0xDE9C
	PropVideoBitrate PropCode = 0xDE9D
	PropFramerate    PropCode = 0xDE9E
)

// Device properties.
const (
	PropBatteryLevel      PropCode = 0x5001
	PropSyncPartner       PropCode = 0xD401
	PropDeviceFriendlyName PropCode = 0xD402
	PropDeviceIcon        PropCode = 0xD405
	PropPerceivedDeviceType PropCode = 0xD407
	PropVolume            PropCode = 0x5003
)

// FormatCode is a 16-bit MTP object-format code.
type FormatCode uint16

const (
	FormatUndefined  FormatCode = 0x3000
	FormatAssociation FormatCode = 0x3001
	FormatText       FormatCode = 0x3004
	FormatEXIFJPEG   FormatCode = 0x3801
	FormatJFIF       FormatCode = 0x3808
	FormatMP3        FormatCode = 0x3009
	FormatWAV        FormatCode = 0x3008
	FormatMP4        FormatCode = 0xB982
)

// FormatCategory groups formats for property-registry lookups (spec.md §4.2).
type FormatCategory int

const (
	CategoryCommon FormatCategory = iota
	CategoryImage
	CategoryAudio
	CategoryVideo
)

// CategoryOf classifies a format code into a property-registry category.
func CategoryOf(f FormatCode) FormatCategory {
	switch f {
	case FormatEXIFJPEG, FormatJFIF:
		return CategoryImage
	case FormatMP3, FormatWAV:
		return CategoryAudio
	case FormatMP4:
		return CategoryVideo
	default:
		return CategoryCommon
	}
}

// DataType tags the wire representation of a property or parameter value
// (spec.md §4.1, §9 "Value" sum type).
type DataType uint16

const (
	DataTypeUndefined DataType = 0x0000
	DataTypeInt8      DataType = 0x0001
	DataTypeUInt8     DataType = 0x0002
	DataTypeInt16     DataType = 0x0003
	DataTypeUInt16    DataType = 0x0004
	DataTypeInt32     DataType = 0x0005
	DataTypeUInt32    DataType = 0x0006
	DataTypeInt64     DataType = 0x0007
	DataTypeUInt64    DataType = 0x0008
	DataTypeInt128    DataType = 0x0009
	DataTypeUInt128   DataType = 0x000A
	DataTypeArrayMask DataType = 0x4000
	DataTypeString    DataType = 0xFFFF
)

// IsArray reports whether the high bit marking "array of T" is set.
func (d DataType) IsArray() bool { return d&DataTypeArrayMask != 0 }

// Elem returns the element type of an array datatype.
func (d DataType) Elem() DataType { return d &^ DataTypeArrayMask }
