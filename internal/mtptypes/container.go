// Package mtptypes holds the numeric constants of the MTP wire protocol:
// container types, operation and response codes, event codes, object and
// device property codes, and datatype tags. Values are taken from the PTP/MTP
// class specification and the Android MTP extension (0x95xx range) and MUST
// NOT be renumbered.
package mtptypes

// ContainerType identifies one of the four container kinds (spec.md §4.1).
type ContainerType uint16

const (
	ContainerTypeUndefined ContainerType = 0
	ContainerTypeCommand   ContainerType = 1
	ContainerTypeData      ContainerType = 2
	ContainerTypeResponse  ContainerType = 3
	ContainerTypeEvent     ContainerType = 4
)

func (t ContainerType) String() string {
	switch t {
	case ContainerTypeCommand:
		return "Command"
	case ContainerTypeData:
		return "Data"
	case ContainerTypeResponse:
		return "Response"
	case ContainerTypeEvent:
		return "Event"
	default:
		return "Undefined"
	}
}

// HeaderSize is the fixed container header: length, type, code, transaction id.
const HeaderSize = 4 + 2 + 2 + 4

// UnknownLength is the length field value used when the container exceeds
// 4 GiB; the true length is learned out of band (spec.md §4.1).
const UnknownLength uint32 = 0xFFFFFFFF

// Handle sentinels (spec.md §3).
const (
	RootHandle     uint32 = 0
	AllObjects     uint32 = 0xFFFFFFFF
	AllStorageIDs  uint32 = 0xFFFFFFFF
	NoSession      uint32 = 0
	SyntheticSess1 uint32 = 1
)
