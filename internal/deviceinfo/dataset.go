// Package deviceinfo builds the GetDeviceInfo dataset (MTP 1.1 §5.1.1) and
// persists the two device properties the host is allowed to write —
// FriendlyName and SyncPartner — the way the original buteo-mtp
// implementation does: by rewriting a cached copy of an XML template
// rather than through a key-value store (SPEC_FULL.md §6).
package deviceinfo

import "github.com/marmos91/mtpd/internal/container"

// Standard dataset fields this module doesn't vary by device model
// (MTP 1.1 §5.1.1; vendor extension ID 6 is the registered MTP extension).
const (
	standardVersion        = 100
	vendorExtensionID      = 6
	vendorExtensionVersion = 100
	vendorExtensionDesc    = "microsoft.com: 1.0"
	functionalMode         = 0
)

// Static holds the GetDeviceInfo dataset fields that don't change at
// runtime: model identification and the capability arrays advertising
// which operations, events, device properties, and object formats this
// responder supports.
type Static struct {
	Manufacturer  string
	Model         string
	DeviceVersion string
	SerialNumber  string

	OperationsSupported       []uint16
	EventsSupported           []uint16
	DevicePropertiesSupported []uint16
	CaptureFormats            []uint16
	PlaybackFormats           []uint16
}

// Encode serializes the GetDeviceInfo dataset (spec.md §4.1 container
// payload format) in the field order MTP 1.1 §5.1.1 specifies.
func (s Static) Encode() []byte {
	e := container.NewEncoder()
	e.WriteUint16(standardVersion)
	e.WriteUint32(vendorExtensionID)
	e.WriteUint16(vendorExtensionVersion)
	e.WriteString(vendorExtensionDesc)
	e.WriteUint16(functionalMode)
	e.WriteArray16(s.OperationsSupported)
	e.WriteArray16(s.EventsSupported)
	e.WriteArray16(s.DevicePropertiesSupported)
	e.WriteArray16(s.CaptureFormats)
	e.WriteArray16(s.PlaybackFormats)
	e.WriteString(s.Manufacturer)
	e.WriteString(s.Model)
	e.WriteString(s.DeviceVersion)
	e.WriteString(s.SerialNumber)
	return e.Bytes()
}
