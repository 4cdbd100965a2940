package storage

import (
	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/propreg"
)

// ThumbnailLookup resolves a ready thumbnail path for an object, used to
// answer Rep_Sample_Data requests (spec.md §4.3.8). A nil return with
// ok=false means the thumbnail is not ready yet; the caller schedules a
// completion event.
type ThumbnailLookup func(path string) (thumbPath string, ready bool)

const repSampleDataMapCap = 10 * 1024 * 1024 // spec.md §4.3.8 "memory-map up to 10 MiB"

// GetObjectPropertyValue answers a batch of property descriptors for a
// single object (spec.md §4.3.8).
func (s *Storage) GetObjectPropertyValue(h Handle, descs []propreg.Descriptor, thumbs ThumbnailLookup) (map[mtptypes.PropCode]container.Value, error) {
	const op = "storage.GetObjectPropertyValue"

	item, ok := s.ByHandle(h)
	if !ok {
		return nil, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	out := make(map[mtptypes.PropCode]container.Value, len(descs))
	for _, d := range descs {
		v, err := s.propertyValue(item, d.Code, thumbs)
		if err != nil {
			continue // unsupported codes are simply omitted from the batch
		}
		out[d.Code] = v
	}
	return out, nil
}

// GetChildPropertyValues answers the same batch for every direct child
// of parent, one round trip (spec.md §4.3.8).
func (s *Storage) GetChildPropertyValues(parent Handle, descs []propreg.Descriptor, thumbs ThumbnailLookup) (map[Handle]map[mtptypes.PropCode]container.Value, error) {
	const op = "storage.GetChildPropertyValues"

	if _, ok := s.ByHandle(parent); !ok {
		return nil, mtperr.New(op, mtptypes.InvalidObjectHandle)
	}

	out := make(map[Handle]map[mtptypes.PropCode]container.Value)
	for _, childHandle := range s.Children(parent) {
		values, err := s.GetObjectPropertyValue(childHandle, descs, thumbs)
		if err != nil {
			continue
		}
		out[childHandle] = values
	}
	return out, nil
}

func (s *Storage) propertyValue(item *Item, code mtptypes.PropCode, thumbs ThumbnailLookup) (container.Value, error) {
	switch code {
	case mtptypes.PropStorageID:
		return container.UInt32(item.Info.StorageID), nil
	case mtptypes.PropObjectFormat:
		return container.UInt16(uint16(item.Info.Format)), nil
	case mtptypes.PropProtectionStatus:
		return container.UInt16(item.Info.ProtectionStatus), nil
	case mtptypes.PropObjectSize:
		return container.UInt64(uint64(item.Info.CompressedSize)), nil
	case mtptypes.PropObjectFileName, mtptypes.PropName:
		return container.Str(item.Info.Filename), nil
	case mtptypes.PropDateCreated:
		return container.Str(item.Info.CaptureDate), nil
	case mtptypes.PropDateModified:
		return container.Str(item.Info.ModificationDate), nil
	case mtptypes.PropParentObject:
		return container.UInt32(item.Info.ParentObject), nil
	case mtptypes.PropPersistentUID:
		return container.UInt128(item.PUOID), nil
	case mtptypes.PropNonConsumable:
		if item.IsDirectory() {
			return container.UInt8(0), nil
		}
		return container.UInt8(0), nil
	case mtptypes.PropRepSampleData:
		return s.repSampleData(item, thumbs)
	default:
		return container.Value{}, mtperr.New("storage.propertyValue", mtptypes.ObjectPropNotSupported)
	}
}

// repSampleData requests the thumbnail path from the thumbnail client;
// if ready, returns up to repSampleDataMapCap bytes as a byte array; if
// not, returns an empty blob (spec.md §4.3.8). No event is emitted when
// the thumbnail later becomes ready; the next query returns the data.
func (s *Storage) repSampleData(item *Item, thumbs ThumbnailLookup) (container.Value, error) {
	if thumbs == nil {
		return container.Bytes(nil), nil
	}
	path, ready := thumbs(item.Path)
	if !ready {
		return container.Bytes(nil), nil
	}
	data, err := readThumbnailBytes(path, repSampleDataMapCap)
	if err != nil {
		return container.Bytes(nil), nil
	}
	return container.Bytes(data), nil
}
