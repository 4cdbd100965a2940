package container

import "github.com/marmos91/mtpd/internal/mtptypes"

// ObjectInfo is the on-wire ObjectInfo dataset (spec.md §3, §4.1): fixed
// fields followed by variable-length strings.
type ObjectInfo struct {
	StorageID          uint32
	Format             mtptypes.FormatCode
	ProtectionStatus   uint16
	CompressedSize     uint32 // truncated to mtptypes.UnknownLength if >4GiB; true size lives in ObjectInfo64
	ThumbFormat        mtptypes.FormatCode
	ThumbCompressedSize uint32
	ThumbPixWidth      uint32
	ThumbPixHeight     uint32
	ImagePixWidth      uint32
	ImagePixHeight     uint32
	ImageBitDepth      uint32
	ParentObject       uint32
	AssociationType    uint16
	AssociationDesc    uint32
	SequenceNumber     uint32
	Filename           string
	CaptureDate        string
	ModificationDate   string
	Keywords           string
}

// Encode appends the ObjectInfo dataset in wire order.
func (e *Encoder) EncodeObjectInfo(oi *ObjectInfo) {
	e.WriteUint32(oi.StorageID)
	e.WriteUint16(uint16(oi.Format))
	e.WriteUint16(oi.ProtectionStatus)
	e.WriteUint32(oi.CompressedSize)
	e.WriteUint16(uint16(oi.ThumbFormat))
	e.WriteUint32(oi.ThumbCompressedSize)
	e.WriteUint32(oi.ThumbPixWidth)
	e.WriteUint32(oi.ThumbPixHeight)
	e.WriteUint32(oi.ImagePixWidth)
	e.WriteUint32(oi.ImagePixHeight)
	e.WriteUint32(oi.ImageBitDepth)
	e.WriteUint32(oi.ParentObject)
	e.WriteUint16(oi.AssociationType)
	e.WriteUint32(oi.AssociationDesc)
	e.WriteUint32(oi.SequenceNumber)
	e.WriteString(oi.Filename)
	e.WriteDateTime(oi.CaptureDate)
	e.WriteDateTime(oi.ModificationDate)
	e.WriteString(oi.Keywords)
}

// DecodeObjectInfo parses an ObjectInfo dataset, the inverse of EncodeObjectInfo.
func (d *Decoder) DecodeObjectInfo() (*ObjectInfo, error) {
	oi := &ObjectInfo{}
	var u16 uint16
	var err error

	if oi.StorageID, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if u16, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	oi.Format = mtptypes.FormatCode(u16)
	if oi.ProtectionStatus, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if oi.CompressedSize, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if u16, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	oi.ThumbFormat = mtptypes.FormatCode(u16)
	for _, dst := range []*uint32{&oi.ThumbCompressedSize, &oi.ThumbPixWidth, &oi.ThumbPixHeight,
		&oi.ImagePixWidth, &oi.ImagePixHeight, &oi.ImageBitDepth, &oi.ParentObject} {
		if *dst, err = d.ReadUint32(); err != nil {
			return nil, err
		}
	}
	if oi.AssociationType, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if oi.AssociationDesc, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if oi.SequenceNumber, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if oi.Filename, err = d.ReadString(); err != nil {
		return nil, err
	}
	if oi.CaptureDate, err = d.ReadDateTime(); err != nil {
		return nil, err
	}
	if oi.ModificationDate, err = d.ReadDateTime(); err != nil {
		return nil, err
	}
	if oi.Keywords, err = d.ReadString(); err != nil {
		return nil, err
	}
	return oi, nil
}

// StorageInfo is the on-wire StorageInfo dataset (spec.md §3).
type StorageInfo struct {
	StorageType        uint16
	FilesystemType      uint16
	AccessCapability   uint16
	MaxCapacity        uint64
	FreeSpaceInBytes   uint64
	FreeSpaceInObjects uint32
	Description        string
	VolumeLabel        string
}

func (e *Encoder) EncodeStorageInfo(si *StorageInfo) {
	e.WriteUint16(si.StorageType)
	e.WriteUint16(si.FilesystemType)
	e.WriteUint16(si.AccessCapability)
	e.WriteUint64(si.MaxCapacity)
	e.WriteUint64(si.FreeSpaceInBytes)
	e.WriteUint32(si.FreeSpaceInObjects)
	e.WriteString(si.Description)
	e.WriteString(si.VolumeLabel)
}

func (d *Decoder) DecodeStorageInfo() (*StorageInfo, error) {
	si := &StorageInfo{}
	var err error
	if si.StorageType, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if si.FilesystemType, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if si.AccessCapability, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if si.MaxCapacity, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if si.FreeSpaceInBytes, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if si.FreeSpaceInObjects, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if si.Description, err = d.ReadString(); err != nil {
		return nil, err
	}
	if si.VolumeLabel, err = d.ReadString(); err != nil {
		return nil, err
	}
	return si, nil
}

// PropListEntry is one entry of a GetObjectPropList/SetObjectPropList/
// SendObjectPropList dataset (spec.md §4.1).
type PropListEntry struct {
	Handle   uint32
	PropCode mtptypes.PropCode
	DataType mtptypes.DataType
	Value    Value
}

func (e *Encoder) EncodePropListEntry(p *PropListEntry) error {
	e.WriteUint32(p.Handle)
	e.WriteUint16(uint16(p.PropCode))
	e.WriteUint16(uint16(p.DataType))
	return e.EncodeValue(p.Value)
}

func (d *Decoder) DecodePropListEntry() (*PropListEntry, error) {
	p := &PropListEntry{}
	h, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	p.Handle = h
	pc, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	p.PropCode = mtptypes.PropCode(pc)
	dt, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	p.DataType = mtptypes.DataType(dt)
	p.Value, err = d.DecodeValue(p.DataType)
	if err != nil {
		return nil, err
	}
	return p, nil
}
