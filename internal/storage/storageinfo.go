package storage

import (
	"golang.org/x/sys/unix"

	"github.com/marmos91/mtpd/internal/container"
)

// StorageType values (PTP spec, mirrored numerically per spec.md §6
// "Implementations MUST preserve the numeric values").
const (
	StorageFixedRAM    uint16 = 0x0003
	StorageRemovableRAM uint16 = 0x0004
	StorageFixedROM    uint16 = 0x0001
)

// Access capability values.
const (
	AccessReadWrite        uint16 = 0x0000
	AccessReadOnlyNoDelete uint16 = 0x0001
	AccessReadOnlyWithDelete uint16 = 0x0002
)

// Info returns the current StorageInfo dataset for this storage,
// refreshing the free-space figure from the underlying filesystem
// (spec.md §3 "StorageInfo").
func (s *Storage) Info(readOnly bool) (*container.StorageInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.Root, &stat); err != nil {
		return nil, err
	}
	free := stat.Bavail * uint64(stat.Bsize)
	s.SetFreeSpace(free)

	access := AccessReadWrite
	if readOnly {
		access = AccessReadOnlyWithDelete
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return &container.StorageInfo{
		StorageType:        StorageFixedRAM,
		FilesystemType:     0x0002, // generic hierarchical
		AccessCapability:   access,
		MaxCapacity:        s.maxCapacityBytes,
		FreeSpaceInBytes:   free,
		FreeSpaceInObjects: 0xFFFFFFFF, // unknown, per common PTP responder convention
		Description:        s.Description,
		VolumeLabel:        s.VolumeLabel,
	}, nil
}
