package storage

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// readThumbnailBytes memory-maps path and returns up to maxLen bytes of
// its content (spec.md §4.3.8 "memory-map up to 10 MiB and return as
// byte array").
func readThumbnailBytes(path string, maxLen int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open thumbnail %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := int(info.Size())
	if size == 0 {
		return nil, nil
	}
	if size > maxLen {
		size = maxLen
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("storage: mmap thumbnail %s: %w", path, err)
	}
	defer unix.Munmap(data)

	out := make([]byte, size)
	copy(out, data)
	return out, nil
}
