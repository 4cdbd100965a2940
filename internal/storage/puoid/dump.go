package puoid

import (
	"encoding/binary"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Dump serializes the largest-issued PUOID and every live path→PUOID
// entry in the mtppuoids on-disk format (spec.md §6): largestPuoid:128
// then count:32 then count × (pathLen:32, pathUtf8, puoid:128).
func (s *Store) Dump() ([]byte, error) {
	var largest ID
	type entry struct {
		path string
		id   ID
	}
	var entries []entry

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		largest, err = readLargest(txn)
		if err != nil {
			return err
		}
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixPath)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			var e entry
			e.path = string(key[len(prefix):])
			if err := item.Value(func(val []byte) error {
				if len(val) != 16 {
					return fmt.Errorf("puoid: corrupt entry for %q", e.path)
				}
				copy(e.id[:], val)
				return nil
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, 16, 16+4+len(entries)*24)
	copy(out, largest[:])
	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(entries)))
	out = append(out, count[:]...)
	for _, e := range entries {
		var pathLen [4]byte
		binary.BigEndian.PutUint32(pathLen[:], uint32(len(e.path)))
		out = append(out, pathLen[:]...)
		out = append(out, e.path...)
		out = append(out, e.id[:]...)
	}
	return out, nil
}

// Import replaces the store's contents with a previously Dump()ed image.
func (s *Store) Import(data []byte) error {
	if len(data) < 20 {
		return fmt.Errorf("puoid: import: truncated header (%d bytes)", len(data))
	}
	var largest ID
	copy(largest[:], data[:16])
	count := binary.BigEndian.Uint32(data[16:20])
	off := 20

	type entry struct {
		path string
		id   ID
	}
	entries := make([]entry, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(data) {
			return fmt.Errorf("puoid: import: truncated path length at entry %d", i)
		}
		pathLen := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if off+pathLen+16 > len(data) {
			return fmt.Errorf("puoid: import: truncated entry %d", i)
		}
		e := entry{path: string(data[off : off+pathLen])}
		off += pathLen
		copy(e.id[:], data[off:off+16])
		off += 16
		entries = append(entries, e)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyLargest), largest[:]); err != nil {
			return err
		}
		for _, e := range entries {
			if err := txn.Set(keyPath(e.path), e.id[:]); err != nil {
				return err
			}
		}
		return nil
	})
}
