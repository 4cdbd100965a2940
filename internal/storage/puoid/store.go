// Package puoid implements the persistent unique object id store: a
// badger-backed path→PUOID map plus a monotonic "largest issued" counter,
// stable across process restarts for a given storage root (spec.md
// §4.3.1, §6 "Persisted state").
//
// Key namespace, mirroring the prefixed-key convention used for the rest
// of this module's badger-backed stores:
//
//	Data Type         Prefix   Key Format            Value Type
//	================================================================
//	path -> PUOID     "p:"     p:<path>              uint128 (16 bytes)
//	largest PUOID     "m:"     m:largest             uint128 (16 bytes)
//	reference list    "r:"     r:<puoid>             n × uint128 (16 bytes each)
package puoid

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	prefixPath     = "p:"
	prefixLargest  = "m:"
	prefixRefCount = "r:"
	keyLargest     = prefixLargest + "largest"
)

func keyPath(path string) []byte { return []byte(prefixPath + path) }

func keyRefCount(id ID) []byte {
	b := make([]byte, len(prefixRefCount)+16)
	copy(b, prefixRefCount)
	copy(b[len(prefixRefCount):], id[:])
	return b
}

// ID is a 128-bit persistent unique object id (spec.md §3).
type ID [16]byte

// Store is the badger-backed PUOID database for one storage root. The
// database file is qualified by volume label and filesystem UUID so
// removable storage does not collide (spec.md §4.3.1).
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) the PUOID database at dir, named after
// the storage's volume label and filesystem UUID.
func Open(stateDir, volumeLabel, fsUUID string) (*Store, error) {
	path := filepath.Join(stateDir, fmt.Sprintf("mtppuoids-%s-%s", volumeLabel, fsUUID))
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("puoid: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Lookup returns the PUOID recorded for path, if any.
func (s *Store) Lookup(path string) (ID, bool, error) {
	var id ID
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyPath(path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 16 {
				return fmt.Errorf("puoid: corrupt entry for %q: %d bytes", path, len(val))
			}
			copy(id[:], val)
			found = true
			return nil
		})
	})
	return id, found, err
}

// Assign records a PUOID for path, one greater than the largest ever
// issued (spec.md §4.3.1 "monotonically greater than the recorded
// largest"), and returns it.
func (s *Store) Assign(path string) (ID, error) {
	var next ID
	err := s.db.Update(func(txn *badger.Txn) error {
		largest, err := readLargest(txn)
		if err != nil {
			return err
		}
		next = incrementID(largest)
		if err := txn.Set(keyLargest, next[:]); err != nil {
			return err
		}
		return txn.Set(keyPath(path), next[:])
	})
	return next, err
}

func readLargest(txn *badger.Txn) (ID, error) {
	var largest ID
	item, err := txn.Get([]byte(keyLargest))
	if err == badger.ErrKeyNotFound {
		return largest, nil
	}
	if err != nil {
		return largest, err
	}
	err = item.Value(func(val []byte) error {
		if len(val) == 16 {
			copy(largest[:], val)
		}
		return nil
	})
	return largest, err
}

// incrementID treats id as a big-endian 128-bit integer and adds one.
func incrementID(id ID) ID {
	for i := len(id) - 1; i >= 0; i-- {
		id[i]++
		if id[i] != 0 {
			break
		}
	}
	return id
}

// Forget removes path's PUOID entry (spec.md §4.3.1 "PUOIDs for paths no
// longer present are purged").
func (s *Store) Forget(path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(keyPath(path))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Paths returns every path currently recorded, for purging stale entries
// after an enumeration pass.
func (s *Store) Paths() ([]string, error) {
	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixPath)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			paths = append(paths, string(key[len(prefix):]))
		}
		return nil
	})
	return paths, err
}

// References returns the list of PUOIDs that id refers to (the
// GetObjectReferences/SetObjectReferences dataset, spec.md §6
// "mtpreferences"), empty if id has none recorded.
func (s *Store) References(id ID) ([]ID, error) {
	var refs []ID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRefCount(id))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val)%16 != 0 {
				return fmt.Errorf("puoid: corrupt reference list for %x", id)
			}
			refs = make([]ID, len(val)/16)
			for i := range refs {
				copy(refs[i][:], val[i*16:(i+1)*16])
			}
			return nil
		})
	})
	return refs, err
}

// SetReferences persists the list of PUOIDs that id refers to.
func (s *Store) SetReferences(id ID, refs []ID) error {
	b := make([]byte, 0, len(refs)*16)
	for _, r := range refs {
		b = append(b, r[:]...)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if len(b) == 0 {
			err := txn.Delete(keyRefCount(id))
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return txn.Set(keyRefCount(id), b)
	})
}

// DumpReferences serializes every recorded reference list in the
// mtpreferences on-disk format (spec.md §6): count:32 then per-object
// (puoid:128, refCount:32, refCount × puoid:128).
func (s *Store) DumpReferences() ([]byte, error) {
	type entry struct {
		id   ID
		refs []ID
	}
	var entries []entry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixRefCount)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			var e entry
			copy(e.id[:], key[len(prefix):])
			if err := item.Value(func(val []byte) error {
				e.refs = make([]ID, len(val)/16)
				for i := range e.refs {
					copy(e.refs[i][:], val[i*16:(i+1)*16])
				}
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

	out := make([]byte, 4, 4+len(entries)*20)
	binary.BigEndian.PutUint32(out, uint32(len(entries)))
	for _, e := range entries {
		out = append(out, e.id[:]...)
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(e.refs)))
		out = append(out, n[:]...)
		for _, r := range e.refs {
			out = append(out, r[:]...)
		}
	}
	return out, nil
}
