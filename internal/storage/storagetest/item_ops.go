//go:build integration

package storagetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtperr"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/storage"
)

func runItemOpsTests(t *testing.T, factory StorageFactory) {
	t.Run("CreateFileAppearsInIndexAndOnDisk", func(t *testing.T) { testCreateFile(t, factory) })
	t.Run("CreateDirectoryIsAssociation", func(t *testing.T) { testCreateDirectory(t, factory) })
	t.Run("WriteThenReadRoundTrips", func(t *testing.T) { testWriteReadRoundTrip(t, factory) })
	t.Run("DeleteRemovesFromIndexAndDisk", func(t *testing.T) { testDelete(t, factory) })
	t.Run("DeleteDirectoryCascadesToChildren", func(t *testing.T) { testDeleteCascade(t, factory) })
	t.Run("DeleteRootIsRefused", func(t *testing.T) { testDeleteRootRefused(t, factory) })
	t.Run("CopyWithinStorageAllocatesNewHandle", func(t *testing.T) { testCopyWithinStorage(t, factory) })
	t.Run("MoveWithinStorageReparents", func(t *testing.T) { testMoveWithinStorage(t, factory) })
	t.Run("EveryItemExistsInAllThreeIndexes", func(t *testing.T) { testIndexInvariant(t, factory) })
}

func testCreateFile(t *testing.T, factory StorageFactory) {
	s := factory(t)
	h, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{
		Format:   mtptypes.FormatUndefined,
		Filename: "hello.txt",
	})
	require.NoError(t, err)

	item, ok := s.ByHandle(h)
	require.True(t, ok)
	require.Equal(t, "hello.txt", item.Info.Filename)
	require.False(t, item.IsDirectory())
}

func testCreateDirectory(t *testing.T, factory StorageFactory) {
	s := factory(t)
	h, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{
		Format:   mtptypes.FormatAssociation,
		Filename: "folder",
	})
	require.NoError(t, err)

	item, ok := s.ByHandle(h)
	require.True(t, ok)
	require.True(t, item.IsDirectory())
	require.Contains(t, s.Children(storage.RootHandle), h)
}

func testWriteReadRoundTrip(t *testing.T, factory StorageFactory) {
	s := factory(t)
	h, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{
		Format:   mtptypes.FormatUndefined,
		Filename: "payload.bin",
	})
	require.NoError(t, err)

	data := []byte("conformance payload")
	require.NoError(t, s.WriteData(h, data, true, true))

	out := make([]byte, len(data))
	n, err := s.ReadData(h, 0, len(data), out)
	require.NoError(t, err)
	require.Equal(t, data, out[:n])
}

func testDelete(t *testing.T, factory StorageFactory) {
	s := factory(t)
	h, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{
		Format:   mtptypes.FormatUndefined,
		Filename: "temp.bin",
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(h, mtptypes.FormatUndefined))
	_, ok := s.ByHandle(h)
	require.False(t, ok)
}

func testDeleteCascade(t *testing.T, factory StorageFactory) {
	s := factory(t)
	dir, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatAssociation, Filename: "parent"})
	require.NoError(t, err)
	child, err := s.AddItem(dir, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "child.bin"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(dir, mtptypes.FormatUndefined))

	_, dirOk := s.ByHandle(dir)
	_, childOk := s.ByHandle(child)
	require.False(t, dirOk)
	require.False(t, childOk)
}

func testDeleteRootRefused(t *testing.T, factory StorageFactory) {
	s := factory(t)
	err := s.DeleteItem(storage.RootHandle, mtptypes.FormatUndefined)
	require.Error(t, err)
	require.True(t, mtperr.Is(err, mtptypes.ObjectWriteProtected))
}

func testCopyWithinStorage(t *testing.T, factory StorageFactory) {
	s := factory(t)
	src, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "orig.bin"})
	require.NoError(t, err)
	require.NoError(t, s.WriteData(src, []byte("copy me"), true, true))

	dst, err := s.CopyItem(src, s, storage.RootHandle)
	require.NoError(t, err)
	require.NotEqual(t, src, dst)

	out := make([]byte, len("copy me"))
	n, err := s.ReadData(dst, 0, len(out), out)
	require.NoError(t, err)
	require.Equal(t, "copy me", string(out[:n]))
}

func testMoveWithinStorage(t *testing.T, factory StorageFactory) {
	s := factory(t)
	dirA, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatAssociation, Filename: "a"})
	require.NoError(t, err)
	dirB, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatAssociation, Filename: "b"})
	require.NoError(t, err)
	item, err := s.AddItem(dirA, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "file.bin"})
	require.NoError(t, err)

	require.NoError(t, s.MoveItem(item, s, dirB))
	require.Contains(t, s.Children(dirB), item)
	require.NotContains(t, s.Children(dirA), item)
}

func testIndexInvariant(t *testing.T, factory StorageFactory) {
	s := factory(t)
	h, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "idx.bin"})
	require.NoError(t, err)

	item, ok := s.ByHandle(h)
	require.True(t, ok)
	byPath, ok := s.ByPath(item.Path)
	require.True(t, ok)
	require.Equal(t, h, byPath.Handle)
	require.Equal(t, storage.RootHandle, s.Parent(h))
	require.Contains(t, s.Children(storage.RootHandle), h)
}
