//go:build integration

package storagetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/container"
	"github.com/marmos91/mtpd/internal/mtptypes"
	"github.com/marmos91/mtpd/internal/propreg"
	"github.com/marmos91/mtpd/internal/storage"
)

func runPropertyOpsTests(t *testing.T, factory StorageFactory) {
	t.Run("ObjectFileNameMatchesCreatedName", func(t *testing.T) { testObjectFileNameProperty(t, factory) })
	t.Run("ParentObjectReflectsGraph", func(t *testing.T) { testParentObjectProperty(t, factory) })
	t.Run("UnsupportedCodeOmittedFromBatch", func(t *testing.T) { testUnsupportedPropertyOmitted(t, factory) })
	t.Run("ChildPropertyValuesCoverAllChildren", func(t *testing.T) { testChildPropertyValues(t, factory) })
}

func testObjectFileNameProperty(t *testing.T, factory StorageFactory) {
	s := factory(t)
	h, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "prop.bin"})
	require.NoError(t, err)

	descs := []propreg.Descriptor{{Code: mtptypes.PropObjectFileName}}
	values, err := s.GetObjectPropertyValue(h, descs, nil)
	require.NoError(t, err)
	require.Equal(t, "prop.bin", values[mtptypes.PropObjectFileName].Str)
}

func testParentObjectProperty(t *testing.T, factory StorageFactory) {
	s := factory(t)
	dir, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatAssociation, Filename: "dir"})
	require.NoError(t, err)
	child, err := s.AddItem(dir, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "child.bin"})
	require.NoError(t, err)

	descs := []propreg.Descriptor{{Code: mtptypes.PropParentObject}}
	values, err := s.GetObjectPropertyValue(child, descs, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(dir), values[mtptypes.PropParentObject].U32)
}

func testUnsupportedPropertyOmitted(t *testing.T, factory StorageFactory) {
	s := factory(t)
	h, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "x.bin"})
	require.NoError(t, err)

	descs := []propreg.Descriptor{{Code: mtptypes.PropCode(0xFFFF)}}
	values, err := s.GetObjectPropertyValue(h, descs, nil)
	require.NoError(t, err)
	_, present := values[mtptypes.PropCode(0xFFFF)]
	require.False(t, present)
}

func testChildPropertyValues(t *testing.T, factory StorageFactory) {
	s := factory(t)
	dir, err := s.AddItem(storage.RootHandle, &container.ObjectInfo{Format: mtptypes.FormatAssociation, Filename: "batch"})
	require.NoError(t, err)
	first, err := s.AddItem(dir, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "one.bin"})
	require.NoError(t, err)
	second, err := s.AddItem(dir, &container.ObjectInfo{Format: mtptypes.FormatUndefined, Filename: "two.bin"})
	require.NoError(t, err)

	descs := []propreg.Descriptor{{Code: mtptypes.PropObjectFileName}}
	values, err := s.GetChildPropertyValues(dir, descs, nil)
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.Equal(t, "one.bin", values[first][mtptypes.PropObjectFileName].Str)
	require.Equal(t, "two.bin", values[second][mtptypes.PropObjectFileName].Str)
}
