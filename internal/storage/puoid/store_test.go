//go:build integration

package puoid_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/storage/puoid"
)

func openTestStore(t *testing.T) *puoid.Store {
	t.Helper()
	s, err := puoid.Open(t.TempDir(), "INTSTOR", "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssignIsMonotonic(t *testing.T) {
	s := openTestStore(t)

	a, err := s.Assign("/root/a.jpg")
	require.NoError(t, err)
	b, err := s.Assign("/root/b.jpg")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	got, found, err := s.Lookup("/root/a.jpg")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, a, got)
}

func TestAssignReusesExistingLookup(t *testing.T) {
	s := openTestStore(t)
	id, err := s.Assign(filepath.Join("/root", "x.jpg"))
	require.NoError(t, err)

	_, found, err := s.Lookup("/root/missing.jpg")
	require.NoError(t, err)
	require.False(t, found)

	got, found, err := s.Lookup("/root/x.jpg")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id, got)
}

func TestForgetRemovesEntry(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Assign("/root/gone.jpg")
	require.NoError(t, err)
	require.NoError(t, s.Forget("/root/gone.jpg"))

	_, found, err := s.Lookup("/root/gone.jpg")
	require.NoError(t, err)
	require.False(t, found)
}

func TestDumpImportRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id1, err := s.Assign("/root/a.jpg")
	require.NoError(t, err)
	id2, err := s.Assign("/root/b.jpg")
	require.NoError(t, err)

	dump, err := s.Dump()
	require.NoError(t, err)

	s2, err := puoid.Open(t.TempDir(), "INTSTOR", "11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)
	defer s2.Close()

	require.NoError(t, s2.Import(dump))

	got1, found, err := s2.Lookup("/root/a.jpg")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id1, got1)

	got2, found, err := s2.Lookup("/root/b.jpg")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id2, got2)
}

func TestReferencesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id, err := s.Assign("/root/album.jpg")
	require.NoError(t, err)
	ref, err := s.Assign("/root/artist.jpg")
	require.NoError(t, err)

	require.NoError(t, s.SetReferences(id, []puoid.ID{ref}))
	got, err := s.References(id)
	require.NoError(t, err)
	require.Equal(t, []puoid.ID{ref}, got)

	dump, err := s.DumpReferences()
	require.NoError(t, err)
	require.NotEmpty(t, dump)
}

func TestPathsListsAllAssigned(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Assign("/root/a.jpg")
	require.NoError(t, err)
	_, err = s.Assign("/root/b.jpg")
	require.NoError(t, err)

	paths, err := s.Paths()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"/root/a.jpg", "/root/b.jpg"}, paths)
}
