package symlink_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/storage/symlink"
)

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, symlink.AllowAll, symlink.ParsePolicy("allowall"))
	assert.Equal(t, symlink.AllowWithinStorage, symlink.ParsePolicy("AllowWithinStorage"))
	assert.Equal(t, symlink.DenyAll, symlink.ParsePolicy("denyall"))
	assert.Equal(t, symlink.DenyAll, symlink.ParsePolicy(""))
	assert.Equal(t, symlink.DenyAll, symlink.ParsePolicy("bogus"))
}

func TestAllowedWithinStorage(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "inside.txt")
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0o644))

	outsideDir := t.TempDir()
	outside := filepath.Join(outsideDir, "outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	linkIn := filepath.Join(root, "link-in")
	require.NoError(t, os.Symlink(inside, linkIn))
	linkOut := filepath.Join(root, "link-out")
	require.NoError(t, os.Symlink(outside, linkOut))

	ok, err := symlink.AllowWithinStorage.Allowed(linkIn, root)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = symlink.AllowWithinStorage.Allowed(linkOut, root)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDenyAllRefusesEverything(t *testing.T) {
	ok, err := symlink.DenyAll.Allowed("/any/path", "/any/root")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowAllAcceptsEverything(t *testing.T) {
	ok, err := symlink.AllowAll.Allowed("/any/path", "/any/root")
	require.NoError(t, err)
	assert.True(t, ok)
}
