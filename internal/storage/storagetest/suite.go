//go:build integration

package storagetest

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/storage"
)

// StorageFactory produces a freshly mounted, fully enumerated storage
// rooted at a temporary directory. The factory receives *testing.T so
// it can use t.TempDir() and t.Cleanup().
type StorageFactory func(t *testing.T) *storage.Storage

// NewFilesystemFactory returns the StorageFactory for the one storage
// backend this engine supports: a plain directory tree.
func NewFilesystemFactory() StorageFactory {
	return func(t *testing.T) *storage.Storage {
		t.Helper()

		root := t.TempDir()
		ready := make(chan uint32, 1)
		e := storage.NewEngine(slog.Default(), t.TempDir(), func(id uint32) { ready <- id })
		require.NoError(t, e.Mount(storage.Config{
			ID:          1,
			Root:        root,
			Description: "Conformance Storage",
			VolumeLabel: "CONFORM",
			FSUUID:      "11111111-1111-1111-1111-111111111111",
			MaxCapacity: 1 << 30,
		}))
		select {
		case <-ready:
		case <-time.After(5 * time.Second):
			t.Fatal("storagetest: timed out waiting for initial enumeration")
		}

		s, err := e.Storage(1)
		require.NoError(t, err)
		return s
	}
}

// RunConformanceSuite runs the full conformance suite against factory.
// Each subtest gets a fresh storage instance to ensure isolation.
func RunConformanceSuite(t *testing.T, factory StorageFactory) {
	t.Helper()

	t.Run("ItemOps", func(t *testing.T) { runItemOpsTests(t, factory) })
	t.Run("PropertyOps", func(t *testing.T) { runPropertyOpsTests(t, factory) })
}
