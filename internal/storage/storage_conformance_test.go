//go:build integration

package storage_test

import (
	"testing"

	"github.com/marmos91/mtpd/internal/storage/storagetest"
)

func TestStorageConformance(t *testing.T) {
	storagetest.RunConformanceSuite(t, storagetest.NewFilesystemFactory())
}
