package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/mtpd/internal/storage/watch"
)

func TestCreateEventEmitted(t *testing.T) {
	root := t.TempDir()
	w, err := watch.New(root, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	path := filepath.Join(root, "new.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		require.Equal(t, watch.KindCreated, ev.Kind)
		require.Equal(t, path, ev.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for create event")
	}
}

func TestExcludedPathSkipped(t *testing.T) {
	root := t.TempDir()
	excludedDir := filepath.Join(root, ".mtp-state")
	require.NoError(t, os.Mkdir(excludedDir, 0o755))

	w, err := watch.New(root, []string{excludedDir})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(excludedDir, "ignored.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "visible.txt"), []byte("x"), 0o644))

	select {
	case ev := <-w.Events():
		require.Equal(t, filepath.Join(root, "visible.txt"), ev.Path)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for visible create event")
	}
}
