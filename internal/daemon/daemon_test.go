package daemon

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func newTestDaemon(storageCount int) *Daemon {
	return &Daemon{
		logger:       slog.Default(),
		storageReady: make(chan uint32, storageCount),
		storageCount: storageCount,
	}
}

func TestAwaitStoragesNoneConfigured(t *testing.T) {
	d := newTestDaemon(0)
	if err := d.awaitStorages(context.Background()); err != nil {
		t.Fatalf("awaitStorages with zero storages: %v", err)
	}
}

func TestAwaitStoragesWaitsForEachReadySignal(t *testing.T) {
	d := newTestDaemon(2)
	d.storageReady <- 1
	d.storageReady <- 2

	done := make(chan error, 1)
	go func() { done <- d.awaitStorages(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("awaitStorages: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("awaitStorages did not return once every storage signalled ready")
	}
}

func TestAwaitStoragesCancelledContext(t *testing.T) {
	d := newTestDaemon(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.awaitStorages(ctx); err == nil {
		t.Fatal("expected awaitStorages to return the context error when no storage ever signals ready")
	}
}
