package thumbnail

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{
		inFlight: make(map[string]bool),
		handles:  make(map[uint32][]string),
		ready:    make(map[string]string),
		readyCh:  make(chan string, 8),
		cacheDir: "/home/user/.cache/thumbnails",
	}
}

func TestRequestDeduplicatesPending(t *testing.T) {
	c := newTestClient()
	c.Request("/storage/a.jpg", "image/jpeg")
	c.Request("/storage/a.jpg", "image/jpeg")
	require.Len(t, c.queued, 1)
}

func TestRequestSkipsAlreadyReady(t *testing.T) {
	c := newTestClient()
	c.ready["/storage/a.jpg"] = "/home/user/.cache/thumbnails/normal/whatever.png"
	c.Request("/storage/a.jpg", "image/jpeg")
	require.Empty(t, c.queued)
}

func TestLookupReturnsCachedPath(t *testing.T) {
	c := newTestClient()
	c.ready["/storage/a.jpg"] = "/cache/x.png"
	path, ok := c.Lookup("/storage/a.jpg")
	require.True(t, ok)
	require.Equal(t, "/cache/x.png", path)

	_, ok = c.Lookup("/storage/b.jpg")
	require.False(t, ok)
}

func TestSplitBatchCapsAtMaxBatchSize(t *testing.T) {
	queued := make([]request, maxBatchSize+10)
	batch, rest := splitBatch(queued)
	require.Len(t, batch, maxBatchSize)
	require.Len(t, rest, 10)
}

func TestSplitBatchBelowCapReturnsAll(t *testing.T) {
	queued := make([]request, 5)
	batch, rest := splitBatch(queued)
	require.Len(t, batch, 5)
	require.Empty(t, rest)
}

func TestHandleReadyMarksPathReadyAndClearsInFlight(t *testing.T) {
	c := newTestClient()
	c.inFlight["/storage/a.jpg"] = true

	sig := &dbus.Signal{
		Name: serviceName + ".Ready",
		Body: []interface{}{uint32(1), []string{"file:///storage/a.jpg"}},
	}
	c.handleReady(sig)

	require.False(t, c.inFlight["/storage/a.jpg"])
	thumbPath, ok := c.Lookup("/storage/a.jpg")
	require.True(t, ok)
	require.Contains(t, thumbPath, c.cacheDir)

	select {
	case p := <-c.readyCh:
		require.Equal(t, "/storage/a.jpg", p)
	default:
		t.Fatal("expected a path on the ready channel")
	}
}

func TestHandleFinishedClearsHandle(t *testing.T) {
	c := newTestClient()
	c.handles[7] = []string{"/storage/a.jpg"}

	c.handleFinished(&dbus.Signal{Name: serviceName + ".Finished", Body: []interface{}{uint32(7)}})

	_, ok := c.handles[7]
	require.False(t, ok)
}

func TestHandleErrorClearsInFlightWithoutMarkingReady(t *testing.T) {
	c := newTestClient()
	c.inFlight["/storage/a.jpg"] = true

	c.handleError(&dbus.Signal{
		Name: serviceName + ".Error",
		Body: []interface{}{uint32(1), []string{"file:///storage/a.jpg"}, int32(0), "failed"},
	})

	require.False(t, c.inFlight["/storage/a.jpg"])
	_, ok := c.Lookup("/storage/a.jpg")
	require.False(t, ok)
}

func TestCachePathIsDeterministic(t *testing.T) {
	a := cachePath("/cache", "file:///storage/a.jpg")
	b := cachePath("/cache", "file:///storage/a.jpg")
	c := cachePath("/cache", "file:///storage/b.jpg")
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}
