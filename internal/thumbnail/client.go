// Package thumbnail wraps the freedesktop.org Thumbnailer1 D-Bus service
// (spec.md §4.4): request de-duplication, batched Queue calls, and a
// Ready-signal feed of object paths whose thumbnails completed. The
// daemon drains that feed and only logs it; no ObjectInfoChanged or
// ObjectPropChanged(Rep_Sample_Data) event is emitted when a thumbnail
// becomes ready.
package thumbnail

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	serviceName = "org.freedesktop.thumbnails.Thumbnailer1"
	objectPath  = dbus.ObjectPath("/org/freedesktop/thumbnails/Thumbnailer1")

	maxBatchSize   = 128             // spec.md §4.4 "batches of up to 128"
	startupDelay   = 3 * time.Second // spec.md §4.4 "on the order of 3s"
	steadyInterval = 1 * time.Second // spec.md §4.4 "flushed every ~1s"
)

type request struct {
	path string
	mime string
}

// Client de-duplicates thumbnail requests by path, flushes them in
// batches, and resolves the thumbnailer's Ready signal to a cache file
// path.
type Client struct {
	logger   *slog.Logger
	conn     *dbus.Conn
	cacheDir string

	mu       sync.Mutex
	queued   []request
	inFlight map[string]bool
	handles  map[uint32][]string
	ready    map[string]string

	readyCh chan string
}

// New connects to the session bus and subscribes to Thumbnailer1 signals.
// cacheDir is the freedesktop thumbnail cache root (normally
// $HOME/.cache/thumbnails).
func New(logger *slog.Logger, cacheDir string) (*Client, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("thumbnail: connect session bus: %w", err)
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface(serviceName),
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("thumbnail: subscribe to signals: %w", err)
	}

	c := &Client{
		logger:   logger,
		conn:     conn,
		cacheDir: cacheDir,
		inFlight: make(map[string]bool),
		handles:  make(map[uint32][]string),
		ready:    make(map[string]string),
		readyCh:  make(chan string, 256),
	}
	go c.signalLoop()
	return c, nil
}

// Request enqueues a thumbnail for path, de-duplicating against both the
// pending batch and already-completed thumbnails (spec.md §4.4
// "Outstanding requests are de-duplicated").
func (c *Client) Request(path, mime string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[path] {
		return
	}
	if _, ok := c.ready[path]; ok {
		return
	}
	c.inFlight[path] = true
	c.queued = append(c.queued, request{path: path, mime: mime})
}

// Lookup satisfies storage.ThumbnailLookup: it reports the cached
// thumbnail path for an object, if the thumbnailer has finished it.
func (c *Client) Lookup(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	thumbPath, ok := c.ready[path]
	return thumbPath, ok
}

// Ready returns the channel of object paths whose thumbnail just
// completed.
func (c *Client) Ready() <-chan string { return c.readyCh }

// Run drives the batch-flush timer until ctx is done: an initial
// startupDelay lets storage enumeration finish before the first flush,
// then flushes happen every steadyInterval (spec.md §4.4).
func (c *Client) Run(ctx context.Context) {
	startup := time.NewTimer(startupDelay)
	defer startup.Stop()

	select {
	case <-ctx.Done():
		return
	case <-startup.C:
	}
	c.flush()

	ticker := time.NewTicker(steadyInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.flush()
		}
	}
}

// splitBatch pulls up to maxBatchSize requests off the front of queued.
func splitBatch(queued []request) (batch, rest []request) {
	if len(queued) <= maxBatchSize {
		return queued, nil
	}
	return queued[:maxBatchSize], queued[maxBatchSize:]
}

func (c *Client) flush() {
	c.mu.Lock()
	if len(c.queued) == 0 {
		c.mu.Unlock()
		return
	}
	batch, rest := splitBatch(c.queued)
	c.queued = rest
	c.mu.Unlock()

	uris := make([]string, len(batch))
	mimes := make([]string, len(batch))
	paths := make([]string, len(batch))
	for i, r := range batch {
		uris[i] = "file://" + r.path
		mimes[i] = r.mime
		paths[i] = r.path
	}

	obj := c.conn.Object(serviceName, objectPath)
	var handle uint32
	call := obj.Call(serviceName+".Queue", 0, uris, mimes, "normal", uint32(0))
	if err := call.Store(&handle); err != nil {
		c.logger.Warn("thumbnail: Queue call failed", "error", err, "count", len(batch))
		c.mu.Lock()
		for _, p := range paths {
			delete(c.inFlight, p)
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.handles[handle] = paths
	c.mu.Unlock()
}

func (c *Client) signalLoop() {
	signals := make(chan *dbus.Signal, 32)
	c.conn.Signal(signals)
	for sig := range signals {
		switch sig.Name {
		case serviceName + ".Ready":
			c.handleReady(sig)
		case serviceName + ".Error":
			c.handleError(sig)
		case serviceName + ".Finished":
			c.handleFinished(sig)
		}
	}
}

func (c *Client) handleReady(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	uris, _ := sig.Body[1].([]string)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, uri := range uris {
		path := strings.TrimPrefix(uri, "file://")
		c.ready[path] = cachePath(c.cacheDir, uri)
		delete(c.inFlight, path)
		select {
		case c.readyCh <- path:
		default:
			if c.logger != nil {
				c.logger.Warn("thumbnail: ready channel full, dropping", "path", path)
			}
		}
	}
}

func (c *Client) handleError(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	uris, _ := sig.Body[1].([]string)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, uri := range uris {
		delete(c.inFlight, strings.TrimPrefix(uri, "file://"))
	}
}

func (c *Client) handleFinished(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}
	handle, _ := sig.Body[0].(uint32)
	c.mu.Lock()
	delete(c.handles, handle)
	c.mu.Unlock()
}

// cachePath computes the freedesktop thumbnail cache path for a file://
// uri: md5(uri) hex-encoded, ".png", under cacheDir/normal.
func cachePath(cacheDir, uri string) string {
	sum := md5.Sum([]byte(uri))
	return filepath.Join(cacheDir, "normal", hex.EncodeToString(sum[:])+".png")
}

// Close releases the D-Bus connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
