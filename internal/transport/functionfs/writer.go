package functionfs

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"

	"github.com/marmos91/mtpd/internal/container"
)

// writeScratchChunk matches spec.md §4.6.4's "streams it to the bulk
// writer in 16 KiB chunks".
const writeScratchChunk = 16 * 1024

// WriteBulk hands data to the dedicated bulk-writer goroutine and blocks
// until it has been written (or the transport is shutting down). end
// marks the last chunk of a data-phase transfer, which triggers the ZLP
// rule if the total happens to land on a packet boundary (spec.md
// §4.5.2).
func (t *Transport) WriteBulk(ctx context.Context, data []byte, end bool) error {
	job := writeJob{data: data, end: end, result: make(chan error, 1)}
	select {
	case t.writeJobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-job.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendContainer marshals a full container and writes it as one data-phase
// transfer (used for response/event-sized containers that fit comfortably
// in one chunk).
func (t *Transport) SendContainer(ctx context.Context, c *container.Container) error {
	var hdr [12]byte
	putHeader(hdr[:], c)
	if err := t.WriteBulk(ctx, hdr[:], len(c.Payload) == 0); err != nil {
		return err
	}
	if len(c.Payload) == 0 {
		return nil
	}
	return t.WriteBulk(ctx, c.Payload, true)
}

// putHeader encodes the 12-byte container header directly into dst,
// avoiding the extra allocation container.Container.WriteTo would need to
// split header and payload into two separate endpoint writes.
func putHeader(dst []byte, c *container.Container) {
	length := c.Len()
	dst[0] = byte(length)
	dst[1] = byte(length >> 8)
	dst[2] = byte(length >> 16)
	dst[3] = byte(length >> 24)
	dst[4] = byte(uint16(c.Type))
	dst[5] = byte(uint16(c.Type) >> 8)
	dst[6] = byte(c.Code)
	dst[7] = byte(c.Code >> 8)
	dst[8] = byte(c.TxID)
	dst[9] = byte(c.TxID >> 8)
	dst[10] = byte(c.TxID >> 16)
	dst[11] = byte(c.TxID >> 24)
}

func (t *Transport) runBulkWriter(ctx context.Context) {
	defer t.wg.Done()
	chunkSize := writeScratchChunk
	// transferred counts the bytes of the current data-phase transfer
	// across WriteBulk calls, so the ZLP rule sees the transfer total.
	transferred := 0
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-t.writeJobs:
			err := t.writeChunked(ctx, job.data, &chunkSize)
			transferred += len(job.data)
			if err == nil && job.end && transferred%highSpeedMaxBulk == 0 {
				err = t.writeChunked(ctx, nil, &chunkSize)
			}
			if job.end || err != nil {
				transferred = 0
			}
			job.result <- err
		}
	}
}

// writeChunked writes data in pieces no larger than *chunkSize, halving
// the chunk size (down to one max-packet) on EIO; the reduced size stays
// in effect for later writes (spec.md §4.5.2 back-off rule).
// An empty data slice issues a single zero-length write (a ZLP).
func (t *Transport) writeChunked(ctx context.Context, data []byte, chunkSize *int) error {
	if len(data) == 0 {
		_, err := t.ep1.f.Write(nil)
		return err
	}
	offset := 0
	for offset < len(data) {
		if err := t.ep1.waitWritable(ctx); err != nil {
			return err
		}
		end := offset + *chunkSize
		if end > len(data) {
			end = len(data)
		}
		n, err := t.ep1.f.Write(data[offset:end])
		if err != nil {
			if errors.Is(err, unix.EIO) && *chunkSize > highSpeedMaxBulk {
				*chunkSize /= 2
				if *chunkSize < highSpeedMaxBulk {
					*chunkSize = highSpeedMaxBulk
				}
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				continue
			}
			return err
		}
		t.metrics.RecordBulkBytesOut(n)
		offset += n
	}
	return nil
}

// QueueEvent pushes a serialized event container onto the bounded
// interrupt-writer queue (cap interruptQueueCap). Queue overflow drops the
// oldest queued event (spec.md §4.5.2).
func (t *Transport) QueueEvent(c *container.Container) {
	var hdr [12]byte
	putHeader(hdr[:], c)
	payload := append(append([]byte(nil), hdr[:]...), c.Payload...)

	t.intrMu.Lock()
	if len(t.intrQueue) >= interruptQueueCap {
		dropped := t.intrQueue[0]
		t.intrQueue = t.intrQueue[1:]
		t.logger.Warn("functionfs: interrupt queue full, dropping oldest event", "size", len(dropped))
	}
	t.intrQueue = append(t.intrQueue, payload)
	t.intrMu.Unlock()

	select {
	case t.intrWake <- struct{}{}:
	default:
	}
}

func (t *Transport) runInterruptWriter(ctx context.Context) {
	defer t.wg.Done()
	for {
		t.intrMu.Lock()
		var next []byte
		if len(t.intrQueue) > 0 {
			next = t.intrQueue[0]
			t.intrQueue = t.intrQueue[1:]
		}
		t.intrMu.Unlock()

		if next == nil {
			select {
			case <-t.intrWake:
				continue
			case <-ctx.Done():
				return
			}
		}

		if err := t.ep3.waitWritable(ctx); err != nil {
			return
		}
		// Interrupt endpoints accept a full packet per transfer: all or
		// nothing, no chunking or ZLP rule (spec.md §4.5.2).
		if _, err := t.ep3.f.Write(next); err != nil && ctx.Err() == nil {
			t.logger.Warn("functionfs: ep3 write error", "error", err)
		}
	}
}
