package functionfs

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// pollTimeoutMillis bounds each unix.Poll call so a cancelled context is
// noticed promptly instead of blocking forever on an idle endpoint
// (spec.md §4.5.4's "re-check a shouldExit flag" loop, done here by
// polling a non-blocking fd instead of relying on a signal handler —
// see SPEC_FULL.md §5.5).
const pollTimeoutMillis = 200

// endpoint wraps a raw FunctionFS endpoint file with a poll-driven,
// context-cancelable read/write pair.
type endpoint struct {
	f  *os.File
	fd int
}

func openEndpoint(path string, flag int) (*endpoint, error) {
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	fd := int(f.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		f.Close()
		return nil, err
	}
	return &endpoint{f: f, fd: fd}, nil
}

// waitReady blocks until the endpoint is ready for the given poll events,
// or ctx is done, whichever comes first.
func (e *endpoint) waitReady(ctx context.Context, events int16) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fds := []unix.PollFd{{Fd: int32(e.fd), Events: events}}
		n, err := unix.Poll(fds, pollTimeoutMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if n > 0 {
			return nil
		}
	}
}

func (e *endpoint) waitReadable(ctx context.Context) error { return e.waitReady(ctx, unix.POLLIN) }
func (e *endpoint) waitWritable(ctx context.Context) error { return e.waitReady(ctx, unix.POLLOUT) }

func (e *endpoint) Close() error {
	if e == nil || e.f == nil {
		return nil
	}
	return e.f.Close()
}
