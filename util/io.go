package util

import (
	"context"
	"errors"
	"io"
	"net"
)

// CloseOnDone closes c as soon as ctx is cancelled, unblocking any
// goroutine parked in a Read or Write on it.  The returned stop
// function detaches the watcher; it reports false if c was already
// closed because of ctx.
func CloseOnDone(ctx context.Context, c io.Closer) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		c.Close() //nolint:errcheck
	})
}

// IsClosed returns true for errors that are expected when a connection
// is torn down underneath a pending read or write.
func IsClosed(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
