// Package capability defines what a simulated client does over an
// established session.  Each Capability encapsulates one scripted
// behaviour and operates on a Session rather than a raw net.Conn,
// which keeps capabilities testable and decoupled from transports.
package capability

import (
	"context"
	"time"

	"telnetload/internal/session"
)

// Capability runs a scripted exchange against one session.
type Capability interface {
	// Handle blocks until the script is done, fails, or the context
	// is cancelled.
	Handle(ctx context.Context, sess *session.Session) error
}

// pause sleeps for d, returning early with ctx.Err() on cancellation.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
