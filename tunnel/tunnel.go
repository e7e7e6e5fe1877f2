// Package tunnel carries a load run through an SSH bastion.  Every
// client session becomes a direct-tcpip channel multiplexed over one
// SSH connection (golang.org/x/crypto/ssh), so the target sees the
// traffic originate from the bastion.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is a gateway that client sessions are dialled through.
// Implementations must allow Dial from many goroutines at once.
type Tunnel interface {
	// Connect performs the handshake with the gateway.  It is called
	// once per run, before the first Dial.
	Connect(ctx context.Context) error

	// Dial opens one session channel to address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close drops the gateway connection and every channel on it.
	Close() error

	// IsAlive is false before Connect and after the gateway is lost.
	IsAlive() bool
}
