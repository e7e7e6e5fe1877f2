// Package transport provides abstractions for network connection
// establishment.  Transports handle how a session reaches its target,
// directly over TCP or through an SSH bastion, independent of the
// telnet exchange that runs over the connection.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  A single Dialer is shared
// by every session of a load run, so implementations must be safe for
// concurrent use.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH connection).  Stateless dialers return nil.
	Close() error
}
