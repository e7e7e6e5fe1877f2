package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	ncerr "telnetload/internal/errors"
	"telnetload/tunnel"
	"telnetload/util"
)

// SSHDialer routes connections through an SSH tunnel.  The tunnel is
// connected lazily on the first Dial call and torn down on Close.
//
// Thousands of sessions may call Dial at once; only the first one
// performs the handshake.  A failed handshake is remembered so the
// remaining sessions fail fast instead of each retrying it.
type SSHDialer struct {
	tunnel  tunnel.Tunnel
	label   string
	logger  *util.Logger
	mu      sync.Mutex
	done    bool
	connErr error
}

// NewSSHDialer creates a dialer that forwards connections through an
// SSH tunnel.  The tunnel is not connected until the first Dial.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return NewTunnelDialer(tunnel.NewSSHTunnel(cfg, logger),
		fmt.Sprintf("%s@%s:%d", cfg.User, cfg.Host, cfg.Port), logger)
}

// NewTunnelDialer wraps an arbitrary Tunnel.  label names the gateway
// in log lines.
func NewTunnelDialer(t tunnel.Tunnel, label string, logger *util.Logger) *SSHDialer {
	return &SSHDialer{tunnel: t, label: label, logger: logger}
}

// connect establishes the tunnel if not already attempted.
func (d *SSHDialer) connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done {
		return d.connErr
	}

	d.logger.Verbose("establishing SSH tunnel to %s", d.label)

	if err := d.tunnel.Connect(ctx); err != nil {
		// A cancelled first dial should not poison later sessions.
		if ctx.Err() == nil {
			d.done = true
			d.connErr = fmt.Errorf("tunnel: %w", err)
		}
		return fmt.Errorf("tunnel: %w", err)
	}

	d.done = true
	d.logger.Verbose("SSH tunnel established")
	return nil
}

// Dial connects to address through the SSH tunnel, lazily establishing
// the tunnel on the first call.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.connect(ctx); err != nil {
		return nil, err
	}
	if !d.tunnel.IsAlive() {
		return nil, fmt.Errorf("tunnel %s: %w", d.label, ncerr.ErrNotConnected)
	}
	return d.tunnel.Dial(ctx, network, address)
}

// Close tears down the underlying SSH tunnel.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.done && d.connErr == nil {
		d.done = false
		return d.tunnel.Close()
	}
	return nil
}
