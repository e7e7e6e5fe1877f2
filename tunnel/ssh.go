package tunnel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "telnetload/internal/errors"
	"telnetload/util"
)

// SSHConfig describes the bastion a run is tunnelled through.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

func (c *SSHConfig) addr() string { return util.FormatAddr(c.Host, c.Port) }

// SSHTunnel multiplexes every client session of a run over a single SSH
// connection.  It satisfies [Tunnel].
type SSHTunnel struct {
	cfg    *SSHConfig
	logger *util.Logger

	mu      sync.RWMutex
	client  *ssh.Client
	up      bool
	closing bool
}

// NewSSHTunnel fills in the port and timeout defaults.  Nothing is dialled
// until [SSHTunnel.Connect].
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHTunnel{cfg: cfg, logger: logger}
}

// Connect authenticates against the bastion.  Errors carry the phase that
// failed (auth, hostkey, dial or handshake).
func (t *SSHTunnel) Connect(ctx context.Context) error {
	clientCfg, err := t.clientConfig()
	if err != nil {
		return err
	}

	client, err := t.handshake(ctx, clientCfg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.client, t.up, t.closing = client, true, false
	t.mu.Unlock()

	t.logger.Verbose("tunnel: connected to %s as %s", t.cfg.addr(), t.cfg.User)
	go t.monitor(client)
	return nil
}

func (t *SSHTunnel) clientConfig() (*ssh.ClientConfig, error) {
	auth, err := BuildAuthMethods(t.cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("auth", t.cfg.Host, t.cfg.Port, err)
	}
	verify, err := hostKeyCallback(t.cfg)
	if err != nil {
		return nil, ncerr.WrapSSH("hostkey", t.cfg.Host, t.cfg.Port, err)
	}
	return &ssh.ClientConfig{
		User:            t.cfg.User,
		Auth:            auth,
		HostKeyCallback: verify,
		Timeout:         t.cfg.ConnTimeout,
	}, nil
}

// handshake dials the bastion and runs the SSH handshake.  Cancelling ctx
// closes the TCP connection, which aborts a handshake stuck on a silent
// peer.
func (t *SSHTunnel) handshake(ctx context.Context, clientCfg *ssh.ClientConfig) (*ssh.Client, error) {
	addr := t.cfg.addr()
	t.logger.Debug("tunnel: dialing %s", addr)

	d := net.Dialer{Timeout: t.cfg.ConnTimeout}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, ncerr.Wrap(ncerr.OpDial, addr, err)
	}

	stop := util.CloseOnDone(ctx, raw)
	if t.cfg.ConnTimeout > 0 {
		raw.SetDeadline(time.Now().Add(t.cfg.ConnTimeout)) //nolint:errcheck
	}
	conn, chans, reqs, err := ssh.NewClientConn(raw, addr, clientCfg)
	stop()
	if err != nil {
		raw.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, ncerr.WrapSSH("handshake", t.cfg.Host, t.cfg.Port, err)
	}
	raw.SetDeadline(time.Time{}) //nolint:errcheck
	return ssh.NewClient(conn, chans, reqs), nil
}

// Dial opens a direct-tcpip channel to address on the shared connection.
func (t *SSHTunnel) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	t.mu.RLock()
	client, up := t.client, t.up
	t.mu.RUnlock()

	if !up || client == nil {
		return nil, ncerr.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("tunnel dial %s: %w", address, err)
	}
	return conn, nil
}

// Close drops the SSH connection.  Channels opened by Dial die with it.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	client := t.client
	t.client, t.up, t.closing = nil, false, true
	t.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// IsAlive reports whether the SSH connection is still up.
func (t *SSHTunnel) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.up
}

// monitor waits for the connection to end.  An end not requested by Close
// is logged as an error: every session dialled after it fails.
func (t *SSHTunnel) monitor(client *ssh.Client) {
	err := client.Wait()

	t.mu.Lock()
	if t.client == client {
		t.up = false
	}
	closing := t.closing
	t.mu.Unlock()

	switch {
	case closing:
		t.logger.Debug("tunnel: closed")
	case err != nil:
		t.logger.Error("tunnel to %s lost: %v", t.cfg.Host, err)
	default:
		t.logger.Error("tunnel to %s lost", t.cfg.Host)
	}
}
