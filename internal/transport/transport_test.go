package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ncerr "telnetload/internal/errors"
	"telnetload/util"
)

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Server: accept, send a prompt, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("router#")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}

	conn, err := d.Dial(context.Background(), "tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "router#" {
		t.Errorf("got %q, want %q", got, "router#")
	}
}

// TestTCPDialer_ContextCancel verifies that a cancelled context stops the dial.
func TestTCPDialer_ContextCancel(t *testing.T) {
	d := &TCPDialer{Timeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := d.Dial(ctx, "tcp", "127.0.0.1:1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// TestTCPDialer_Refused verifies an unreachable port surfaces an error.
func TestTCPDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	d := &TCPDialer{Timeout: time.Second}
	if _, err := d.Dial(context.Background(), "tcp", addr); err == nil {
		t.Fatal("expected connection refused")
	}
}

// TestTCPDialer_Close verifies Close is a no-op and returns nil.
func TestTCPDialer_Close(t *testing.T) {
	d := &TCPDialer{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// ── SSHDialer with a stub tunnel ─────────────────────────────────────

type stubTunnel struct {
	connects   atomic.Int32
	closes     atomic.Int32
	connectErr error
	dead       atomic.Bool
	dial       func(network, address string) (net.Conn, error)
}

func (s *stubTunnel) Connect(context.Context) error {
	s.connects.Add(1)
	time.Sleep(5 * time.Millisecond)
	return s.connectErr
}

func (s *stubTunnel) Dial(_ context.Context, network, address string) (net.Conn, error) {
	return s.dial(network, address)
}

func (s *stubTunnel) Close() error  { s.closes.Add(1); return nil }
func (s *stubTunnel) IsAlive() bool { return !s.dead.Load() }

// TestSSHDialer_ConnectsOnce verifies concurrent sessions share one handshake.
func TestSSHDialer_ConnectsOnce(t *testing.T) {
	stub := &stubTunnel{dial: func(string, string) (net.Conn, error) {
		a, b := net.Pipe()
		b.Close()
		return a, nil
	}}
	d := NewTunnelDialer(stub, "ops@bastion:22", util.NewLogger(0))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := d.Dial(context.Background(), "tcp", "10.0.0.5:23")
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			conn.Close()
		}()
	}
	wg.Wait()

	if n := stub.connects.Load(); n != 1 {
		t.Errorf("tunnel connected %d times, want 1", n)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if n := stub.closes.Load(); n != 1 {
		t.Errorf("tunnel closed %d times, want 1", n)
	}
}

// TestSSHDialer_FailureRemembered verifies a failed handshake is not retried.
func TestSSHDialer_FailureRemembered(t *testing.T) {
	boom := errors.New("handshake failed")
	stub := &stubTunnel{connectErr: boom}
	d := NewTunnelDialer(stub, "ops@bastion:22", util.NewLogger(0))

	for i := 0; i < 5; i++ {
		_, err := d.Dial(context.Background(), "tcp", "10.0.0.5:23")
		if !errors.Is(err, boom) {
			t.Fatalf("dial %d: err = %v, want %v", i, err, boom)
		}
	}
	if n := stub.connects.Load(); n != 1 {
		t.Errorf("tunnel connected %d times, want 1", n)
	}
	if n := stub.closes.Load(); n != 0 {
		t.Errorf("failed tunnel should not be closed, got %d", n)
	}
	d.Close() //nolint:errcheck
}

// TestSSHDialer_TunnelLost verifies dials fail fast once the tunnel drops.
func TestSSHDialer_TunnelLost(t *testing.T) {
	stub := &stubTunnel{dial: func(string, string) (net.Conn, error) {
		t.Fatal("dial must not reach a dead tunnel")
		return nil, nil
	}}
	stub.dead.Store(true)
	d := NewTunnelDialer(stub, "ops@bastion:22", util.NewLogger(0))
	defer d.Close() //nolint:errcheck

	_, err := d.Dial(context.Background(), "tcp", "10.0.0.5:23")
	if !errors.Is(err, ncerr.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}
