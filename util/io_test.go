package util

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestCloseOnDone(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Server: accept and never write.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn) //nolint:errcheck
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	CloseOnDone(ctx, conn)

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := conn.Read(buf)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		if !IsClosed(err) {
			t.Errorf("read error = %v, want a closed-connection error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read was not unblocked by cancellation")
	}
}

func TestCloseOnDone_Stop(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stop := CloseOnDone(ctx, a)
	if !stop() {
		t.Fatal("stop should report the watcher was detached")
	}
	cancel()

	// a must still be usable after cancel because the watcher was stopped.
	go b.Read(make([]byte, 1)) //nolint:errcheck
	if _, err := a.Write([]byte("x")); err != nil {
		t.Errorf("write after stop: %v", err)
	}
	a.Close()
}

func TestIsClosed(t *testing.T) {
	if !IsClosed(nil) {
		t.Error("nil should count as closed")
	}
	if !IsClosed(io.EOF) {
		t.Error("io.EOF should count as closed")
	}
	if !IsClosed(net.ErrClosed) {
		t.Error("net.ErrClosed should count as closed")
	}
	if IsClosed(io.ErrUnexpectedEOF) {
		t.Error("ErrUnexpectedEOF should NOT count as closed")
	}
	if IsClosed(errors.New("boom")) {
		t.Error("plain error should NOT count as closed")
	}
}
