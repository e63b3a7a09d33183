package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	ncerr "hivechat/internal/errors"
)

// TestTCPDialer_Connect verifies that TCPDialer can reach a local
// TCP server and exchange data.
func TestTCPDialer_Connect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	// Server: accept, send greeting, close.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("hello from server\r")) //nolint:errcheck
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp4", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("read: %v", err)
	}
	if got := string(buf[:n]); got != "hello from server\r" {
		t.Errorf("got %q, want %q", got, "hello from server\r")
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
	var ne *ncerr.NetworkError
	if !ncerr.As(err, &ne) || ne.Op != "dial" {
		t.Errorf("error %v should be a dial NetworkError", err)
	}
}

// TestTCPDialer_Close verifies Close is a no-op and returns nil.
func TestTCPDialer_Close(t *testing.T) {
	d := &TCPDialer{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestTCPListener_AcceptsDial verifies the listener/dialer pair meet.
func TestTCPListener_AcceptsDial(t *testing.T) {
	ln, err := TCPListener{}.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp4", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case c, ok := <-accepted:
		if !ok {
			t.Fatal("accept failed")
		}
		c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for accept")
	}
}

// TestTCPListener_PortInUse verifies a bind conflict is a setup error.
func TestTCPListener_PortInUse(t *testing.T) {
	first, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()

	_, err = TCPListener{}.Listen(context.Background(), "tcp4", first.Addr().String())
	if err == nil {
		t.Fatal("expected bind error")
	}
	if !ncerr.IsSetup(err) {
		t.Errorf("error %v should be a setup error", err)
	}
}
