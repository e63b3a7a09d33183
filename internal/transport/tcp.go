package transport

import (
	"context"
	"net"
	"time"

	ncerr "hivechat/internal/errors"
)

// TCPDialer establishes plain TCP connections.
type TCPDialer struct {
	Timeout time.Duration // 0 = OS default
}

// Dial connects to address over TCP.  Failures are *errors.NetworkError
// with Op "dial".
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}

	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close is a no-op for stateless TCP dialers.
func (d *TCPDialer) Close() error { return nil }

// TCPListener binds TCP server sockets.  The address is reusable
// immediately after a previous server on the same port went away.
type TCPListener struct{}

// Listen binds and listens on address.  Failures are
// *errors.NetworkError with Op "listen".
func (TCPListener) Listen(ctx context.Context, network, address string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, network, address)
	if err != nil {
		return nil, ncerr.Wrap("listen", address, err)
	}
	return ln, nil
}
