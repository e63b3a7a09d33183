// Package transport provides the connection establishment used by the
// chat handlers: an outbound dialer for joining and a listener factory
// for hosting.  What travels over the connections is the receiver's
// business.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}

// Listener opens passive sockets that accept inbound connections.
type Listener interface {
	Listen(ctx context.Context, network, address string) (net.Listener, error)
}
