package conn

import (
	"context"
	"fmt"
	"net"
)

// ListenOptions controls sockets opened by ListenTCP.
type ListenOptions struct {
	// KeepAlive is applied to every accepted *net.TCPConn.
	KeepAlive net.KeepAliveConfig

	// ReusePort sets SO_REUSEPORT so several processes can share the address.
	ReusePort bool
}

// ListenTCP listens on the given network/address and returns a net.Listener
// that applies opts.KeepAlive to accepted TCP connections.
func ListenTCP(ctx context.Context, network, addr string, opts ListenOptions) (net.Listener, error) {
	lc := net.ListenConfig{}
	if opts.ReusePort {
		lc.Control = reusePortControl
	}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	return &KeepAliveListener{Listener: ln, KeepAliveConfig: opts.KeepAlive}, nil
}

// KeepAliveListener wraps a net.Listener and applies KeepAliveConfig to any
// accepted *net.TCPConn.
type KeepAliveListener struct {
	net.Listener
	net.KeepAliveConfig
}

// Accept accepts the next connection and applies KeepAliveConfig if the
// connection is a *net.TCPConn.
func (l *KeepAliveListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(l.KeepAliveConfig)
	}

	return c, nil
}
