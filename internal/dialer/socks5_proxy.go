package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/die-net/socksauth/internal/socks5"
)

// SOCKS5ProxyDialer reaches destinations through an upstream SOCKS5 proxy.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	auth      socks5.Auth
	d         net.Dialer
}

func NewSOCKS5ProxyDialer(cfg Config, proxyAddr, user, pass string) *SOCKS5ProxyDialer {
	return &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		auth:      socks5.Auth{Username: user, Password: pass},
		d:         net.Dialer{Timeout: cfg.DialTimeout, KeepAliveConfig: cfg.KeepAlive},
	}
}

func (f *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" && network != "tcp4" && network != "tcp6" {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	c, err := f.d.DialContext(ctx, "tcp", f.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", f.proxyAddr, err)
	}

	if f.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(f.cfg.NegotiationTimeout))
	}
	// Unblock the handshake if ctx is canceled while it is in progress.
	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Unix(1, 0))
	})

	err = socks5.ClientDial(c, f.auth, address)
	if !stop() {
		err = errors.Join(err, ctx.Err())
	}
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s %s: %w", network, address, err)
	}

	_ = c.SetDeadline(time.Time{})
	return c, nil
}
