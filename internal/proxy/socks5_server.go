package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/die-net/socksauth/internal/conn"
	"github.com/die-net/socksauth/internal/socks5"
)

type SOCKS5Server struct {
	ctx    context.Context
	cfg    Config
	logger *slog.Logger
}

func NewSOCKS5Server(ctx context.Context, cfg Config, logger *slog.Logger) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SOCKS5Server{ctx: ctx, cfg: cfg, logger: logger}
}

// Serve accepts connections on ln until it is closed.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) && s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.serveConn(c)
	}
}

func (s *SOCKS5Server) serveConn(c net.Conn) {
	logger := s.logger.With("conn", uuid.NewString(), "remote", c.RemoteAddr().String())
	start := time.Now()

	err := s.handle(c, logger)
	switch {
	case err == nil:
		logger.Debug("socks5 connection closed", "duration", time.Since(start))
	case errors.Is(err, io.EOF):
		logger.Debug("socks5 client went away", "error", err)
	case errors.Is(err, socks5.ErrAuthFailed), errors.Is(err, socks5.ErrUnsupportedAuthVersion):
		logger.Warn("socks5 authentication rejected", "error", err)
	default:
		logger.Debug("socks5 connection error", "error", err)
	}
}

func (s *SOCKS5Server) handle(c net.Conn, logger *slog.Logger) error {
	defer c.Close()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if s.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	src := conn.NewBuffer(c, 0)

	user, err := socks5.ServerNegotiate(ctx, c, src, s.cfg.Authenticator)
	if err != nil {
		return err
	}
	if user != "" {
		logger = logger.With("user", user)
	}

	req, err := socks5.ServerReadRequest(src)
	if err != nil {
		return err
	}
	if req.Cmd != socks5.CmdConnect {
		_ = socks5.WriteCommandNotSupportedReply(c, req.Atyp)
		return fmt.Errorf("unsupported command: %d", req.Cmd)
	}

	dst := req.Address()
	up, err := s.cfg.Dialer.DialContext(ctx, "tcp", dst)
	if err != nil {
		_ = socks5.WriteConnectionRefusedReply(c, req.Atyp)
		return err
	}
	defer up.Close()

	if err := socks5.WriteSuccessReply(c, up.LocalAddr()); err != nil {
		return err
	}

	_ = c.SetDeadline(time.Time{})
	logger.Info("socks5 connect", "dst", dst)

	// Bytes the client pipelined behind its request are still in src.
	if err := conn.CopyBidirectional(ctx, conn.WithReader(c, src), up); err != nil {
		return fmt.Errorf("relay %s: %w", dst, err)
	}
	return nil
}
