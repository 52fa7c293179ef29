package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/lmittmann/tint"
	"github.com/txthinking/socks5"

	"github.com/die-net/socksauth/internal/auth"
	"github.com/die-net/socksauth/internal/conn"
	"github.com/die-net/socksauth/internal/dialer"
	"github.com/die-net/socksauth/internal/testutil"
)

func testLogger(t *testing.T) *slog.Logger {
	return slog.New(tint.NewHandler(t.Output(), &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "15:04:05",
	}))
}

// startServer runs a proxy on loopback. A nil users map disables auth.
func startServer(t *testing.T, ctx context.Context, users auth.Static) net.Listener {
	t.Helper()

	cfg := Config{
		NegotiationTimeout: 2 * time.Second,
		Dialer: dialer.NewDirectDialer(dialer.Config{
			DialTimeout: 2 * time.Second,
		}),
	}
	if users != nil {
		cfg.Authenticator = users
	}

	ln, err := conn.ListenTCP(ctx, "tcp", "127.0.0.1:0", conn.ListenOptions{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	srv := NewSOCKS5Server(ctx, cfg, testLogger(t))
	go func() { _ = srv.Serve(ln) }()

	return ln
}

func TestSOCKS5ConnectDirect(t *testing.T) {
	tests := []struct {
		name  string
		users auth.Static
		user  string
		pass  string
	}{
		{name: "no_auth"},
		{name: "user_pass", users: auth.Static{"user": "pass"}, user: "user", pass: "pass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			echoLn := testutil.StartEchoTCPServer(t, ctx)

			ln := startServer(t, ctx, tt.users)

			client, err := socks5.NewClient(ln.Addr().String(), tt.user, tt.pass, 2, 0)
			if err != nil {
				t.Fatal(err)
			}

			c, err := client.Dial("tcp", echoLn.Addr().String())
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()

			testutil.AssertEcho(t, c, c, []byte("hello"))
		})
	}
}

func TestSOCKS5RejectsWrongPassword(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	ln := startServer(t, ctx, auth.Static{"user": "pass"})

	client, err := socks5.NewClient(ln.Addr().String(), "user", "wrong", 2, 0)
	if err != nil {
		t.Fatal(err)
	}

	if c, err := client.Dial("tcp", echoLn.Addr().String()); err == nil {
		_ = c.Close()
		t.Fatal("expected authentication failure")
	}
}

// Greeting, credentials, CONNECT and the first payload bytes arrive in one
// segment; the payload must reach the destination.
func TestSOCKS5PipelinedHandshake(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	ln := startServer(t, ctx, auth.Static{"bob": "pwd"})

	a, addr, port, err := socks5.ParseAddress(echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	var wire []byte
	wire = append(wire, socks5.Ver, 1, socks5.MethodUsernamePassword)
	wire = append(wire, socks5.UserPassVer, 3, 'b', 'o', 'b', 3, 'p', 'w', 'd')
	wire = append(wire, socks5.Ver, socks5.CmdConnect, 0x00, a)
	wire = append(wire, addr...)
	wire = append(wire, port...)
	wire = append(wire, "early"...)

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := c.Write(wire); err != nil {
		t.Fatal(err)
	}

	neg, err := socks5.NewNegotiationReplyFrom(c)
	if err != nil {
		t.Fatal(err)
	}
	if neg.Method != socks5.MethodUsernamePassword {
		t.Fatalf("unexpected method 0x%02x", neg.Method)
	}
	up, err := socks5.NewUserPassNegotiationReplyFrom(c)
	if err != nil {
		t.Fatal(err)
	}
	if up.Status != socks5.UserPassStatusSuccess {
		t.Fatalf("unexpected userpass status 0x%02x", up.Status)
	}
	rep, err := socks5.NewReplyFrom(c)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Rep != socks5.RepSuccess {
		t.Fatalf("unexpected reply 0x%02x", rep.Rep)
	}

	buf := make([]byte, len("early"))
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "early" {
		t.Fatalf("expected pipelined payload to be echoed, got %q", buf)
	}
}

func TestSOCKS5UnsupportedSubnegotiationVersion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln := startServer(t, ctx, auth.Static{"bob": "pwd"})

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := c.Write([]byte{socks5.Ver, 1, socks5.MethodUsernamePassword, 0x00, 3, 'b', 'o', 'b', 3, 'p', 'w', 'd'}); err != nil {
		t.Fatal(err)
	}
	if _, err := socks5.NewNegotiationReplyFrom(c); err != nil {
		t.Fatal(err)
	}
	up, err := socks5.NewUserPassNegotiationReplyFrom(c)
	if err != nil {
		t.Fatal(err)
	}
	if up.Status != socks5.UserPassStatusFailure {
		t.Fatalf("expected failure status, got 0x%02x", up.Status)
	}

	// The server hangs up instead of reading the rest.
	_, err = io.ReadAll(c)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		t.Fatal("server kept the connection open")
	}
}

func TestSOCKS5CommandNotSupported(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln := startServer(t, ctx, nil)

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := socks5.NewNegotiationRequest([]byte{socks5.MethodNone}).WriteTo(c); err != nil {
		t.Fatal(err)
	}
	if _, err := socks5.NewNegotiationReplyFrom(c); err != nil {
		t.Fatal(err)
	}
	req := socks5.NewRequest(socks5.CmdUDP, socks5.ATYPIPv4, []byte{0, 0, 0, 0}, []byte{0, 0})
	if _, err := req.WriteTo(c); err != nil {
		t.Fatal(err)
	}
	rep, err := socks5.NewReplyFrom(c)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Rep != socks5.RepCommandNotSupported {
		t.Fatalf("expected command not supported, got 0x%02x", rep.Rep)
	}
}
