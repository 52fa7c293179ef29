package conn

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksauth/internal/testutil"
)

func TestWithReaderReplaysLeftover(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	b := NewBuffer(server, 0)
	g := errgroup.Group{}
	g.Go(func() error {
		_, err := client.Write([]byte("greetingpayload"))
		return err
	})

	buf := make([]byte, 8)
	if _, err := io.ReadFull(b, buf); err != nil {
		t.Fatal(err)
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	c := WithReader(server, b)
	rest := make([]byte, 7)
	if _, err := io.ReadFull(c, rest); err != nil {
		t.Fatal(err)
	}
	if string(rest) != "payload" {
		t.Fatalf("got %q", string(rest))
	}
	if c.RemoteAddr() != server.RemoteAddr() {
		t.Fatal("wrapped conn must keep the original addresses")
	}
}

func TestCopyBidirectional(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)

	var d net.Dialer
	up, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	left, right := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- CopyBidirectional(ctx, right, up) }()

	testutil.AssertEcho(t, left, left, []byte("hello"))

	_ = left.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("copy did not finish after close")
	}
}

func TestCopyBidirectionalCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	a1, a2 := net.Pipe()
	b1, b2 := net.Pipe()
	defer a1.Close()
	defer b1.Close()

	done := make(chan error, 1)
	go func() { done <- CopyBidirectional(ctx, a2, b2) }()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("copy did not stop on cancel")
	}
}

func TestListenTCPAppliesKeepAlive(t *testing.T) {
	ctx := context.Background()
	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", ListenOptions{KeepAlive: net.KeepAliveConfig{Enable: true}})
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	if _, ok := ln.(*KeepAliveListener); !ok {
		t.Fatalf("expected *KeepAliveListener, got %T", ln)
	}

	go func() {
		var d net.Dialer
		c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
		if err == nil {
			_ = c.Close()
		}
	}()

	c, err := ln.Accept()
	if err != nil {
		t.Fatal(err)
	}
	_ = c.Close()
}

func TestListenTCPReusePort(t *testing.T) {
	ctx := context.Background()
	opts := ListenOptions{ReusePort: true}

	ln, err := ListenTCP(ctx, "tcp", "127.0.0.1:0", opts)
	if !ReusePortSupported {
		if err == nil {
			_ = ln.Close()
			t.Fatal("expected error on unsupported platform")
		}
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	ln2, err := ListenTCP(ctx, "tcp", ln.Addr().String(), opts)
	if err != nil {
		t.Fatalf("second listener on same port: %v", err)
	}
	_ = ln2.Close()
}
