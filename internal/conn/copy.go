package conn

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional copies between left and right until either side finishes
// or ctx is canceled, then closes both.
func CopyBidirectional(ctx context.Context, left, right net.Conn) error {
	g, gctx := errgroup.WithContext(ctx)

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	g.Go(func() error {
		_, err := io.Copy(left, right)
		closeBoth()
		return ignoreClosed(err)
	})

	g.Go(func() error {
		_, err := io.Copy(right, left)
		closeBoth()
		return ignoreClosed(err)
	})

	// Closing both sides is the only way to unblock Copy on cancellation.
	stop := context.AfterFunc(gctx, closeBoth)
	defer stop()

	return g.Wait()
}

// ignoreClosed drops the error the losing Copy sees after closeBoth.
func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
