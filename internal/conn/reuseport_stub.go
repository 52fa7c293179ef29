//go:build !linux

package conn

import (
	"errors"
	"syscall"
)

// ReusePortSupported reports whether ListenOptions.ReusePort works here.
const ReusePortSupported = false

func reusePortControl(_, _ string, _ syscall.RawConn) error {
	return errors.New("SO_REUSEPORT is only supported on linux")
}
