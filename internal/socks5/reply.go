package socks5

import (
	"errors"
	"fmt"
	"io"
	"net"

	txsocks5 "github.com/txthinking/socks5"
)

const (
	// CmdConnect is the SOCKS5 CONNECT command value.
	CmdConnect = txsocks5.CmdConnect
)

var (
	ErrNoAcceptableMethods    = errors.New("socks5: no acceptable authentication methods")
	ErrUnsupportedAuthVersion = errors.New("socks5: unsupported username/password version")
	ErrAuthFailed             = errors.New("socks5: authentication failed")
)

// Auth configures optional username/password authentication for the client
// side of SOCKS5 negotiation.
type Auth struct {
	Username string
	Password string
}

// WriteCommandNotSupportedReply writes a SOCKS5 reply indicating that the
// requested command is not supported.
func WriteCommandNotSupportedReply(w io.Writer, atyp byte) error {
	_, err := newZeroAddrReply(txsocks5.RepCommandNotSupported, atyp).WriteTo(w)
	return err
}

// WriteConnectionRefusedReply writes a SOCKS5 reply indicating that the
// destination connection was refused.
func WriteConnectionRefusedReply(w io.Writer, atyp byte) error {
	_, err := newZeroAddrReply(txsocks5.RepConnectionRefused, atyp).WriteTo(w)
	return err
}

// WriteSuccessReply writes a SOCKS5 success reply using localAddr as the bound
// address.
func WriteSuccessReply(w io.Writer, localAddr net.Addr) error {
	a, addr, port, err := txsocks5.ParseAddress(localAddr.String())
	if err != nil {
		return fmt.Errorf("parse local address %q: %w", localAddr.String(), err)
	}
	if a == txsocks5.ATYPDomain {
		addr = addr[1:]
	}
	if _, err := txsocks5.NewReply(txsocks5.RepSuccess, a, addr, port).WriteTo(w); err != nil {
		return fmt.Errorf("success reply: %w", err)
	}
	return nil
}

func newZeroAddrReply(rep, atyp byte) *txsocks5.Reply {
	if atyp == txsocks5.ATYPIPv6 {
		return txsocks5.NewReply(rep, txsocks5.ATYPIPv6, []byte(net.IPv6zero), []byte{0x00, 0x00})
	}
	return txsocks5.NewReply(rep, txsocks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00})
}

func writeNoAcceptableMethods(w io.Writer) {
	_, _ = txsocks5.NewNegotiationReply(txsocks5.MethodUnsupportAll).WriteTo(w)
}

func writeUserPassStatus(w io.Writer, status byte) error {
	_, err := txsocks5.NewUserPassNegotiationReply(status).WriteTo(w)
	return err
}
