package socks5

import (
	"context"
	"errors"
	"fmt"
	"io"

	txsocks5 "github.com/txthinking/socks5"

	"github.com/die-net/socksauth/internal/auth"
	"github.com/die-net/socksauth/internal/conn"
	"github.com/die-net/socksauth/internal/userpass"
)

// ServerNegotiate performs the server side of method selection and, when a is
// non-nil, the username/password sub-negotiation. All reads go through src so
// bytes the client sent ahead stay available for ServerReadRequest. It
// returns the authenticated username, or "" without authentication.
func ServerNegotiate(ctx context.Context, w io.Writer, src *conn.Buffer, a auth.Authenticator) (string, error) {
	neg, err := txsocks5.NewNegotiationRequestFrom(src)
	if err != nil {
		return "", fmt.Errorf("negotiation request: %w", err)
	}

	if a == nil {
		if !containsMethod(neg.Methods, txsocks5.MethodNone) {
			writeNoAcceptableMethods(w)
			return "", fmt.Errorf("client does not support no-auth: %w", ErrNoAcceptableMethods)
		}
		if _, err := txsocks5.NewNegotiationReply(txsocks5.MethodNone).WriteTo(w); err != nil {
			return "", fmt.Errorf("negotiation reply: %w", err)
		}
		return "", nil
	}

	if !containsMethod(neg.Methods, txsocks5.MethodUsernamePassword) {
		writeNoAcceptableMethods(w)
		return "", fmt.Errorf("client does not support username/password: %w", ErrNoAcceptableMethods)
	}
	if _, err := txsocks5.NewNegotiationReply(txsocks5.MethodUsernamePassword).WriteTo(w); err != nil {
		return "", fmt.Errorf("negotiation reply: %w", err)
	}

	req, err := ServerReadUserPass(src)
	if err != nil {
		if errors.Is(err, ErrUnsupportedAuthVersion) {
			_ = writeUserPassStatus(w, txsocks5.UserPassStatusFailure)
		}
		return "", err
	}

	if err := a.Authenticate(ctx, req.Username, req.Password); err != nil {
		_ = writeUserPassStatus(w, txsocks5.UserPassStatusFailure)
		return req.Username, fmt.Errorf("%w for %q: %w", ErrAuthFailed, req.Username, err)
	}
	if err := writeUserPassStatus(w, txsocks5.UserPassStatusSuccess); err != nil {
		return req.Username, fmt.Errorf("write userpass: %w", err)
	}
	return req.Username, nil
}

// ServerReadUserPass decodes one RFC 1929 request from src. A version byte
// other than 0x01 consumes only that byte and yields ErrUnsupportedAuthVersion.
func ServerReadUserPass(src userpass.Source) (userpass.Request, error) {
	res, err := userpass.ReadRequest(src, userpass.WithPasswordVersion(userpass.SubnegotiationVersion(txsocks5.UserPassVer)))
	if err != nil {
		return userpass.Request{}, fmt.Errorf("read userpass: %w", err)
	}
	if res.Status == userpass.StatusUnsupported {
		return userpass.Request{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedAuthVersion, byte(res.Version))
	}
	return res.Request, nil
}

// ServerReadRequest reads the SOCKS5 request that follows negotiation.
func ServerReadRequest(r io.Reader) (*txsocks5.Request, error) {
	req, err := txsocks5.NewRequestFrom(r)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return req, nil
}

func containsMethod(methods []byte, want byte) bool {
	for _, m := range methods {
		if m == want {
			return true
		}
	}
	return false
}
