// Package socks5 provides the SOCKS5 handshake used by socksauth.
//
// Method negotiation, requests and replies are built on the low-level
// protocol types in github.com/txthinking/socks5. The server side reads the
// whole handshake through a conn.Buffer so that the username/password
// sub-negotiation can be decoded incrementally by package userpass, however
// the client's bytes are split or coalesced on the wire.
//
// This package is not intended to be a full SOCKS5 server/client
// implementation; CONNECT is the only command.
package socks5
