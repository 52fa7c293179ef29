// Package conn holds connection plumbing shared by the proxy listener and the
// SOCKS5 handshake: keepalive listeners, a cumulation buffer that lets
// incremental decoders hand back unconsumed bytes, and bidirectional copy.
package conn
