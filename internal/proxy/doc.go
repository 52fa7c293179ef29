// Package proxy implements the socksauth SOCKS5 listener.
//
// Each accepted connection is negotiated (with username/password
// authentication when an Authenticator is configured), its CONNECT request is
// dialed through the configured Dialer, and bytes are relayed until either
// side closes.
package proxy
