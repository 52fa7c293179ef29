// Package dialer provides outbound dialing implementations used by socksauth.
//
// Dialers implement a small interface (DialContext) and are used by the proxy
// listener to establish outbound connections either directly or through an
// upstream SOCKS5 proxy, optionally authenticating to it.
package dialer
