// Package userpass decodes the SOCKS5 username/password sub-negotiation
// (RFC 1929) incrementally.
//
// The wire layout is:
//
//	VER(1) ULEN(1) UNAME(ULEN) PLEN(1) PASSWD(PLEN)
//
// A [Decoder] is fed whatever bytes have arrived so far. It commits input
// only at field boundaries (the version byte, a complete username, a complete
// password), so a message split across any number of reads decodes exactly
// as if it had arrived whole. A version byte other than the password version
// ends decoding after that single byte with [StatusUnsupported].
//
// [ReadRequest] drives a Decoder against a [Source], the buffered byte stream
// of a connection. Once it returns, the decoder is done with the connection
// and any bytes that followed the message are still in the Source for the
// next handshake phase.
//
// The decoder does not check credentials.
package userpass
