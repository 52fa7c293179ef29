package conn

import (
	"io"
	"net"
)

type readerConn struct {
	net.Conn
	r io.Reader
}

func (c *readerConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// WithReader returns a net.Conn that reads from r and otherwise behaves like
// c. It is used to replay bytes a handshake buffered but did not consume.
func WithReader(c net.Conn, r io.Reader) net.Conn {
	return &readerConn{Conn: c, r: r}
}
