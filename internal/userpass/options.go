package userpass

type config struct {
	passwordVersion SubnegotiationVersion
}

// Option configures a Decoder.
type Option func(*config)

// WithPasswordVersion sets the version byte that selects the password path.
// Any other first byte ends decoding with StatusUnsupported.
//
// Default: VersionPassword (0x02). SOCKS5 servers talking to RFC 1929
// clients use the wire value 0x01.
func WithPasswordVersion(v SubnegotiationVersion) Option {
	return func(c *config) {
		c.passwordVersion = v
	}
}
