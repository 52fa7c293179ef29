package proxy

import (
	"time"

	"github.com/die-net/socksauth/internal/auth"
	"github.com/die-net/socksauth/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds the handshake up to the CONNECT reply.
	NegotiationTimeout time.Duration

	Dialer dialer.Dialer

	// Authenticator, when non-nil, makes username/password mandatory.
	Authenticator auth.Authenticator
}
