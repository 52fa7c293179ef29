package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
)

// Authenticator checks a username/password pair. Implementations return
// ErrInvalidCredentials (possibly wrapped) for a bad pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// Chain tries each Authenticator in order and succeeds on the first success.
// A non-credential error from one store is remembered and returned if no
// later store accepts the pair.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, username, password string) error {
	var firstErr error
	for _, a := range c {
		err := a.Authenticate(ctx, username, password)
		if err == nil {
			return nil
		}
		if firstErr == nil && !errors.Is(err, ErrInvalidCredentials) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return firstErr
	}
	return ErrInvalidCredentials
}
