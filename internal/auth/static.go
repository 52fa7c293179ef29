package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

// Static holds plaintext username/password pairs.
type Static map[string]string

// ParseUserSpec splits a "name:password" flag value. The password may be
// empty and may itself contain colons; the name may not be empty.
func ParseUserSpec(spec string) (string, string, error) {
	name, pass, ok := strings.Cut(spec, ":")
	if !ok {
		return "", "", errors.New("expected name:password")
	}
	if name == "" {
		return "", "", errors.New("empty user name")
	}
	if len(name) > 255 || len(pass) > 255 {
		return "", "", errors.New("user name and password are limited to 255 bytes")
	}
	return name, pass, nil
}

// NewStatic builds a Static from "name:password" specs.
func NewStatic(specs []string) (Static, error) {
	s := make(Static, len(specs))
	for _, spec := range specs {
		name, pass, err := ParseUserSpec(spec)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", name, err)
		}
		s[name] = pass
	}
	return s, nil
}

func (s Static) Authenticate(_ context.Context, username, password string) error {
	want, ok := s[username]
	if !ok {
		return ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(password)) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}
