package auth

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// FileStore authenticates against "user:hash" lines loaded from a file.
type FileStore struct {
	hashes map[string]string
}

// LoadFile reads a users file. Blank lines and lines starting with '#' are
// ignored.
func LoadFile(path string) (*FileStore, error) {
	f, err := os.Open(path) //nolint:gosec // Path is from user config.
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}
	defer f.Close()

	fs := &FileStore{hashes: make(map[string]string)}
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		name, hash, ok := strings.Cut(text, ":")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("%s:%d: expected user:hash", path, line)
		}
		if _, dup := fs.hashes[name]; dup {
			return nil, fmt.Errorf("%s:%d: duplicate user %q", path, line, name)
		}
		fs.hashes[name] = hash
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return fs, nil
}

// Len returns the number of users loaded.
func (fs *FileStore) Len() int {
	return len(fs.hashes)
}

func (fs *FileStore) Authenticate(_ context.Context, username, password string) error {
	hash, ok := fs.hashes[username]
	if !ok {
		verifyMiss(password)
		return ErrInvalidCredentials
	}
	match, err := verifyPassword(hash, password)
	if err != nil {
		return fmt.Errorf("user %q: %w", username, err)
	}
	if !match {
		return ErrInvalidCredentials
	}
	return nil
}
