package userpass

import (
	"errors"
	"fmt"
	"io"
)

// Source is a buffered byte stream that can hand back unconsumed bytes.
//
// Bytes returns everything buffered and not yet discarded. Discard drops n
// bytes from the front. Fill appends at least one more byte or returns an
// error.
type Source interface {
	Bytes() []byte
	Discard(n int)
	Fill() error
}

// ReadRequest decodes one sub-negotiation message from src. Bytes after the
// message are left in src.
//
// If src runs dry mid-message the error wraps io.ErrUnexpectedEOF; a clean
// io.EOF is only returned when nothing at all had arrived.
func ReadRequest(src Source, opts ...Option) (Result, error) {
	d := NewDecoder(opts...)
	started := false

	for {
		buf := src.Bytes()
		if len(buf) > 0 {
			started = true
		}

		n, res := d.Feed(buf)
		src.Discard(n)
		if res.Done() {
			return res, nil
		}

		if err := src.Fill(); err != nil {
			if errors.Is(err, io.EOF) {
				if !started {
					return Result{}, io.EOF
				}
				err = io.ErrUnexpectedEOF
			}
			return Result{}, fmt.Errorf("userpass %s: %w", d.State(), err)
		}
	}
}
