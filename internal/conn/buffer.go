package conn

import (
	"errors"
	"io"
)

// DefaultChunkSize is how much Fill asks the underlying reader for at once.
const DefaultChunkSize = 512

var errNegativeRead = errors.New("conn: reader returned negative count")

// Buffer accumulates bytes read from r until a decoder consumes them.
//
// Decoders inspect Bytes, Discard what they committed and call Fill when they
// need more. Buffer is also an io.Reader, so once a decoder is done the next
// handshake phase reads the leftover bytes before anything new from r.
type Buffer struct {
	r     io.Reader
	buf   []byte
	off   int
	chunk int
}

// NewBuffer returns a Buffer reading from r in chunks of up to chunk bytes.
// A chunk <= 0 selects DefaultChunkSize.
func NewBuffer(r io.Reader, chunk int) *Buffer {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Buffer{r: r, chunk: chunk}
}

// Bytes returns the unconsumed bytes. The slice is only valid until the next
// Fill, Discard or Read.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.off:]
}

// Buffered returns the number of unconsumed bytes.
func (b *Buffer) Buffered() int {
	return len(b.buf) - b.off
}

// Discard drops n bytes from the front of the buffer. It panics if n exceeds
// Buffered.
func (b *Buffer) Discard(n int) {
	if n < 0 || n > b.Buffered() {
		panic("conn: discard out of range")
	}
	b.off += n
	if b.off == len(b.buf) {
		b.buf = b.buf[:0]
		b.off = 0
	}
}

// Fill performs a single read from the underlying reader and appends the
// result. It returns an error only if no bytes were added.
func (b *Buffer) Fill() error {
	b.grow()

	for range 100 {
		n, err := b.r.Read(b.buf[len(b.buf):cap(b.buf)])
		if n < 0 {
			return errNegativeRead
		}
		b.buf = b.buf[:len(b.buf)+n]
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}

// Read drains buffered bytes first. Once the buffer is empty, reads at least
// a chunk long go straight to the underlying reader so a relay is not held
// to the chunk size.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.Buffered() == 0 {
		if len(p) >= b.chunk {
			n, err := b.r.Read(p)
			if n < 0 {
				return 0, errNegativeRead
			}
			return n, err
		}
		if err := b.Fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.Bytes())
	b.Discard(n)
	return n, nil
}

// grow makes room for at least one chunk after the unconsumed bytes, sliding
// them to the front before allocating.
func (b *Buffer) grow() {
	if cap(b.buf)-len(b.buf) >= b.chunk {
		return
	}
	if b.off > 0 {
		n := copy(b.buf, b.buf[b.off:])
		b.buf = b.buf[:n]
		b.off = 0
		if cap(b.buf)-len(b.buf) >= b.chunk {
			return
		}
	}
	nb := make([]byte, len(b.buf), 2*cap(b.buf)+b.chunk)
	copy(nb, b.buf)
	b.buf = nb
}
