package testutil

import "io"

// ChunkReader returns at most one chunk per Read call, in order, then io.EOF.
// It simulates a transport that splits or coalesces writes arbitrarily.
type ChunkReader struct {
	chunks [][]byte
}

// NewChunkReader splits data at the given sizes. Bytes left after the last
// size form a final chunk.
func NewChunkReader(data []byte, sizes ...int) *ChunkReader {
	cr := &ChunkReader{}
	for _, n := range sizes {
		if n > len(data) {
			n = len(data)
		}
		if n <= 0 {
			continue
		}
		cr.chunks = append(cr.chunks, data[:n])
		data = data[n:]
	}
	if len(data) > 0 {
		cr.chunks = append(cr.chunks, data)
	}
	return cr
}

// ByteChunks splits data into single-byte chunks.
func ByteChunks(data []byte) *ChunkReader {
	sizes := make([]int, len(data))
	for i := range sizes {
		sizes[i] = 1
	}
	return NewChunkReader(data, sizes...)
}

// Remaining reports how many chunks have not been read.
func (cr *ChunkReader) Remaining() int {
	return len(cr.chunks)
}

func (cr *ChunkReader) Read(p []byte) (int, error) {
	if len(cr.chunks) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := copy(p, cr.chunks[0])
	if n == len(cr.chunks[0]) {
		cr.chunks = cr.chunks[1:]
	} else {
		cr.chunks[0] = cr.chunks[0][n:]
	}
	return n, nil
}
