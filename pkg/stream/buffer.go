// Package stream recovers message boundaries from an undelimited binary
// feed. Frames carry no length prefix or delimiter; the only way to frame
// the stream is the per-type length lookup, and the only way to recover
// from an unrecognized tag is to discard a single byte and retry.
package stream

import "io"

// DefaultBufferSize matches the largest read unit the replay loop works
// in. It must be at least twice the largest catalogue frame so a refill
// below half capacity always leaves room for one complete frame.
const DefaultBufferSize = 64 * 1024

// Buffer is a fixed-capacity byte buffer that keeps pending bytes
// left-aligned: appends go at the tail, consumption shifts the prefix
// out. Bytes [0, Len) are always the valid unconsumed window.
type Buffer struct {
	buf  []byte
	used int
}

// NewBuffer creates a buffer with the given fixed capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, capacity)}
}

// Len returns the number of pending unconsumed bytes.
func (b *Buffer) Len() int { return b.used }

// Free returns the remaining append capacity.
func (b *Buffer) Free() int { return len(b.buf) - b.used }

// Cap returns the fixed total capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Bytes returns the pending window. The slice aliases the buffer and is
// invalidated by Discard and ReadFrom.
func (b *Buffer) Bytes() []byte { return b.buf[:b.used] }

// ReadFrom performs a single read into the free tail space and reports
// the bytes appended. A full buffer reads nothing and returns (0, nil).
func (b *Buffer) ReadFrom(r io.Reader) (int, error) {
	if b.used == len(b.buf) {
		return 0, nil
	}
	n, err := r.Read(b.buf[b.used:])
	b.used += n
	return n, err
}

// Discard removes n bytes from the front of the pending window, shifting
// the remainder left. Discarding more than Len panics: that would break
// the prefix invariant silently.
func (b *Buffer) Discard(n int) {
	if n < 0 || n > b.used {
		panic("stream: discard beyond buffered data")
	}
	copy(b.buf, b.buf[n:b.used])
	b.used -= n
}
