package stream

import (
	"errors"
	"fmt"
	"io"

	"github.com/luxfi/replay/pkg/itch"
)

// ErrShortBuffer reports that the buffered bytes do not yet hold one
// complete frame. The caller should ingest more data and retry; at end
// of source it means the stream terminated inside a frame.
var ErrShortBuffer = errors.New("stream: incomplete frame buffered")

// UnknownTypeError reports a type tag outside the catalogue. Framing is
// unrecoverable at this position; the caller resynchronizes by dropping
// exactly one byte.
type UnknownTypeError struct {
	Tag byte
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("stream: unknown message type %q (0x%02X)", e.Tag, e.Tag)
}

// Reassembler turns a chunked byte stream into complete frames using the
// catalogue's per-type lengths.
//
// A frame returned by Next aliases the internal buffer and stays valid
// until the next Fill, Next, or Resync call; it is consumed lazily so the
// bytes can be broadcast without copying, exactly once.
type Reassembler struct {
	buf     *Buffer
	pending int // length of the frame returned by the last Next
}

// NewReassembler creates a reassembler with the given buffer capacity,
// or DefaultBufferSize when size is 0.
func NewReassembler(size int) *Reassembler {
	if size == 0 {
		size = DefaultBufferSize
	}
	return &Reassembler{buf: NewBuffer(size)}
}

// Buffered returns the number of pending unconsumed bytes.
func (r *Reassembler) Buffered() int { return r.buf.Len() - r.pending }

// LowWater reports whether the buffer is below half capacity and should
// be refilled before framing continues. Refilling only below half
// guarantees free space for the largest catalogue frame.
func (r *Reassembler) LowWater() bool { return r.buf.Len() < r.buf.Cap()/2 }

// Fill consumes any outstanding frame and performs one read from src
// into the buffer's free space. It reports the bytes read; io.EOF
// surfaces unchanged.
func (r *Reassembler) Fill(src io.Reader) (int, error) {
	r.consume()
	return r.buf.ReadFrom(src)
}

// Next returns the next complete frame.
//
// It returns *UnknownTypeError when the leading tag is outside the
// catalogue (call Resync to drop one byte and retry), and ErrShortBuffer
// when the buffered bytes are shorter than the frame wants (ingest more
// and retry).
func (r *Reassembler) Next() ([]byte, error) {
	r.consume()
	if r.buf.Len() == 0 {
		return nil, ErrShortBuffer
	}
	window := r.buf.Bytes()
	tag := window[0]
	length := itch.MessageLength(tag)
	if length == 0 {
		return nil, &UnknownTypeError{Tag: tag}
	}
	if r.buf.Len() < length {
		return nil, ErrShortBuffer
	}
	r.pending = length
	return window[:length], nil
}

// Resync discards exactly one byte to regain frame alignment after an
// unknown type tag.
func (r *Reassembler) Resync() {
	r.consume()
	if r.buf.Len() > 0 {
		r.buf.Discard(1)
	}
}

func (r *Reassembler) consume() {
	if r.pending > 0 {
		r.buf.Discard(r.pending)
		r.pending = 0
	}
}
