package itch

import (
	"encoding/binary"
	"strings"
)

// Header is the common prefix of every ITCH 5.0 message.
type Header struct {
	Type           byte
	StockLocate    uint16
	TrackingNumber uint16
	Timestamp      uint64 // nanoseconds since midnight
}

// MsgType returns the message type tag.
func (h Header) MsgType() byte { return h.Type }

// Timestamp extracts the 6-byte big-endian nanoseconds-since-midnight
// timestamp at payload offset 5. Frames too short to carry the common
// header yield 0.
func Timestamp(frame []byte) uint64 {
	if len(frame) < TimestampedLength {
		return 0
	}
	return readUint48(frame[5:])
}

// ParseHeader decodes the common header. The caller guarantees the frame
// is at least TimestampedLength bytes.
func ParseHeader(frame []byte) Header {
	return Header{
		Type:           frame[0],
		StockLocate:    binary.BigEndian.Uint16(frame[1:]),
		TrackingNumber: binary.BigEndian.Uint16(frame[3:]),
		Timestamp:      readUint48(frame[5:]),
	}
}

func (h Header) appendTo(dst []byte) []byte {
	dst = append(dst, h.Type)
	dst = binary.BigEndian.AppendUint16(dst, h.StockLocate)
	dst = binary.BigEndian.AppendUint16(dst, h.TrackingNumber)
	dst = appendUint48(dst, h.Timestamp)
	return dst
}

func readUint48(b []byte) uint64 {
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
}

func appendUint48(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// alpha decodes a space-padded ASCII field.
func alpha(b []byte) string {
	return strings.TrimRight(string(b), " ")
}

// appendAlpha writes s space-padded to width bytes.
func appendAlpha(dst []byte, s string, width int) []byte {
	for i := 0; i < width; i++ {
		if i < len(s) {
			dst = append(dst, s[i])
		} else {
			dst = append(dst, ' ')
		}
	}
	return dst
}
