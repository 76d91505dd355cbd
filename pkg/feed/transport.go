// Package feed fans the replayed frame stream out to subscribers: a
// fixed-slot registry of transports, a TCP acceptor that fills it, and
// publish sinks (NATS, ZeroMQ) that plug into the same registry.
package feed

import (
	"net"
	"time"
)

// Transport is one subscriber endpoint. Writes must honor the deadline
// so a stalled subscriber cannot throttle the shared broadcast cadence.
type Transport interface {
	Write(p []byte) (int, error)
	Close() error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() string
}

// connTransport adapts a net.Conn.
type connTransport struct {
	net.Conn
}

// NewConnTransport wraps an accepted connection as a Transport.
func NewConnTransport(c net.Conn) Transport {
	return connTransport{Conn: c}
}

func (c connTransport) RemoteAddr() string {
	return c.Conn.RemoteAddr().String()
}
