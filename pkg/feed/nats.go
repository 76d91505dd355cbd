package feed

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes every broadcast frame to a NATS subject. It plugs
// into the Registry as an ordinary Transport, so a broker outage is
// handled exactly like a dropped TCP subscriber.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to a NATS server and returns a sink bound to the
// given subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	nc, err := nats.Connect(url, nats.Name("replay-feed"))
	if err != nil {
		return nil, fmt.Errorf("feed: nats connect %s: %w", url, err)
	}
	return &NATSSink{conn: nc, subject: subject}, nil
}

// Write publishes one frame. The client copies the payload, so the
// borrowed frame bytes are safe to reuse after return.
func (s *NATSSink) Write(p []byte) (int, error) {
	if err := s.conn.Publish(s.subject, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close drains and closes the connection.
func (s *NATSSink) Close() error {
	s.conn.Close()
	return nil
}

// SetWriteDeadline is a no-op: publishes are buffered client-side and
// never block the broadcast loop.
func (s *NATSSink) SetWriteDeadline(time.Time) error { return nil }

// RemoteAddr identifies the sink in logs.
func (s *NATSSink) RemoteAddr() string {
	return fmt.Sprintf("nats://%s/%s", s.conn.ConnectedAddr(), s.subject)
}
