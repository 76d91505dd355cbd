package feed

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// ZMQSink republishes the frame stream on a ZeroMQ PUB socket with the
// one-byte type tag as the topic frame, so consumers can subscribe to
// individual message types. Socket use is serialized by the Registry's
// broadcast lock.
type ZMQSink struct {
	sock     *zmq.Socket
	endpoint string
}

// NewZMQSink binds a PUB socket at the given endpoint.
func NewZMQSink(endpoint string) (*ZMQSink, error) {
	sock, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("feed: zmq socket: %w", err)
	}
	if err := sock.Bind(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("feed: zmq bind %s: %w", endpoint, err)
	}
	return &ZMQSink{sock: sock, endpoint: endpoint}, nil
}

// Write publishes one frame as [typeTag][frame].
func (s *ZMQSink) Write(p []byte) (int, error) {
	if _, err := s.sock.SendBytes(p[:1], zmq.SNDMORE); err != nil {
		return 0, err
	}
	return s.sock.SendBytes(p, 0)
}

// Close closes the socket.
func (s *ZMQSink) Close() error {
	return s.sock.Close()
}

// SetWriteDeadline is a no-op: PUB sockets drop instead of blocking.
func (s *ZMQSink) SetWriteDeadline(time.Time) error { return nil }

// RemoteAddr identifies the sink in logs.
func (s *ZMQSink) RemoteAddr() string { return s.endpoint }
