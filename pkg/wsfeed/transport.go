package wsfeed

import "time"

// Transport adapts the server to the subscriber registry's transport
// contract: every registry broadcast fans out to all WebSocket clients
// through one slot.
type Transport struct {
	s *Server
}

// Transport returns the registry-facing side of the mirror.
func (s *Server) Transport() *Transport {
	return &Transport{s: s}
}

// Write enqueues the frame to every client. Individual slow clients are
// dropped inside Broadcast, so the slot itself never fails.
func (t *Transport) Write(p []byte) (int, error) {
	t.s.Broadcast(p)
	return len(p), nil
}

// Close tears the mirror down with the registry.
func (t *Transport) Close() error {
	t.s.Shutdown()
	return nil
}

// SetWriteDeadline is a no-op: enqueueing never blocks.
func (t *Transport) SetWriteDeadline(time.Time) error { return nil }

// RemoteAddr identifies the mirror in logs.
func (t *Transport) RemoteAddr() string {
	if addr, ok := t.s.addr.Load().(string); ok {
		return "ws://" + addr + "/ws"
	}
	return "ws://(not started)"
}
