package wsfeed

import (
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	level, _ := log.ToLevel("error")
	return log.NewTestLogger(level)
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(testLogger())
	go s.Serve(ln)
	t.Cleanup(s.Shutdown)
	return s, ln.Addr().String()
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerBroadcastsBinaryFrames(t *testing.T) {
	s, addr := startServer(t)

	c1 := dial(t, addr)
	c2 := dial(t, addr)

	// Wait for both registrations.
	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 2, s.ClientCount())

	frame := []byte{'S', 0, 1, 0, 2, 0, 0, 0, 0, 0, 1, 'O'}
	s.Transport().Write(frame)

	for i, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		kind, payload, err := conn.ReadMessage()
		require.NoError(t, err, "client %d", i)
		assert.Equal(t, websocket.BinaryMessage, kind, "client %d", i)
		assert.Equal(t, frame, payload, "client %d", i)
	}
}

func TestServerSurvivesClientDisconnect(t *testing.T) {
	s, addr := startServer(t)

	c1 := dial(t, addr)
	c2 := dial(t, addr)

	deadline := time.Now().Add(2 * time.Second)
	for s.ClientCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	c1.Close()
	for s.ClientCount() > 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	frame := []byte{'D', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	s.Transport().Write(frame)

	c2.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := c2.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, frame, payload)
}

func TestTransportNeverFailsTheSlot(t *testing.T) {
	s, _ := startServer(t)

	// No clients connected: writes succeed and go nowhere.
	n, err := s.Transport().Write([]byte{'S'})
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
