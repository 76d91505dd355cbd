package feed

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestAcceptorRegistersConnections(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	reg := NewRegistry(4, time.Second, testLogger(), nil)
	acc := NewAcceptor(ln, reg, testLogger())
	acc.Start()
	defer acc.Stop()

	var conns []net.Conn
	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	waitFor(t, func() bool { return reg.Active() == 3 })
}

func TestAcceptorRejectsBeyondCapacity(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	reg := NewRegistry(1, time.Second, testLogger(), nil)
	acc := NewAcceptor(ln, reg, testLogger())
	acc.Start()
	defer acc.Stop()

	first, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer first.Close()
	waitFor(t, func() bool { return reg.Active() == 1 })

	// The second connection is accepted then closed by the registry.
	second, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err = second.Read(buf)
	assert.Error(t, err, "rejected connection should be closed by the server")
	assert.Equal(t, 1, reg.Active())
}

func TestAcceptorStopEndsLoop(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	reg := NewRegistry(4, time.Second, testLogger(), nil)
	acc := NewAcceptor(ln, reg, testLogger())
	acc.Start()

	done := make(chan struct{})
	go func() {
		acc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acceptor did not stop")
	}

	_, err = net.Dial("tcp", ln.Addr().String())
	assert.Error(t, err)
}
