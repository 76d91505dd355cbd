package replay

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/replay/pkg/feed"
	"github.com/luxfi/replay/pkg/itch"
)

func testLogger() log.Logger {
	level, _ := log.ToLevel("error")
	return log.NewTestLogger(level)
}

// threeFrames is the canonical test feed: two frames at the same
// timestamp followed by one 50ms later. 12+36+19 = 67 bytes.
func threeFrames() [][]byte {
	return [][]byte{
		itch.SystemEvent{Header: itch.Header{Timestamp: 1000}, EventCode: 'O'}.Encode(),
		itch.AddOrder{
			Header:   itch.Header{Timestamp: 1000},
			OrderRef: 1, Side: 'B', Shares: 100, Stock: "AAPL",
		}.Encode(),
		itch.OrderDelete{Header: itch.Header{Timestamp: 51000000}, OrderRef: 1}.Encode(),
	}
}

func writeFeed(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// recordingTransport captures every write with its arrival time.
type recordingTransport struct {
	mu     sync.Mutex
	writes [][]byte
	times  []time.Time
	fail   bool
}

func (r *recordingTransport) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return 0, io.ErrClosedPipe
	}
	r.writes = append(r.writes, bytes.Clone(p))
	r.times = append(r.times, time.Now())
	return len(p), nil
}

func (r *recordingTransport) Close() error                     { return nil }
func (r *recordingTransport) SetWriteDeadline(time.Time) error { return nil }
func (r *recordingTransport) RemoteAddr() string               { return "test:0" }

func (r *recordingTransport) snapshot() ([][]byte, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.writes...), append([]time.Time(nil), r.times...)
}

func newTestRegistry(t *testing.T, subs ...feed.Transport) *feed.Registry {
	t.Helper()
	reg := feed.NewRegistry(8, time.Second, testLogger(), nil)
	for _, s := range subs {
		_, err := reg.Register(s)
		require.NoError(t, err)
	}
	return reg
}

func TestEngineEndToEndPacing(t *testing.T) {
	frames := threeFrames()
	path := writeFeed(t, "feed.itch", bytes.Join(frames, nil))

	sub := &recordingTransport{}
	eng := New(Config{SourcePath: path, Speed: 1.0},
		newTestRegistry(t, sub), nil, testLogger(), nil)

	sess, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(3), sess.MessagesSent)
	assert.Equal(t, uint64(67), sess.BytesSent)
	assert.False(t, sess.Truncated)
	assert.Equal(t, uint64(51000000), sess.LastTimestamp)
	assert.Equal(t, StateClosed, eng.State())

	writes, times := sub.snapshot()
	require.Len(t, writes, 3)
	for i := range frames {
		assert.Equal(t, frames[i], writes[i], "frame %d", i)
	}

	// Equal timestamps arrive back to back; the third waits ~50ms.
	assert.Less(t, times[1].Sub(times[0]), 25*time.Millisecond)
	gap := times[2].Sub(times[1])
	assert.GreaterOrEqual(t, gap, 40*time.Millisecond, "gap was %v", gap)
	assert.Less(t, gap, 500*time.Millisecond, "gap was %v", gap)
}

func TestEngineTruncatedTail(t *testing.T) {
	frames := threeFrames()
	// One complete frame then 5 bytes of a 12-byte 'S' frame.
	data := append(bytes.Clone(frames[1]), frames[0][:5]...)
	path := writeFeed(t, "feed.itch", data)

	sub := &recordingTransport{}
	eng := New(Config{SourcePath: path, Speed: 0},
		newTestRegistry(t, sub), nil, testLogger(), nil)

	sess, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, sess.Truncated)
	assert.Equal(t, uint64(1), sess.MessagesSent)
	writes, _ := sub.snapshot()
	assert.Len(t, writes, 1)
}

func TestEngineUnknownTagResync(t *testing.T) {
	frames := threeFrames()
	data := append(bytes.Clone(frames[0]), 0xEE)
	data = append(data, frames[2]...)
	path := writeFeed(t, "feed.itch", data)

	sub := &recordingTransport{}
	eng := New(Config{SourcePath: path, Speed: 0},
		newTestRegistry(t, sub), nil, testLogger(), nil)

	sess, err := eng.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), sess.MessagesSent)
	assert.Equal(t, uint64(1), sess.UnknownTags)
	assert.False(t, sess.Truncated)
}

func TestEngineGzipSource(t *testing.T) {
	frames := threeFrames()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(bytes.Join(frames, nil))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	path := writeFeed(t, "feed.itch.gz", buf.Bytes())

	sub := &recordingTransport{}
	eng := New(Config{SourcePath: path, Speed: 0},
		newTestRegistry(t, sub), nil, testLogger(), nil)

	sess, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sess.MessagesSent)
	assert.Equal(t, uint64(67), sess.BytesSent)
}

func TestEngineSourceOpenFailure(t *testing.T) {
	eng := New(Config{SourcePath: filepath.Join(t.TempDir(), "absent"), Speed: 1},
		newTestRegistry(t), nil, testLogger(), nil)

	_, err := eng.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateClosed, eng.State())
}

func TestEngineSubscriberFailureIsIsolated(t *testing.T) {
	frames := threeFrames()
	path := writeFeed(t, "feed.itch", bytes.Join(frames, nil))

	bad := &recordingTransport{fail: true}
	good := &recordingTransport{}
	eng := New(Config{SourcePath: path, Speed: 0},
		newTestRegistry(t, bad, good), nil, testLogger(), nil)

	sess, err := eng.Run(context.Background())
	require.NoError(t, err)

	// The session is unaffected by the failing subscriber.
	assert.Equal(t, uint64(3), sess.MessagesSent)
	writes, _ := good.snapshot()
	assert.Len(t, writes, 3)
}

func TestEngineCancelDuringPacingSleep(t *testing.T) {
	// Two frames 10s apart: the capped 1s wait must still be
	// interruptible well before it elapses.
	data := append(
		itch.SystemEvent{Header: itch.Header{Timestamp: 1000}, EventCode: 'O'}.Encode(),
		itch.SystemEvent{Header: itch.Header{Timestamp: 10_000_001_000}, EventCode: 'C'}.Encode()...)
	path := writeFeed(t, "feed.itch", data)

	sub := &recordingTransport{}
	eng := New(Config{SourcePath: path, Speed: 1.0},
		newTestRegistry(t, sub), nil, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	sess, err := eng.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), sess.MessagesSent)
	assert.Less(t, time.Since(start), 800*time.Millisecond)
}

func TestEngineOverTCP(t *testing.T) {
	frames := threeFrames()
	path := writeFeed(t, "feed.itch", bytes.Join(frames, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := testLogger()
	reg := feed.NewRegistry(feed.DefaultSlots, time.Second, logger, nil)
	acc := feed.NewAcceptor(ln, reg, logger)
	acc.Start()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the acceptor to register the subscriber before replay
	// starts, mirroring the server's startup grace period.
	deadline := time.Now().Add(2 * time.Second)
	for reg.Active() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, reg.Active())

	eng := New(Config{SourcePath: path, Speed: 1.0}, reg, acc, logger, nil)

	type result struct {
		sess Session
		err  error
	}
	done := make(chan result, 1)
	go func() {
		sess, runErr := eng.Run(context.Background())
		done <- result{sess, runErr}
	}()

	// The engine shuts the registry down after draining, so the client
	// reads until EOF.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	received, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, bytes.Join(frames, nil), received)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, uint64(3), res.sess.MessagesSent)
	assert.Equal(t, uint64(67), res.sess.BytesSent)
}
