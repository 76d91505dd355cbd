package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/replay/pkg/feed"
	"github.com/luxfi/replay/pkg/itch"
	"github.com/luxfi/replay/pkg/metrics"
	"github.com/luxfi/replay/pkg/stream"
)

// State is the engine lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateOpening
	StateStreaming
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session summarizes one replay run: counters accumulate during
// Streaming and are flushed when the run drains.
type Session struct {
	MessagesSent  uint64
	BytesSent     uint64
	UnknownTags   uint64
	LastTimestamp uint64
	Truncated     bool // source ended inside a frame
	Elapsed       time.Duration
}

// Config parameterizes one replay session.
type Config struct {
	SourcePath string
	// Speed divides historical inter-message deltas; 0 disables pacing
	// entirely. Negative values are rejected before the engine sees
	// them.
	Speed      float64
	BufferSize int
	// ProgressEvery logs a progress line every N messages (default 100k).
	ProgressEvery uint64
}

// Engine replays one source to the subscriber registry. One engine runs
// one session; there is no restart.
type Engine struct {
	cfg    Config
	reg    *feed.Registry
	acc    *feed.Acceptor // may be nil
	logger log.Logger
	mx     *metrics.Metrics

	state atomic.Int32
}

// New creates an engine. acc may be nil when connection acceptance is
// managed elsewhere (tests register transports directly); mx may be nil.
func New(cfg Config, reg *feed.Registry, acc *feed.Acceptor, logger log.Logger, mx *metrics.Metrics) *Engine {
	if cfg.BufferSize == 0 {
		cfg.BufferSize = stream.DefaultBufferSize
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = 100000
	}
	return &Engine{cfg: cfg, reg: reg, acc: acc, logger: logger, mx: mx}
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

func (e *Engine) setState(s State) { e.state.Store(int32(s)) }

// Run executes the session until end of source, a fatal read error, or
// context cancellation. Teardown order is fixed: stop the acceptor so no
// new slots appear, shut the registry down, then release the source, so
// no send is ever attempted on a torn-down transport.
func (e *Engine) Run(ctx context.Context) (Session, error) {
	e.setState(StateOpening)

	src, err := OpenSource(e.cfg.SourcePath)
	if err != nil {
		e.setState(StateClosed)
		return Session{}, err
	}
	defer func() {
		if e.acc != nil {
			e.acc.Stop()
		}
		e.reg.Shutdown()
		src.Close()
		e.setState(StateClosed)
	}()

	e.logger.Info("starting replay",
		"source", e.cfg.SourcePath, "speed", e.cfg.Speed)

	e.setState(StateStreaming)
	sess, err := e.stream(ctx, src)

	e.setState(StateDraining)
	switch {
	case err != nil:
		e.logger.Error("replay aborted",
			"error", err, "messages", sess.MessagesSent, "bytes", sess.BytesSent)
	case sess.Truncated:
		e.logger.Warn("incomplete message at end of source",
			"messages", sess.MessagesSent, "bytes", sess.BytesSent)
	default:
		e.logger.Info("replay complete",
			"messages", sess.MessagesSent, "bytes", sess.BytesSent,
			"elapsed", sess.Elapsed)
	}
	return sess, err
}

func (e *Engine) stream(ctx context.Context, src io.Reader) (Session, error) {
	r := stream.NewReassembler(e.cfg.BufferSize)
	var sess Session
	start := time.Now()
	defer func() { sess.Elapsed = time.Since(start) }()

	var prevTS uint64
	for {
		if ctx.Err() != nil {
			return sess, nil
		}

		// Refill only below half capacity: there is always room for the
		// largest catalogue frame afterwards.
		if r.LowWater() {
			n, err := r.Fill(src)
			if err != nil && err != io.EOF {
				return sess, fmt.Errorf("replay: read source: %w", err)
			}
			if n == 0 && r.Buffered() == 0 {
				return sess, nil // clean end of source
			}
		}

		frame, err := r.Next()
		if err != nil {
			var unk *stream.UnknownTypeError
			switch {
			case errors.As(err, &unk):
				e.logger.Warn("unknown message type, resynchronizing",
					"tag", fmt.Sprintf("0x%02X", unk.Tag))
				sess.UnknownTags++
				e.mx.RecordUnknownTag()
				r.Resync()
				continue
			case errors.Is(err, stream.ErrShortBuffer):
				n, ferr := r.Fill(src)
				if ferr != nil && ferr != io.EOF {
					return sess, fmt.Errorf("replay: read source: %w", ferr)
				}
				if n == 0 {
					// Nothing more to read while a frame is still
					// short: a buffered remainder is a truncated tail,
					// an empty buffer a clean end.
					sess.Truncated = r.Buffered() > 0
					return sess, nil
				}
				continue
			default:
				return sess, err
			}
		}

		curTS := itch.Timestamp(frame)
		if d := Delay(prevTS, curTS, e.cfg.Speed); d >= MinSleep {
			if !sleepCtx(ctx, d) {
				return sess, nil
			}
		}

		sendStart := time.Now()
		e.reg.Broadcast(frame)
		e.mx.RecordBroadcast(len(frame), time.Since(sendStart))

		sess.MessagesSent++
		sess.BytesSent += uint64(len(frame))
		sess.LastTimestamp = curTS
		prevTS = curTS

		if sess.MessagesSent%e.cfg.ProgressEvery == 0 {
			e.logger.Info("replay progress",
				"messages", sess.MessagesSent,
				"mb", float64(sess.BytesSent)/(1<<20),
				"subscribers", e.reg.Active())
		}
	}
}

// sleepCtx waits for d unless ctx is cancelled first; the pacing wait
// must never outlive a shutdown request.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
