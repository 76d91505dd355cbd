package feed

import (
	"errors"
	"sync"
	"time"

	"github.com/luxfi/log"

	"github.com/luxfi/replay/pkg/metrics"
)

// DefaultSlots is the fixed subscriber capacity of a registry.
const DefaultSlots = 32

// DefaultWriteTimeout bounds one subscriber send during broadcast.
const DefaultWriteTimeout = 5 * time.Second

// ErrRegistryFull rejects a registration when every slot is occupied.
var ErrRegistryFull = errors.New("feed: subscriber registry full")

type slot struct {
	transport Transport
	addr      string
}

// Registry is a bounded set of live subscriber transports. One mutex
// covers register, broadcast, and shutdown; nothing else ever touches
// slot state, so registry-wide granularity is enough.
type Registry struct {
	mu           sync.Mutex
	slots        []*slot
	writeTimeout time.Duration
	closed       bool

	logger log.Logger
	mx     *metrics.Metrics
}

// NewRegistry creates a registry with size slots (DefaultSlots when 0).
// mx may be nil.
func NewRegistry(size int, writeTimeout time.Duration, logger log.Logger, mx *metrics.Metrics) *Registry {
	if size <= 0 {
		size = DefaultSlots
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Registry{
		slots:        make([]*slot, size),
		writeTimeout: writeTimeout,
		logger:       logger,
		mx:           mx,
	}
}

// Register places the transport in the first free slot and returns its
// id. A full registry closes the transport immediately and returns
// ErrRegistryFull; existing subscribers are unaffected.
func (r *Registry) Register(t Transport) (int, error) {
	addr := t.RemoteAddr()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		t.Close()
		return 0, errors.New("feed: registry shut down")
	}
	for i, s := range r.slots {
		if s != nil {
			continue
		}
		r.slots[i] = &slot{transport: t, addr: addr}
		active := r.activeLocked()
		r.mu.Unlock()

		r.logger.Info("subscriber connected", "slot", i, "addr", addr, "active", active)
		r.mx.SetSubscribers(active)
		return i, nil
	}
	r.mu.Unlock()

	t.Close()
	r.logger.Warn("subscriber rejected, registry full", "addr", addr, "slots", len(r.slots))
	r.mx.RecordReject()
	return 0, ErrRegistryFull
}

// Broadcast sends one complete frame to every slot active at call start
// and returns the active count afterward. A failed write closes and
// frees only that slot; delivery to the remaining slots continues and no
// error surfaces to the caller.
func (r *Registry) Broadcast(frame []byte) int {
	deadline := time.Now().Add(r.writeTimeout)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, s := range r.slots {
		if s == nil {
			continue
		}
		s.transport.SetWriteDeadline(deadline)
		if _, err := s.transport.Write(frame); err != nil {
			s.transport.Close()
			r.slots[i] = nil
			r.logger.Info("subscriber dropped", "slot", i, "addr", s.addr, "error", err)
			r.mx.RecordDrop()
		}
	}
	active := r.activeLocked()
	r.mx.SetSubscribers(active)
	return active
}

// Active returns the number of occupied slots.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked()
}

func (r *Registry) activeLocked() int {
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Shutdown closes and empties every slot. Registrations after shutdown
// are refused.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		s.transport.Close()
		r.slots[i] = nil
	}
	r.mx.SetSubscribers(0)
}
