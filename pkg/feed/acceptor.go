package feed

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/luxfi/log"
)

// Acceptor registers incoming connections with a Registry concurrently
// with replay. It imposes no backlog policy beyond the listener's own
// queue.
type Acceptor struct {
	ln     net.Listener
	reg    *Registry
	logger log.Logger
	wg     sync.WaitGroup
}

// NewAcceptor creates an acceptor for an already-bound listener.
func NewAcceptor(ln net.Listener, reg *Registry, logger log.Logger) *Acceptor {
	return &Acceptor{ln: ln, reg: reg, logger: logger}
}

// Addr returns the listener address.
func (a *Acceptor) Addr() string { return a.ln.Addr().String() }

// Start launches the accept loop.
func (a *Acceptor) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop closes the listener, which stops admitting new subscribers, and
// waits for the loop to exit.
func (a *Acceptor) Stop() {
	a.ln.Close()
	a.wg.Wait()
}

func (a *Acceptor) run() {
	defer a.wg.Done()

	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Transient accept failures (interrupted wait, fd pressure)
			// are retried after a short pause.
			a.logger.Warn("accept failed", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		// Register closes the connection itself when the registry is
		// full; subscriber loss is not the acceptor's problem.
		if _, err := a.reg.Register(NewConnTransport(conn)); err != nil {
			continue
		}
	}
}
