// Package wsfeed mirrors the raw replay frame stream to WebSocket
// subscribers. Each broadcast frame is delivered as one binary message;
// WebSocket framing replaces the reassembly a raw TCP consumer performs.
package wsfeed

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/log"
)

const (
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingPeriod    = 54 * time.Second // must be less than pongTimeout
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server fans frames out to WebSocket clients. It plugs into the
// subscriber registry through Transport, so the replay engine needs no
// WebSocket awareness.
type Server struct {
	logger log.Logger

	clientsMu sync.Mutex
	clients   map[*client]bool

	srv  *http.Server
	addr atomic.Value // string

	messagesOut uint64
	clientCount int32
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer creates a WebSocket mirror server.
func NewServer(logger log.Logger) *Server {
	return &Server{
		logger:  logger,
		clients: make(map[*client]bool),
	}
}

// Serve runs the HTTP server on an already-bound listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.srv = &http.Server{Handler: mux, ReadTimeout: 15 * time.Second}
	s.addr.Store(ln.Addr().String())
	s.logger.Info("WebSocket mirror listening", "addr", ln.Addr().String())

	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	return int(atomic.LoadInt32(&s.clientCount))
}

// Shutdown stops the HTTP server and disconnects every client.
func (s *Server) Shutdown() {
	if s.srv != nil {
		s.srv.Shutdown(context.Background())
	}
	s.clientsMu.Lock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
	s.clientsMu.Unlock()
}

// Broadcast enqueues one frame to every connected client. A client with
// a full queue is dropped rather than allowed to stall the feed.
func (s *Server) Broadcast(frame []byte) {
	// The frame is borrowed from the reassembler; one shared copy
	// outlives the send queues.
	buf := make([]byte, len(frame))
	copy(buf, frame)

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- buf:
		default:
			s.logger.Info("WebSocket client too slow, dropping",
				"addr", c.conn.RemoteAddr().String())
			close(c.send)
			delete(s.clients, c)
			atomic.AddInt32(&s.clientCount, -1)
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueueSize)}
	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()
	total := atomic.AddInt32(&s.clientCount, 1)
	s.logger.Info("WebSocket client connected",
		"addr", conn.RemoteAddr().String(), "total", total)

	go c.writePump(s)
	go c.readPump(s)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "healthy",
		"clients":  atomic.LoadInt32(&s.clientCount),
		"messages": atomic.LoadUint64(&s.messagesOut),
	})
}

func (s *Server) drop(c *client) {
	s.clientsMu.Lock()
	if _, ok := s.clients[c]; ok {
		close(c.send)
		delete(s.clients, c)
		atomic.AddInt32(&s.clientCount, -1)
	}
	s.clientsMu.Unlock()
}

// readPump discards client input; the feed is one-way. It exists to
// observe pongs and connection teardown.
func (c *client) readPump(s *Server) {
	defer func() {
		s.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(s *Server) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
			atomic.AddUint64(&s.messagesOut, 1)

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
