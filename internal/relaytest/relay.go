// Package relaytest provides an in-process WebSocket relay for tests.
//
// The relay forwards every frame it receives to all other connected
// clients, the way the production relay does, and lets tests push frames
// of either kind or drop every client from the server side.
package relaytest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omochice/relay-chat/pkg/protocol"
)

// client is one connection registered with the relay.
type client struct {
	conn     *websocket.Conn
	outgoing chan protocol.Frame
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.outgoing)
	})
}

// Option configures a Relay.
type Option func(*Relay)

// WithEcho makes the relay send every frame back to its sender as well.
func WithEcho() Option {
	return func(r *Relay) {
		r.echo = true
	}
}

// WithBinaryForwarding makes the relay forward frames as binary messages.
func WithBinaryForwarding() Option {
	return func(r *Relay) {
		r.binary = true
	}
}

// Relay is a broadcast hub behind an httptest server.
type Relay struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	clients  map[*client]bool
	mu       sync.RWMutex
	received chan string
	echo     bool
	binary   bool
	wg       sync.WaitGroup
}

// New starts a relay listening on a loopback address.
func New(opts ...Option) *Relay {
	r := &Relay{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients:  make(map[*client]bool),
		received: make(chan string, 64),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.server = httptest.NewServer(http.HandlerFunc(r.handleWebSocket))
	return r
}

// URL returns the ws:// address of the relay.
func (r *Relay) URL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

// Received returns the text of every frame the relay received, in order.
func (r *Relay) Received() <-chan string {
	return r.received
}

// ClientCount returns number of connected clients.
func (r *Relay) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// WaitForClients polls until n clients are connected or timeout elapses.
func (r *Relay) WaitForClients(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.ClientCount() == n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return r.ClientCount() == n
}

// Push sends a frame to every connected client.
func (r *Relay) Push(frame protocol.Frame) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		select {
		case c.outgoing <- frame:
		default:
		}
	}
}

// DisconnectAll closes every client connection from the server side.
func (r *Relay) DisconnectAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		_ = c.conn.Close()
	}
}

// Close stops the server and waits for every client goroutine.
func (r *Relay) Close() {
	r.server.Close()
	r.DisconnectAll()
	r.wg.Wait()
}

func (r *Relay) register(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = true
}

func (r *Relay) unregister(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
}

func (r *Relay) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	c := &client{
		conn:     conn,
		outgoing: make(chan protocol.Frame, 16),
	}
	r.register(c)

	r.wg.Add(2)
	go r.readLoop(c)
	go r.writeLoop(c)
}

func (r *Relay) readLoop(c *client) {
	defer r.wg.Done()
	defer func() {
		r.unregister(c)
		c.close()
		_ = c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		select {
		case r.received <- string(data):
		default:
		}

		frame := protocol.Frame{Kind: protocol.FrameText, Data: data}
		if r.binary {
			frame.Kind = protocol.FrameBinary
		}
		r.broadcast(frame, c)
	}
}

// broadcast sends to all clients except the sender, unless echo is on.
func (r *Relay) broadcast(frame protocol.Frame, sender *client) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		if c == sender && !r.echo {
			continue
		}
		select {
		case c.outgoing <- frame:
		default:
		}
	}
}

func (r *Relay) writeLoop(c *client) {
	defer r.wg.Done()
	for frame := range c.outgoing {
		messageType := websocket.TextMessage
		if frame.Kind == protocol.FrameBinary {
			messageType = websocket.BinaryMessage
		}
		if err := c.conn.WriteMessage(messageType, frame.Data); err != nil {
			return
		}
	}
}
