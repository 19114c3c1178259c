// Package gorilla provides the relay transport over gorilla/websocket.
package gorilla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/omochice/relay-chat/internal/transport"
	"github.com/omochice/relay-chat/pkg/protocol"
)

// closeGrace bounds how long Close waits to deliver the close frame.
const closeGrace = time.Second

// Dialer opens gorilla/websocket connections.
type Dialer struct {
	dialer *websocket.Dialer
}

// NewDialer creates a Dialer using websocket.DefaultDialer.
func NewDialer() *Dialer {
	return &Dialer{dialer: websocket.DefaultDialer}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return NewConn(conn), nil
}

// Conn adapts a gorilla websocket.Conn to transport.Conn.
type Conn struct {
	conn *websocket.Conn
	// gorilla allows one concurrent writer
	writeMu sync.Mutex
}

// NewConn wraps a websocket.Conn.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// Read implements transport.Conn.
// The context is not observed; Close unblocks a pending Read.
func (c *Conn) Read(ctx context.Context) (protocol.Frame, error) {
	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return protocol.Frame{}, err
	}
	if messageType == websocket.BinaryMessage {
		return protocol.BinaryFrame(data), nil
	}
	return protocol.Frame{Kind: protocol.FrameText, Data: data}, nil
}

// Write implements transport.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
