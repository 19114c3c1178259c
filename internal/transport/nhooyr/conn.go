// Package nhooyr provides the relay transport over nhooyr.io/websocket.
package nhooyr

import (
	"context"
	"fmt"

	"github.com/omochice/relay-chat/internal/transport"
	"github.com/omochice/relay-chat/pkg/protocol"
	"nhooyr.io/websocket"
)

// Dialer opens nhooyr.io/websocket connections.
type Dialer struct {
	readLimit int64
}

// NewDialer creates a Dialer. A readLimit of zero keeps the library default.
func NewDialer(readLimit int64) *Dialer {
	return &Dialer{readLimit: readLimit}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	if d.readLimit > 0 {
		conn.SetReadLimit(d.readLimit)
	}
	return NewConn(conn, url), nil
}

// Conn adapts nhooyr.io/websocket to transport.Conn.
type Conn struct {
	conn       *websocket.Conn
	remoteAddr string
}

// NewConn wraps a websocket.Conn. addr is reported by RemoteAddr.
func NewConn(conn *websocket.Conn, addr string) *Conn {
	return &Conn{conn: conn, remoteAddr: addr}
}

// Read implements transport.Conn.
// Cancelling ctx closes the connection, as the library does.
func (c *Conn) Read(ctx context.Context) (protocol.Frame, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return protocol.Frame{}, err
	}
	if typ == websocket.MessageBinary {
		return protocol.BinaryFrame(data), nil
	}
	return protocol.Frame{Kind: protocol.FrameText, Data: data}, nil
}

// Write implements transport.Conn.
// The library serializes concurrent writers.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}
