// Package gobwas provides the relay transport over gobwas/ws.
package gobwas

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/relay-chat/internal/transport"
	"github.com/omochice/relay-chat/pkg/protocol"
)

// Dialer opens gobwas/ws client connections.
type Dialer struct {
	dialer ws.Dialer
}

// NewDialer creates a Dialer with default gobwas settings.
func NewDialer() *Dialer {
	return &Dialer{dialer: ws.DefaultDialer}
}

// Dial implements transport.Dialer.
func (d *Dialer) Dial(ctx context.Context, url string) (transport.Conn, error) {
	conn, br, _, err := d.dialer.Dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return NewConn(conn, br), nil
}

// Conn adapts a raw net.Conn speaking the client side of RFC 6455.
type Conn struct {
	conn    net.Conn
	reader  io.Reader
	writeMu sync.Mutex
}

// NewConn wraps a net.Conn returned by a gobwas handshake.
// br holds frames the server sent right after the handshake and may be nil.
func NewConn(conn net.Conn, br *bufio.Reader) *Conn {
	var r io.Reader = conn
	if br != nil {
		r = io.MultiReader(br, conn)
	}
	return &Conn{conn: conn, reader: r}
}

// lockedWriter serializes control-frame replies with data writes.
type lockedWriter struct {
	c *Conn
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

// Read implements transport.Conn.
// Cancelling ctx interrupts a blocked read.
func (c *Conn) Read(ctx context.Context) (protocol.Frame, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	rw := struct {
		io.Reader
		io.Writer
	}{c.reader, lockedWriter{c}}

	data, op, err := wsutil.ReadServerData(rw)
	if err != nil {
		return protocol.Frame{}, err
	}
	if op == ws.OpBinary {
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
	return wsutil.WriteClientText(c.conn, data)
}

// Close implements transport.Conn.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, body)
	c.writeMu.Unlock()
	return c.conn.Close()
}

// RemoteAddr implements transport.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
