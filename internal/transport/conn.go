// Package transport defines the connection boundary between a chat session
// and the relay. Implementations live in the sub-packages, one per
// WebSocket library.
package transport

//go:generate go run go.uber.org/mock/mockgen -source=conn.go -destination=mocks/mock_transport.go -package=mocks

import (
	"context"

	"github.com/omochice/relay-chat/pkg/protocol"
)

// Conn abstracts one bidirectional connection to the relay.
// This interface isolates WebSocket library details from session logic.
type Conn interface {
	// Read blocks for the next data frame, text or binary.
	// Control frames are handled by the implementation and never returned.
	Read(ctx context.Context) (protocol.Frame, error)

	// Write sends data as a single text frame.
	Write(ctx context.Context, data []byte) error

	// Close performs the close handshake and releases the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Dialer opens connections to a relay URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}
