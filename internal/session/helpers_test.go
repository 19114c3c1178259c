package session_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/omochice/relay-chat/internal/session"
	"github.com/omochice/relay-chat/internal/transport"
	"github.com/omochice/relay-chat/pkg/protocol"
	"github.com/stretchr/testify/require"
)

const (
	testURL = "ws://relay.test"
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeConn is an in-memory transport.Conn driven by the test.
type fakeConn struct {
	frames    chan protocol.Frame
	closed    chan struct{}
	closeOnce sync.Once
	writes    chan string
	mu        sync.Mutex
	written   []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan protocol.Frame, 64),
		closed: make(chan struct{}),
		writes: make(chan string, 64),
	}
}

func (c *fakeConn) Read(ctx context.Context) (protocol.Frame, error) {
	select {
	case f := <-c.frames:
		return f, nil
	case <-c.closed:
		return protocol.Frame{}, io.EOF
	case <-ctx.Done():
		return protocol.Frame{}, ctx.Err()
	}
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	c.written = append(c.written, string(data))
	c.mu.Unlock()
	c.writes <- string(data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	return nil
}

func (c *fakeConn) RemoteAddr() string {
	return "fake:0"
}

func (c *fakeConn) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.written...)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Compile-time check that fakeConn implements transport.Conn
var _ transport.Conn = (*fakeConn)(nil)

// startOpen starts a session over a fakeConn and waits until it is open.
func startOpen(t *testing.T, opts ...session.Option) (*session.Session, *fakeConn) {
	t.Helper()

	conn := newFakeConn()
	dialer := transport.DialerFunc(func(ctx context.Context, url string) (transport.Conn, error) {
		return conn, nil
	})

	s := session.Start(context.Background(), dialer, testURL, opts...)
	t.Cleanup(func() { _ = s.Close() })

	require.Eventually(t, func() bool {
		return s.State() == session.StateOpen
	}, waitFor, tick)

	return s, conn
}

// startReady is startOpen plus an identity.
func startReady(t *testing.T, name string, opts ...session.Option) (*session.Session, *fakeConn) {
	t.Helper()

	s, conn := startOpen(t, opts...)
	require.NoError(t, s.SetIdentity(name))
	return s, conn
}

func waitEntries(t *testing.T, s *session.Session, n int) []session.Entry {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(s.Entries()) == n
	}, waitFor, tick)
	return s.Entries()
}

func nextWrite(t *testing.T, conn *fakeConn) string {
	t.Helper()

	select {
	case w := <-conn.writes:
		return w
	case <-time.After(waitFor):
		t.Fatal("timeout waiting for write")
		return ""
	}
}
