package relaytest

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, r *Relay) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(r.URL(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestRelay_BroadcastSkipsSender(t *testing.T) {
	req := require.New(t)
	r := New()
	t.Cleanup(r.Close)

	a := dial(t, r)
	b := dial(t, r)
	req.True(r.WaitForClients(2, time.Second))

	req.NoError(a.WriteMessage(websocket.TextMessage, []byte("a: hi")))

	_ = b.SetReadDeadline(time.Now().Add(time.Second))
	typ, data, err := b.ReadMessage()
	req.NoError(err)
	req.Equal(websocket.TextMessage, typ)
	req.Equal("a: hi", string(data))

	_ = a.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = a.ReadMessage()
	req.Error(err, "sender should not get its own frame back")
}

func TestRelay_EchoAndBinary(t *testing.T) {
	req := require.New(t)
	r := New(WithEcho(), WithBinaryForwarding())
	t.Cleanup(r.Close)

	a := dial(t, r)
	req.True(r.WaitForClients(1, time.Second))

	req.NoError(a.WriteMessage(websocket.TextMessage, []byte("a: me")))

	_ = a.SetReadDeadline(time.Now().Add(time.Second))
	typ, data, err := a.ReadMessage()
	req.NoError(err)
	req.Equal(websocket.BinaryMessage, typ)
	req.Equal("a: me", string(data))
	req.Equal("a: me", <-r.Received())
}

func TestRelay_DisconnectAll(t *testing.T) {
	req := require.New(t)
	r := New()
	t.Cleanup(r.Close)

	a := dial(t, r)
	req.True(r.WaitForClients(1, time.Second))

	r.DisconnectAll()

	_ = a.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := a.ReadMessage()
	req.Error(err)
	req.True(r.WaitForClients(0, time.Second))
}
