package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/omochice/relay-chat/internal/relaytest"
	"github.com/omochice/relay-chat/internal/transport"
	"github.com/omochice/relay-chat/internal/transport/gobwas"
	"github.com/omochice/relay-chat/internal/transport/gorilla"
	"github.com/omochice/relay-chat/internal/transport/nhooyr"
	"github.com/omochice/relay-chat/pkg/protocol"
	"github.com/stretchr/testify/require"
)

const timeout = 2 * time.Second

// dialers lists every adapter; each must behave the same against the relay.
var dialers = []struct {
	name   string
	dialer transport.Dialer
}{
	{"gorilla", gorilla.NewDialer()},
	{"gobwas", gobwas.NewDialer()},
	{"nhooyr", nhooyr.NewDialer(1 << 16)},
}

func dial(t *testing.T, ctx context.Context, d transport.Dialer, relay *relaytest.Relay) transport.Conn {
	t.Helper()
	conn, err := d.Dial(ctx, relay.URL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestConn_WriteReachesRelay(t *testing.T) {
	for _, tc := range dialers {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			relay := relaytest.New()
			t.Cleanup(relay.Close)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			conn := dial(t, ctx, tc.dialer, relay)
			req.NotEmpty(conn.RemoteAddr())

			req.NoError(conn.Write(ctx, []byte("alice: hello")))

			select {
			case got := <-relay.Received():
				req.Equal("alice: hello", got)
			case <-time.After(timeout):
				req.FailNow("relay did not receive the frame")
			}
		})
	}
}

func TestConn_ReadFrameKinds(t *testing.T) {
	frames := []struct {
		name  string
		frame protocol.Frame
	}{
		{"text", protocol.TextFrame("bob: hi")},
		{"binary", protocol.BinaryFrame([]byte("bob: hi"))},
	}

	for _, tc := range dialers {
		for _, ff := range frames {
			t.Run(tc.name+"/"+ff.name, func(t *testing.T) {
				req := require.New(t)
				relay := relaytest.New()
				t.Cleanup(relay.Close)

				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()

				conn := dial(t, ctx, tc.dialer, relay)
				req.True(relay.WaitForClients(1, timeout))

				relay.Push(ff.frame)

				got, err := conn.Read(ctx)
				req.NoError(err)
				req.Equal(ff.frame.Kind, got.Kind)
				req.Equal(string(ff.frame.Data), string(got.Data))
			})
		}
	}
}

func TestConn_ReadAfterServerDisconnect(t *testing.T) {
	for _, tc := range dialers {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			relay := relaytest.New()
			t.Cleanup(relay.Close)

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			conn := dial(t, ctx, tc.dialer, relay)
			req.True(relay.WaitForClients(1, timeout))

			relay.DisconnectAll()

			_, err := conn.Read(ctx)
			req.Error(err)
		})
	}
}

func TestDialer_Unreachable(t *testing.T) {
	for _, tc := range dialers {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			relay := relaytest.New()
			url := relay.URL()
			relay.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			conn, err := tc.dialer.Dial(ctx, url)
			req.Error(err)
			req.Nil(conn)
			req.Contains(err.Error(), "failed to connect to "+url)
		})
	}
}
