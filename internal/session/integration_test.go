package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/omochice/relay-chat/internal/relaytest"
	"github.com/omochice/relay-chat/internal/session"
	"github.com/omochice/relay-chat/internal/transport/gorilla"
	"github.com/omochice/relay-chat/pkg/protocol"
	"github.com/stretchr/testify/require"
)

func startOnRelay(t *testing.T, relay *relaytest.Relay, name string) *session.Session {
	t.Helper()

	s := session.Start(context.Background(), gorilla.NewDialer(), relay.URL())
	t.Cleanup(func() { _ = s.Close() })

	require.Eventually(t, func() bool {
		return s.State() == session.StateOpen
	}, waitFor, tick)
	require.NoError(t, s.SetIdentity(name))
	return s
}

func TestIntegration_TwoSessionsExchangeMessages(t *testing.T) {
	req := require.New(t)
	relay := relaytest.New()
	t.Cleanup(relay.Close)

	alice := startOnRelay(t, relay, "alice")
	bob := startOnRelay(t, relay, "bob")
	req.True(relay.WaitForClients(2, waitFor))

	req.True(alice.Send("hello bob"))

	select {
	case got := <-relay.Received():
		req.Equal("alice: hello bob", got)
	case <-time.After(waitFor):
		req.FailNow("relay never received the frame")
	}

	entries := waitEntries(t, bob, 1)
	req.Equal(session.OriginReceived, entries[0].Origin)
	req.Equal("alice", entries[0].SenderName)
	req.Equal("hello bob", entries[0].Content)

	req.True(bob.Send("hi alice"))
	entries = waitEntries(t, alice, 2)
	req.Equal(session.OriginSent, entries[0].Origin)
	req.Equal("bob", entries[1].SenderName)
	req.Equal("hi alice", entries[1].Content)
}

func TestIntegration_BinaryForwarding(t *testing.T) {
	req := require.New(t)
	relay := relaytest.New(relaytest.WithBinaryForwarding())
	t.Cleanup(relay.Close)

	alice := startOnRelay(t, relay, "alice")
	bob := startOnRelay(t, relay, "bob")
	req.True(relay.WaitForClients(2, waitFor))

	req.True(alice.Send("over binary"))

	entries := waitEntries(t, bob, 1)
	req.Equal("alice", entries[0].SenderName)
	req.Equal("over binary", entries[0].Content)
}

func TestIntegration_EchoedSendIsLoggedTwice(t *testing.T) {
	req := require.New(t)
	relay := relaytest.New(relaytest.WithEcho())
	t.Cleanup(relay.Close)

	alice := startOnRelay(t, relay, "alice")
	req.True(alice.Send("ping"))

	entries := waitEntries(t, alice, 2)
	req.Equal(session.OriginSent, entries[0].Origin)
	req.Equal(session.OriginReceived, entries[1].Origin)
	req.Equal(entries[0].Content, entries[1].Content)
}

func TestIntegration_ServerPushAndDisconnect(t *testing.T) {
	req := require.New(t)
	relay := relaytest.New()
	t.Cleanup(relay.Close)

	alice := startOnRelay(t, relay, "alice")
	req.True(relay.WaitForClients(1, waitFor))

	relay.Push(protocol.TextFrame("server notice"))
	entries := waitEntries(t, alice, 1)
	req.Equal(protocol.AnonymousSender, entries[0].SenderName)
	req.Equal("server notice", entries[0].Content)

	relay.DisconnectAll()

	req.Eventually(func() bool {
		return alice.State() == session.StateClosed
	}, waitFor, tick)
	req.Error(alice.Err())
	req.False(alice.Send("anyone?"))
	req.Len(alice.Entries(), 1)
}

func TestIntegration_DialFailure(t *testing.T) {
	req := require.New(t)
	relay := relaytest.New()
	url := relay.URL()
	relay.Close()

	s := session.Start(context.Background(), gorilla.NewDialer(), url)
	t.Cleanup(func() { _ = s.Close() })

	req.Eventually(func() bool {
		return s.State() == session.StateClosed
	}, waitFor, tick)
	req.Error(s.Err())
	req.Contains(s.Err().Error(), "failed to connect")
}
