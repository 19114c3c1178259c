package render

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/omochice/relay-chat/internal/session"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func sent(content string) session.Entry {
	return session.Entry{SenderName: "alice", Content: content, Origin: session.OriginSent, ReceivedAt: at}
}

func received(name, content string) session.Entry {
	return session.Entry{SenderName: name, Content: content, Origin: session.OriginReceived, ReceivedAt: at}
}

func TestEntry_Alignment(t *testing.T) {
	req := require.New(t)
	r := New(io.Discard, 60)

	mine := strings.Split(r.Entry(sent("hi")), "\n")
	req.Contains(mine[0], SelfLabel)
	req.NotContains(mine[0], "alice")
	req.True(strings.HasPrefix(mine[0], " "), "sent entries are right-aligned")
	req.Equal(60, lipgloss.Width(mine[0]))

	theirs := strings.Split(r.Entry(received("bob", "yo")), "\n")
	req.True(strings.HasPrefix(theirs[0], "bob 09:30"))
	req.Contains(strings.Join(theirs, "\n"), "yo")
}

func TestEntry_WrapsLongContent(t *testing.T) {
	r := New(io.Discard, 30)
	out := r.Entry(received("bob", strings.Repeat("word ", 20)))

	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, lipgloss.Width(line), 30)
	}
}

func TestTranscript(t *testing.T) {
	req := require.New(t)
	r := New(io.Discard, 0)

	empty := r.Transcript(nil)
	req.Contains(empty, "No messages yet")
	req.Contains(empty, "Start a conversation!")

	out := r.Transcript([]session.Entry{sent("first"), received("bob", "second")})
	req.Less(strings.Index(out, "first"), strings.Index(out, "second"))
	req.NotContains(out, "No messages yet")
}

func TestStatusAndHeader(t *testing.T) {
	req := require.New(t)
	r := New(io.Discard, 40)

	req.Equal("● open", r.Status(session.StateOpen))
	req.Equal("● closed", r.Status(session.StateClosed))
	req.Equal("Hello, alice", r.Header("alice"))

	r.SetWidth(80)
	req.Equal(80, r.Width())
}

func TestPlainLine(t *testing.T) {
	tests := []struct {
		name  string
		entry session.Entry
		want  string
	}{
		{"sent", sent("hi"), "[09:30] You: hi"},
		{"received", received("bob", "yo"), "[09:30] bob: yo"},
		{"anonymous", received("Anonymous", "hello world"), "[09:30] Anonymous: hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PlainLine(tt.entry))
		})
	}
}
