// Package protocol implements the relay wire format.
//
// Every application frame is the UTF-8 text "<sender>: <content>". There is
// no length prefix, escaping, or version field.
package protocol

import "strings"

// Separator splits the sender name from the content on the wire.
const Separator = ": "

// AnonymousSender is the sender reported for frames without a separator.
const AnonymousSender = "Anonymous"

// FrameKind represents the representation a frame arrived in
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

// String returns the string representation of FrameKind
func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "TEXT"
	case FrameBinary:
		return "BINARY"
	default:
		return "UNKNOWN"
	}
}

// Frame is one discrete message unit delivered by the transport.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// TextFrame builds a text frame.
func TextFrame(s string) Frame {
	return Frame{Kind: FrameText, Data: []byte(s)}
}

// BinaryFrame builds a binary frame.
func BinaryFrame(b []byte) Frame {
	return Frame{Kind: FrameBinary, Data: b}
}

// Text returns the frame payload as UTF-8 text.
// Invalid byte sequences are replaced with U+FFFD.
func (f Frame) Text() string {
	return strings.ToValidUTF8(string(f.Data), "�")
}

// Message represents a chat message
type Message struct {
	Sender  string
	Content string
}

// Encode encodes the message into a single text frame payload.
// Neither field is escaped.
func (m Message) Encode() []byte {
	return []byte(m.Sender + Separator + m.Content)
}

// Decode decodes a frame into a message. It never fails: a payload without
// a separator degrades to an anonymous message carrying the whole text.
func Decode(f Frame) Message {
	text := f.Text()
	sender, content, found := strings.Cut(text, Separator)
	if !found {
		return Message{Sender: AnonymousSender, Content: text}
	}
	return Message{Sender: sender, Content: content}
}

// ContainsSeparator reports whether s contains the wire separator.
func ContainsSeparator(s string) bool {
	return strings.Contains(s, Separator)
}
