package session

import (
	"time"

	"github.com/google/uuid"
)

// State is the connection lifecycle state of a Session.
type State int

const (
	// StateConnecting is the initial state while the dial is in flight.
	StateConnecting State = iota

	// StateOpen means the connection is established and sends are accepted.
	StateOpen

	// StateClosed is terminal. The connection is never reopened.
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Origin tells whether an entry was authored locally or decoded from a frame.
type Origin int

const (
	OriginSent Origin = iota
	OriginReceived
)

// String returns the string representation of an Origin.
func (o Origin) String() string {
	switch o {
	case OriginSent:
		return "sent"
	case OriginReceived:
		return "received"
	default:
		return "unknown"
	}
}

// Entry is one immutable line of the conversation.
type Entry struct {
	ID         uuid.UUID
	SenderName string
	Content    string
	Origin     Origin
	// ReceivedAt is decode time for received entries and send time for
	// sent ones. It is display data only.
	ReceivedAt time.Time
}

// Identity is the local user's chat name.
type Identity struct {
	Name string
}

// UpdateKind classifies an Update.
type UpdateKind int

const (
	UpdateState UpdateKind = iota
	UpdateEntry
	UpdateIdentity
	UpdateReset
)

// Update notifies presentation layers that the session changed.
type Update struct {
	Kind  UpdateKind
	State State
	// Entry is set when Kind is UpdateEntry.
	Entry Entry
}
