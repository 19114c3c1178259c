// Package session owns one relay connection and the conversation built on it.
//
// A Session drives the connection through Connecting, Open, and Closed,
// translates frames with the protocol package in both directions, and keeps
// an append-only log of entries. All state changes run on a single event
// loop; public methods post events to it and read an RWMutex-guarded
// snapshot.
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/omochice/relay-chat/internal/transport"
	"github.com/omochice/relay-chat/pkg/protocol"
	"go.uber.org/zap"
)

type dialedEvent struct {
	conn transport.Conn
	err  error
}

type frameEvent struct {
	frame protocol.Frame
}

type connClosedEvent struct {
	err error
}

type writeFailedEvent struct {
	err error
}

type sendEvent struct {
	content string
	reply   chan bool
}

type identityEvent struct {
	name  string
	reply chan error
}

type resetEvent struct {
	reply chan struct{}
}

// Session is a single chat connection and its transcript.
type Session struct {
	id         uuid.UUID
	url        string
	dialer     transport.Dialer
	log        *zap.Logger
	clock      func() time.Time
	limits     Limits
	sendBuffer int
	validate   *validator.Validate

	events  chan any
	updates chan Update
	done    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// owned by the event loop
	conn     transport.Conn
	outgoing chan []byte

	// written only by the event loop
	mu       sync.RWMutex
	state    State
	opened   bool
	entries  []Entry
	identity Identity
	err      error
}

// Start creates a session in StateConnecting and dials url in the
// background. Cancelling ctx tears the session down like Close.
func Start(ctx context.Context, dialer transport.Dialer, url string, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(ctx)
	id := uuid.New()
	s := &Session{
		id:         id,
		url:        url,
		dialer:     dialer,
		log:        o.log.With(zap.String("session", id.String()), zap.String("url", url)),
		clock:      o.clock,
		limits:     o.limits,
		sendBuffer: o.sendBuffer,
		validate:   newValidator(),
		events:     make(chan any),
		updates:    make(chan Update, o.updateBuffer),
		done:       make(chan struct{}),
		cancel:     cancel,
		state:      StateConnecting,
	}

	s.wg.Add(2)
	go s.run(ctx)
	go s.dial(ctx)

	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("nosep", func(fl validator.FieldLevel) bool {
		return !protocol.ContainsSeparator(fl.Field().String())
	})
	return v
}

// ID returns the session identifier used in logs and exports.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// URL returns the relay endpoint.
func (s *Session) URL() string {
	return s.url
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Entries returns a copy of the log in insertion order.
func (s *Session) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Identity returns the local identity and whether one is set.
func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.identity.Name != ""
}

// Ready reports whether the session is open and has an identity.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateOpen && s.identity.Name != ""
}

// Opened reports whether the connection ever reached StateOpen.
func (s *Session) Opened() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opened
}

// Err returns the error that closed the connection, if any.
// It is nil while the connection is up and after a clean local close.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Updates returns the notification channel. It is closed after teardown.
// Updates are dropped when the channel is full; Entries stays authoritative.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send broadcasts content under the local identity and appends it to the log.
// It reports false, leaving the log untouched, when the session is not open,
// no identity is set, content is blank, or content exceeds the length limit.
func (s *Session) Send(content string) bool {
	reply := make(chan bool, 1)
	if !s.post(sendEvent{content: content, reply: reply}) {
		return false
	}
	return <-reply
}

// SetIdentity sets the local name. It can be set once until Reset.
func (s *Session) SetIdentity(name string) error {
	reply := make(chan error, 1)
	if !s.post(identityEvent{name: name, reply: reply}) {
		return ErrSessionClosed
	}
	return <-reply
}

// Reset clears the log and the identity. The connection is left as is.
func (s *Session) Reset() {
	reply := make(chan struct{})
	if !s.post(resetEvent{reply: reply}) {
		return
	}
	<-reply
}

// Close closes the connection and waits for every session goroutine.
// The log remains readable afterwards.
func (s *Session) Close() error {
	s.cancel()
	s.wg.Wait()
	return nil
}

// post hands an event to the loop. It returns false after teardown.
func (s *Session) post(ev any) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) dial(ctx context.Context) {
	defer s.wg.Done()

	s.log.Info("Connecting to relay")
	conn, err := s.dialer.Dial(ctx, s.url)
	if ctx.Err() != nil || !s.post(dialedEvent{conn: conn, err: err}) {
		if conn != nil {
			_ = conn.Close()
		}
	}
}

func (s *Session) run(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.closeConn(nil)
			close(s.updates)
			return
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case dialedEvent:
		s.handleDialed(ctx, ev)
	case frameEvent:
		s.handleFrame(ev.frame)
	case connClosedEvent:
		s.closeConn(ev.err)
	case writeFailedEvent:
		if s.state != StateClosed {
			s.log.Warn("Failed to send frame, closing connection", zap.Error(ev.err))
		}
		s.closeConn(ev.err)
	case sendEvent:
		ev.reply <- s.handleSend(ev.content)
	case identityEvent:
		ev.reply <- s.handleIdentity(ev.name)
	case resetEvent:
		s.handleReset()
		close(ev.reply)
	}
}

func (s *Session) handleDialed(ctx context.Context, ev dialedEvent) {
	if ev.err != nil {
		s.log.Warn("Failed to connect to relay", zap.Error(ev.err))
		s.closeConn(ev.err)
		return
	}
	if s.state != StateConnecting {
		_ = ev.conn.Close()
		return
	}

	s.conn = ev.conn
	s.outgoing = make(chan []byte, s.sendBuffer)
	s.setState(StateOpen)
	s.log.Info("Connected to relay", zap.String("remote", ev.conn.RemoteAddr()))

	s.wg.Add(2)
	go s.readPump(ctx, ev.conn)
	go s.writePump(ctx, ev.conn, s.outgoing)
}

// handleFrame decodes on the loop, so entries keep wire order for text and
// binary frames alike.
func (s *Session) handleFrame(frame protocol.Frame) {
	if s.state != StateOpen {
		s.log.Debug("Ignoring frame outside open state",
			zap.Stringer("state", s.state), zap.Stringer("kind", frame.Kind))
		return
	}

	msg := protocol.Decode(frame)
	s.log.Debug("Received frame",
		zap.Stringer("kind", frame.Kind), zap.String("sender", msg.Sender))
	s.appendEntry(Entry{
		ID:         uuid.New(),
		SenderName: msg.Sender,
		Content:    msg.Content,
		Origin:     OriginReceived,
		ReceivedAt: s.clock(),
	})
}

func (s *Session) handleSend(content string) bool {
	name := s.identity.Name
	switch {
	case s.state != StateOpen:
		s.log.Debug("Rejecting send", zap.Stringer("state", s.state))
		return false
	case name == "":
		s.log.Debug("Rejecting send without identity")
		return false
	case strings.TrimSpace(content) == "":
		return false
	case utf8.RuneCountInString(content) > s.limits.MaxContentLength:
		s.log.Debug("Rejecting oversized content", zap.Int("runes", utf8.RuneCountInString(content)))
		return false
	}

	data := protocol.Message{Sender: name, Content: content}.Encode()
	select {
	case s.outgoing <- data:
	default:
		// The entry is still logged: sends are optimistic and unconfirmed.
		s.log.Warn("Outgoing queue full, dropping frame")
	}

	s.appendEntry(Entry{
		ID:         uuid.New(),
		SenderName: name,
		Content:    content,
		Origin:     OriginSent,
		ReceivedAt: s.clock(),
	})
	return true
}

func (s *Session) handleIdentity(name string) error {
	if s.identity.Name != "" {
		return ErrIdentitySet
	}

	name = strings.TrimSpace(name)
	tag := fmt.Sprintf("required,max=%d,nosep", s.limits.MaxNameLength)
	if err := s.validate.Var(name, tag); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	}

	s.mu.Lock()
	s.identity = Identity{Name: name}
	s.mu.Unlock()

	s.log.Info("Identity set", zap.String("name", name))
	s.notify(Update{Kind: UpdateIdentity, State: s.state})
	return nil
}

func (s *Session) handleReset() {
	s.mu.Lock()
	s.entries = nil
	s.identity = Identity{}
	s.mu.Unlock()

	s.log.Info("Session reset")
	s.notify(Update{Kind: UpdateReset, State: s.state})
}

func (s *Session) readPump(ctx context.Context, conn transport.Conn) {
	defer s.wg.Done()

	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			// A cancelled ctx is a local close; run reports it.
			if ctx.Err() == nil {
				s.post(connClosedEvent{err: err})
			}
			return
		}
		if !s.post(frameEvent{frame: frame}) {
			return
		}
	}
}

func (s *Session) writePump(ctx context.Context, conn transport.Conn, outgoing <-chan []byte) {
	defer s.wg.Done()

	for data := range outgoing {
		if err := conn.Write(ctx, data); err != nil {
			if ctx.Err() == nil {
				s.post(writeFailedEvent{err: err})
			}
			return
		}
	}
}

// closeConn moves to StateClosed and releases the connection. A nil cause
// means a local close.
func (s *Session) closeConn(cause error) {
	if s.state == StateClosed {
		return
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Debug("Failed to close connection", zap.Error(err))
		}
		close(s.outgoing)
		s.conn = nil
	}

	s.mu.Lock()
	s.state = StateClosed
	if s.err == nil {
		s.err = cause
	}
	s.mu.Unlock()

	s.log.Info("Disconnected from relay", zap.NamedError("cause", cause))
	s.notify(Update{Kind: UpdateState, State: StateClosed})
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	if state == StateOpen {
		s.opened = true
	}
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateState, State: state})
}

func (s *Session) appendEntry(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	s.notify(Update{Kind: UpdateEntry, State: s.state, Entry: e})
}

// notify never blocks the loop.
func (s *Session) notify(u Update) {
	select {
	case s.updates <- u:
	default:
		s.log.Debug("Dropping update for slow consumer", zap.Int("kind", int(u.Kind)))
	}
}
