package session

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidName is returned by SetIdentity for empty, overlong, or
	// separator-bearing names.
	ErrInvalidName = errors.New("invalid name")

	// ErrIdentitySet is returned by SetIdentity when a name is already set.
	ErrIdentitySet = errors.New("identity already set")

	// ErrSessionClosed is returned once the session has been torn down.
	ErrSessionClosed = errors.New("session closed")
)

// Limits bounds user-supplied text.
type Limits struct {
	MaxNameLength    int
	MaxContentLength int
}

// DefaultLimits returns 20 runes for names and 500 for content.
func DefaultLimits() Limits {
	return Limits{
		MaxNameLength:    20,
		MaxContentLength: 500,
	}
}

type options struct {
	log          *zap.Logger
	clock        func() time.Time
	limits       Limits
	sendBuffer   int
	updateBuffer int
}

func defaultOptions() options {
	return options{
		log:          zap.NewNop(),
		clock:        time.Now,
		limits:       DefaultLimits(),
		sendBuffer:   16,
		updateBuffer: 64,
	}
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the session logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock overrides the time source used for entry timestamps.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLimits overrides name and content limits. Zero fields keep defaults.
func WithLimits(l Limits) Option {
	return func(o *options) {
		if l.MaxNameLength > 0 {
			o.limits.MaxNameLength = l.MaxNameLength
		}
		if l.MaxContentLength > 0 {
			o.limits.MaxContentLength = l.MaxContentLength
		}
	}
}

// WithSendBuffer sets the outgoing frame queue length.
func WithSendBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sendBuffer = n
		}
	}
}

// WithUpdateBuffer sets the Updates channel capacity.
func WithUpdateBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.updateBuffer = n
		}
	}
}
