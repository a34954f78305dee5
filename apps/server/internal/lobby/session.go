package lobby

import (
	"sync"
	"sync/atomic"
	"time"

	"squirrel-server/apps/server/internal/codec"
)

// PlayerSession is the server-side record of an authenticated user,
// independent of any particular socket. It is shared by reference
// between the manager's queue, a room seat and the live connection;
// it lives as long as any of the three holds it.
type PlayerSession struct {
	uid      string
	username string

	connected atomic.Bool

	mu       sync.Mutex
	outbound chan codec.Event
	lastPing time.Time
}

// NewSession builds a connected session bound to the given outbound
// channel.
func NewSession(uid, username string, outbound chan codec.Event) *PlayerSession {
	s := &PlayerSession{
		uid:      uid,
		username: username,
		outbound: outbound,
		lastPing: time.Now(),
	}
	s.connected.Store(true)
	return s
}

func (s *PlayerSession) UID() string      { return s.uid }
func (s *PlayerSession) Username() string { return s.username }

func (s *PlayerSession) Connected() bool { return s.connected.Load() }

func (s *PlayerSession) MarkDisconnected() { s.connected.Store(false) }

// Touch refreshes the liveness timestamp. Any inbound frame counts.
func (s *PlayerSession) Touch() {
	s.mu.Lock()
	s.lastPing = time.Now()
	s.mu.Unlock()
}

func (s *PlayerSession) LastPing() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPing
}

// Bind points the session at a new connection's outbound channel and
// marks it connected. Used on reconnect.
func (s *PlayerSession) Bind(outbound chan codec.Event) {
	s.mu.Lock()
	s.outbound = outbound
	s.lastPing = time.Now()
	s.mu.Unlock()
	s.connected.Store(true)
}

// UnbindIf marks the session disconnected, but only while it is still
// bound to the given channel. A session rebound to a newer connection
// is left alone.
func (s *PlayerSession) UnbindIf(outbound chan codec.Event) {
	s.mu.Lock()
	bound := s.outbound == outbound
	s.mu.Unlock()
	if bound {
		s.connected.Store(false)
	}
}

// Send enqueues an event without blocking. A full or missing channel
// counts as a dead connection: the seat is marked disconnected and the
// event is dropped.
func (s *PlayerSession) Send(ev codec.Event) bool {
	s.mu.Lock()
	outbound := s.outbound
	s.mu.Unlock()

	if outbound == nil {
		s.connected.Store(false)
		return false
	}
	select {
	case outbound <- ev:
		return true
	default:
		s.connected.Store(false)
		return false
	}
}
