package presence

import (
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of one connection.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session follows one connection through Connecting -> Authenticated -> Disconnected.
type Session struct {
	conn  Conn
	state atomic.Int32

	mu      sync.Mutex
	user    UserID
	expired bool
}

func newSession(c Conn) *Session {
	return &Session{conn: c}
}

// Conn returns the connection the session belongs to.
func (s *Session) Conn() Conn { return s.conn }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// User returns the authenticated user, if any.
func (s *Session) User() (UserID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.user != ""
}

// bind moves a connecting session to Authenticated. It fails once the session
// has been disconnected.
func (s *Session) bind(user UserID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired || !s.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthenticated)) {
		return false
	}
	s.user = user
	return true
}

// expire stops a still-connecting session from ever binding. It reports
// false once the session has authenticated or disconnected.
func (s *Session) expire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != StateConnecting {
		return false
	}
	s.expired = true
	return true
}

// terminate marks the session disconnected and reports whether this call did it.
func (s *Session) terminate() bool {
	return State(s.state.Swap(int32(StateDisconnected))) != StateDisconnected
}
