package presence_test

import (
	"io"
	"log/slog"
	"sync"

	"github.com/Tyrowin/chatverse/internal/presence"
	"github.com/samber/lo"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn records what it is sent. A dead conn rejects every send, and a
// closed one rejects sends made after Close, like the websocket client.
type fakeConn struct {
	id string

	mu     sync.Mutex
	events []presence.Event
	dead   bool
	closed bool
	closes int
}

func newConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func newDeadConn(id string) *fakeConn {
	return &fakeConn{id: id, dead: true}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(evt presence.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead || c.closed {
		return presence.ErrTransport
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closes++
	return nil
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) Events(name string) []presence.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Filter(c.events, func(e presence.Event, _ int) bool { return e.Name == name })
}

func (c *fakeConn) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Map(c.events, func(e presence.Event, _ int) string { return e.Name })
}

func (c *fakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

func connIDs(conns []presence.Conn) []string {
	return lo.Map(conns, func(c presence.Conn, _ int) string { return c.ID() })
}
