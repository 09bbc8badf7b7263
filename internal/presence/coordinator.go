package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Coordinator drives each connection through its lifecycle and keeps the
// broadcast presence of every user in step with the Registry.
//
// The registry mutation and the matching user-online/user-offline broadcast
// of one user run under the same striped lock, so two transitions of a user
// can never be observed out of order. The lock only covers non-blocking
// enqueues; store writes go through the PresenceWriter after it is released.
type Coordinator struct {
	log      *slog.Logger
	registry *Registry
	rooms    *Rooms
	fanout   *Fanout
	verifier Verifier
	writer   *PresenceWriter
	stripes  [shardCount]sync.Mutex
	now      func() time.Time
}

// NewCoordinator wires the coordinator to its collaborators. writer may be nil.
func NewCoordinator(log *slog.Logger, registry *Registry, rooms *Rooms, fanout *Fanout,
	verifier Verifier, writer *PresenceWriter) *Coordinator {
	return &Coordinator{
		log:      log,
		registry: registry,
		rooms:    rooms,
		fanout:   fanout,
		verifier: verifier,
		writer:   writer,
		now:      time.Now,
	}
}

func (co *Coordinator) stripe(user UserID) *sync.Mutex {
	return &co.stripes[shardIndex(string(user))]
}

// Connect starts tracking c. It receives the broadcasts meant for every
// connected client, but nothing is registered under a user until it authenticates.
func (co *Coordinator) Connect(c Conn) *Session {
	co.registry.Track(c)
	co.log.Debug("Connection opened", "conn_id", c.ID())
	return newSession(c)
}

// Authenticate verifies credential and registers the session's connection.
//
// On failure the session stays unauthenticated and ErrUnauthenticated is
// returned; the connection is not closed. A repeated setup for the same user
// is a no-op. The user's first connection triggers a user-online broadcast to
// every other connection. The new connection always receives the online-users
// snapshot.
func (co *Coordinator) Authenticate(ctx context.Context, s *Session, credential string) error {
	if s.State() == StateDisconnected {
		return fmt.Errorf("authenticate closed session: %w", ErrTransport)
	}
	if credential == "" {
		return fmt.Errorf("missing credential: %w", ErrUnauthenticated)
	}

	user, err := co.verifier.Verify(ctx, credential)
	if err != nil {
		co.log.Info("Credential rejected", "conn_id", s.conn.ID(), "error", err)
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	if current, ok := s.User(); ok {
		if current == user {
			return nil
		}
		return ErrAlreadyAuthenticated
	}

	lock := co.stripe(user)
	lock.Lock()
	if !s.bind(user) {
		lock.Unlock()
		return fmt.Errorf("authenticate closed session: %w", ErrTransport)
	}
	first := co.registry.Register(user, s.conn)
	if first {
		sendAll(co.log, co.registry.Connections(), NewEvent(EventUserOnline, UserPayload{UserID: user}), s.conn)
	}
	lock.Unlock()

	if first {
		co.writer.Enqueue(PresenceUpdate{User: user, IsOnline: true, LastSeen: co.now()})
		co.log.Info("User online", "user_id", user, "conn_id", s.conn.ID())
	} else {
		co.log.Debug("Additional connection", "user_id", user, "conn_id", s.conn.ID())
	}

	sendOne(co.log, s.conn, NewEvent(EventOnlineUsers, co.registry.OnlineUsers()))
	return nil
}

// Disconnect tears the session down. It is idempotent and safe to run while a
// broadcast that still holds the connection in its snapshot is in flight.
// When the connection was the user's last one, user-offline is broadcast to
// the remaining connections and isOnline=false is handed to the store.
func (co *Coordinator) Disconnect(s *Session) {
	if !s.terminate() {
		return
	}
	co.rooms.LeaveAll(s.conn)

	user, bound := s.User()
	if !bound {
		co.registry.Unregister(s.conn)
		co.log.Debug("Unauthenticated connection closed", "conn_id", s.conn.ID())
		return
	}

	lock := co.stripe(user)
	lock.Lock()
	offline, last := co.registry.Unregister(s.conn)
	if last {
		sendAll(co.log, co.registry.Connections(), NewEvent(EventUserOffline, UserPayload{UserID: offline}), nil)
	}
	lock.Unlock()

	if !last {
		co.log.Debug("Connection closed, user still online", "user_id", user, "conn_id", s.conn.ID())
		return
	}
	co.writer.Enqueue(PresenceUpdate{User: offline, IsOnline: false, LastSeen: co.now()})
	co.log.Info("User offline", "user_id", offline, "conn_id", s.conn.ID())
}

// Expire closes a connection that has not authenticated yet. A setup racing
// with it either completes first, and Expire reports false, or fails with
// ErrTransport. The owner still runs Disconnect once the connection is down.
func (co *Coordinator) Expire(s *Session) bool {
	if !s.expire() {
		return false
	}
	if err := s.conn.Close(); err != nil {
		co.log.Debug("Close of expired connection", "conn_id", s.conn.ID(), "error", err)
	}
	return true
}

// Require returns the session's user or ErrUnauthenticated.
func (co *Coordinator) Require(s *Session) (UserID, error) {
	if s.State() != StateAuthenticated {
		return "", ErrUnauthenticated
	}
	user, ok := s.User()
	if !ok {
		return "", ErrUnauthenticated
	}
	return user, nil
}

// JoinChat adds the session's connection to the chat room.
func (co *Coordinator) JoinChat(s *Session, chatID RoomID) error {
	user, err := co.Require(s)
	if err != nil {
		return err
	}
	if chatID == "" {
		return fmt.Errorf("join-chat without chat id: %w", ErrInvalidPayload)
	}
	co.rooms.Join(chatID, s.conn)
	co.log.Debug("Joined chat", "user_id", user, "chat_id", chatID, "conn_id", s.conn.ID())
	return nil
}

// LeaveChat removes the session's connection from the chat room. Leaving a
// room that was never joined is a no-op.
func (co *Coordinator) LeaveChat(s *Session, chatID RoomID) error {
	if chatID == "" {
		return fmt.Errorf("leave-chat without chat id: %w", ErrInvalidPayload)
	}
	co.rooms.Leave(chatID, s.conn)
	co.log.Debug("Left chat", "chat_id", chatID, "conn_id", s.conn.ID())
	return nil
}

// Typing relays the payload verbatim to the other members of the room.
func (co *Coordinator) Typing(s *Session, p TypingPayload) error {
	return co.relay(s, EventTyping, p)
}

// StopTyping relays the payload verbatim to the other members of the room.
func (co *Coordinator) StopTyping(s *Session, p TypingPayload) error {
	return co.relay(s, EventStopTyping, p)
}

func (co *Coordinator) relay(s *Session, name string, p TypingPayload) error {
	if _, err := co.Require(s); err != nil {
		return err
	}
	if p.ChatID == "" {
		return fmt.Errorf("%s without chat id: %w", name, ErrInvalidPayload)
	}
	co.rooms.Broadcast(p.ChatID, NewEvent(name, p), s.conn)
	return nil
}

// MessageRead broadcasts a read update for the session's user. A payload
// naming another user is rejected.
func (co *Coordinator) MessageRead(s *Session, p ReadPayload) error {
	user, err := co.Require(s)
	if err != nil {
		return err
	}
	if p.UserID != "" && p.UserID != user {
		return fmt.Errorf("read receipt for %q from %q: %w", p.UserID, user, ErrUnauthenticated)
	}
	if p.MessageID == "" || p.ChatID == "" {
		return fmt.Errorf("message-read without message or chat id: %w", ErrInvalidPayload)
	}
	co.fanout.ReadReceipt(p.MessageID, user, p.ChatID)
	return nil
}

// NewMessage fans out a message the session's user sent. The embedded chat
// must carry its member list.
func (co *Coordinator) NewMessage(s *Session, msg Message) error {
	user, err := co.Require(s)
	if err != nil {
		return err
	}
	if msg.Sender.ID != user {
		return fmt.Errorf("message sender %q is not %q: %w", msg.Sender.ID, user, ErrUnauthenticated)
	}
	if msg.Chat.ID == "" || len(msg.Chat.Users) == 0 {
		return fmt.Errorf("chat or chat users not defined: %w", ErrInvalidPayload)
	}
	co.fanout.Deliver(Delivery{Message: msg, ChatID: msg.Chat.ID, Members: msg.Chat.Users}, s.conn)
	return nil
}
