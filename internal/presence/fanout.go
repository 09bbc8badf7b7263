package presence

import (
	"log/slog"

	"github.com/samber/lo"
)

// Fanout delivers persisted messages and read receipts to live connections.
// It is stateless with respect to persistence: callers resolve the message
// and the chat membership before calling it.
type Fanout struct {
	log                *slog.Logger
	registry           *Registry
	rooms              *Rooms
	globalChatListSync bool
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithGlobalChatListUpdates controls the chat-list-update broadcast sent to
// every connected client after each delivery.
func WithGlobalChatListUpdates(enabled bool) FanoutOption {
	return func(f *Fanout) { f.globalChatListSync = enabled }
}

// NewFanout creates a Fanout over the given registry and rooms.
func NewFanout(log *slog.Logger, registry *Registry, rooms *Rooms, opts ...FanoutOption) *Fanout {
	f := &Fanout{
		log:                log,
		registry:           registry,
		rooms:              rooms,
		globalChatListSync: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Deliver pushes d.Message to the connections concerned by d.ChatID.
//
// The room broadcast (message-received) always completes before the direct
// per-member notifications (message-notification) start. Members other than
// the sender get a notification on every live connection whether or not they
// are viewing the chat. origin, when set, is the connection that produced the
// message and is excluded from the room echo. Each snapshot is taken once and
// never retried.
func (f *Fanout) Deliver(d Delivery, origin Conn) DeliveryReport {
	var report DeliveryReport
	msg, chatID := d.Message, d.ChatID

	report.RoomRecipients = f.rooms.Broadcast(chatID, NewEvent(EventMessageReceived, msg), origin)

	notification := NewEvent(EventMessageNotification, msg)
	for _, member := range lo.Uniq(d.Members) {
		if member == msg.Sender.ID {
			continue
		}
		conns := f.registry.ConnectionsFor(member)
		if len(conns) == 0 {
			report.Offline++
			f.log.Debug("Skipping notification", "user_id", member, "chat_id", chatID, "reason", ErrUnknownRecipient)
			continue
		}
		report.Notified += sendAll(f.log, conns, notification, nil)
	}

	if senderConns := f.registry.ConnectionsFor(msg.Sender.ID); len(senderConns) > 0 {
		sendAll(f.log, senderConns, NewEvent(EventMessageDelivered, DeliveredPayload{
			MessageID: msg.ID,
			ChatID:    chatID,
			UserID:    msg.Sender.ID,
		}), origin)
	}

	if f.globalChatListSync {
		sendAll(f.log, f.registry.Live(), NewEvent(EventChatListUpdate, msg), nil)
	}

	f.log.Debug("Message delivered",
		"message_id", msg.ID,
		"chat_id", chatID,
		"room_recipients", report.RoomRecipients,
		"notified", report.Notified,
		"offline", report.Offline)
	return report
}

// ReadReceipt broadcasts message-read-update to every connected client,
// regardless of room membership. It returns the number of connections reached.
func (f *Fanout) ReadReceipt(messageID string, user UserID, chatID RoomID) int {
	evt := NewEvent(EventMessageReadUpdate, ReadUpdate{
		MessageID: messageID,
		UserID:    user,
		ChatID:    chatID,
	})
	return sendAll(f.log, f.registry.Live(), evt, nil)
}

// ReadReceipts emits one read update per message, in order.
func (f *Fanout) ReadReceipts(chatID RoomID, user UserID, messageIDs []string) int {
	if len(messageIDs) == 0 {
		return 0
	}
	conns := f.registry.Live()
	sent := 0
	for _, id := range messageIDs {
		sent += sendAll(f.log, conns, NewEvent(EventMessageReadUpdate, ReadUpdate{
			MessageID: id,
			UserID:    user,
			ChatID:    chatID,
		}), nil)
	}
	return sent
}
