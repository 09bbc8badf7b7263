package presence

import "encoding/json"

// Inbound event names.
const (
	EventSetup       = "setup"
	EventJoinChat    = "join-chat"
	EventLeaveChat   = "leave-chat"
	EventNewMessage  = "new-message"
	EventTyping      = "typing"
	EventStopTyping  = "stop-typing"
	EventMessageRead = "message-read"
)

// Outbound event names.
const (
	EventUserOnline          = "user-online"
	EventUserOffline         = "user-offline"
	EventOnlineUsers         = "online-users"
	EventMessageReceived     = "message-received"
	EventMessageNotification = "message-notification"
	EventMessageDelivered    = "message-delivered"
	EventChatListUpdate      = "chat-list-update"
	EventMessageReadUpdate   = "message-read-update"
	EventError               = "error"
)

// Error codes carried by EventError.
const (
	CodeUnauthorized   = "unauthorized"
	CodeInvalidPayload = "invalid_payload"
	CodeUnknownEvent   = "unknown_event"
)

// Event is the tagged union exchanged across the connection boundary.
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"data,omitempty"`
}

// UserPayload carries presence transitions.
type UserPayload struct {
	UserID UserID `json:"userId"`
}

// TypingPayload is relayed verbatim to the other members of a room. Raw
// holds the payload as the client sent it; fields beyond chatId and userId
// survive the relay.
type TypingPayload struct {
	ChatID RoomID          `json:"chatId"`
	UserID UserID          `json:"userId,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

// MarshalJSON encodes Raw when set, the known fields otherwise.
func (p TypingPayload) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain TypingPayload
	return json.Marshal(plain(p))
}

// ReadPayload is what a client sends with message-read.
type ReadPayload struct {
	MessageID string `json:"messageId"`
	UserID    UserID `json:"userId,omitempty"`
	ChatID    RoomID `json:"chatId"`
}

// ReadUpdate is broadcast to every connected client once a message is read.
type ReadUpdate struct {
	MessageID string `json:"messageId"`
	UserID    UserID `json:"userId"`
	ChatID    RoomID `json:"chatId"`
}

// DeliveredPayload acknowledges a delivery to the sender's devices.
type DeliveredPayload struct {
	MessageID string `json:"messageId"`
	ChatID    RoomID `json:"chatId"`
	UserID    UserID `json:"userId"`
}

// ErrorPayload is sent to a single connection when one of its actions is rejected.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent builds an Event.
func NewEvent(name string, payload any) Event {
	return Event{Name: name, Payload: payload}
}

// ErrorEvent builds an EventError for a single connection.
func ErrorEvent(code, message string) Event {
	return Event{Name: EventError, Payload: ErrorPayload{Code: code, Message: message}}
}
