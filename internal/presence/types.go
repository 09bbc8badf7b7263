package presence

import "time"

// UserID is the opaque user key assigned by the persistent store.
type UserID string

// RoomID identifies a chat. A room only exists while a connection has joined it.
type RoomID string

// MessageType mirrors the content kinds the store accepts.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
	MessageAudio MessageType = "audio"
	MessageFile  MessageType = "file"
	MessageVideo MessageType = "video"
)

// UserRef is the denormalized sender projection embedded in a message.
type UserRef struct {
	ID             UserID `json:"_id" validate:"required"`
	Name           string `json:"name,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Chat is the chat projection embedded in a message, including its member list.
type Chat struct {
	ID          RoomID   `json:"_id"`
	Name        string   `json:"name,omitempty"`
	IsGroupChat bool     `json:"isGroupChat,omitempty"`
	Users       []UserID `json:"users,omitempty"`
}

// Message is a message already written by the persistent store.
type Message struct {
	ID        string      `json:"_id" validate:"required"`
	Sender    UserRef     `json:"sender" validate:"required"`
	Content   string      `json:"content" validate:"required"`
	Chat      Chat        `json:"chat"`
	Type      MessageType `json:"type,omitempty" validate:"omitempty,oneof=text image audio file video"`
	ReadBy    []UserID    `json:"readBy,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Delivery is the ephemeral input of one fan-out.
type Delivery struct {
	Message Message
	ChatID  RoomID
	Members []UserID
}

// DeliveryReport counts what a single Deliver call reached.
type DeliveryReport struct {
	RoomRecipients int `json:"roomRecipients"`
	Notified       int `json:"notified"`
	Offline        int `json:"offline"`
}
