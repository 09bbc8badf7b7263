package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Tyrowin/chatverse/internal/presence"
)

var errUnknownEvent = errors.New("unknown event")

// dispatch routes one inbound event to the coordinator.
func (c *Client) dispatch(ctx context.Context, in inboundEvent) error {
	co := c.hub.coordinator

	switch in.Event {
	case presence.EventSetup:
		token, err := decodeToken(in.Data)
		if err != nil {
			return err
		}
		return co.Authenticate(ctx, c.session, token)

	case presence.EventJoinChat:
		chatID, err := decodeChatID(in.Data)
		if err != nil {
			return err
		}
		return co.JoinChat(c.session, chatID)

	case presence.EventLeaveChat:
		chatID, err := decodeChatID(in.Data)
		if err != nil {
			return err
		}
		return co.LeaveChat(c.session, chatID)

	case presence.EventNewMessage:
		var msg presence.Message
		if err := json.Unmarshal(in.Data, &msg); err != nil {
			return fmt.Errorf("new-message payload: %w", presence.ErrInvalidPayload)
		}
		if err := validate.Struct(msg); err != nil {
			return fmt.Errorf("new-message payload: %w: %w", presence.ErrInvalidPayload, err)
		}
		return co.NewMessage(c.session, msg)

	case presence.EventTyping, presence.EventStopTyping:
		p, err := decodeTyping(in.Data)
		if err != nil {
			return err
		}
		if in.Event == presence.EventTyping {
			return co.Typing(c.session, p)
		}
		return co.StopTyping(c.session, p)

	case presence.EventMessageRead:
		var p presence.ReadPayload
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return fmt.Errorf("message-read payload: %w", presence.ErrInvalidPayload)
		}
		return co.MessageRead(c.session, p)

	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, in.Event)
	}
}

// reject tells the client why its event was refused. The connection stays open.
func (c *Client) reject(event string, err error) {
	code := presence.CodeInvalidPayload
	switch {
	case errors.Is(err, presence.ErrUnauthenticated), errors.Is(err, presence.ErrAlreadyAuthenticated):
		code = presence.CodeUnauthorized
	case errors.Is(err, errUnknownEvent):
		code = presence.CodeUnknownEvent
	case errors.Is(err, presence.ErrTransport):
		return
	}

	c.log.Debug("Event rejected", "event", event, "code", code, "error", err)
	if sendErr := c.Send(presence.ErrorEvent(code, err.Error())); sendErr != nil {
		c.log.Debug("Could not report rejection", "event", event, "error", sendErr)
	}
}
