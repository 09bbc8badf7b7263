package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Tyrowin/chatverse/internal/presence"
)

// inboundEvent is the envelope of every frame a client sends.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type setupPayload struct {
	Token string `json:"token"`
}

type chatPayload struct {
	ChatID presence.RoomID `json:"chatId"`
}

// decodeToken accepts {"token": "..."} or a bare JSON string.
func decodeToken(data json.RawMessage) (string, error) {
	if s, ok, err := decodeString(data); ok || err != nil {
		return s, err
	}
	var p setupPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("setup payload: %w", presence.ErrInvalidPayload)
	}
	return p.Token, nil
}

// decodeChatID accepts {"chatId": "..."} or a bare JSON string.
func decodeChatID(data json.RawMessage) (presence.RoomID, error) {
	if s, ok, err := decodeString(data); ok || err != nil {
		return presence.RoomID(s), err
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("chat payload: %w", presence.ErrInvalidPayload)
	}
	return p.ChatID, nil
}

// decodeTyping reads the chat id and keeps the payload for a verbatim relay.
func decodeTyping(data json.RawMessage) (presence.TypingPayload, error) {
	raw := json.RawMessage(bytes.TrimSpace(data))
	if s, ok, err := decodeString(data); ok || err != nil {
		if err != nil {
			return presence.TypingPayload{}, err
		}
		return presence.TypingPayload{ChatID: presence.RoomID(s), Raw: raw}, nil
	}
	var p presence.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("typing payload: %w", presence.ErrInvalidPayload)
	}
	p.Raw = raw
	return p, nil
}

func decodeString(data json.RawMessage) (string, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", true, fmt.Errorf("string payload: %w", presence.ErrInvalidPayload)
	}
	return s, true, nil
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
