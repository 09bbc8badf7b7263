package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatverse/internal/presence"
)

func TestDecodeToken(t *testing.T) {
	req := require.New(t)

	token, err := decodeToken(json.RawMessage(`"abc"`))
	req.NoError(err)
	req.Equal("abc", token)

	token, err = decodeToken(json.RawMessage(`{"token":"def"}`))
	req.NoError(err)
	req.Equal("def", token)

	_, err = decodeToken(json.RawMessage(`[1,2]`))
	req.ErrorIs(err, presence.ErrInvalidPayload)
}

func TestDecodeChatID(t *testing.T) {
	req := require.New(t)

	chatID, err := decodeChatID(json.RawMessage(` "chat-1" `))
	req.NoError(err)
	req.Equal(presence.RoomID("chat-1"), chatID)

	chatID, err = decodeChatID(json.RawMessage(`{"chatId":"chat-2"}`))
	req.NoError(err)
	req.Equal(presence.RoomID("chat-2"), chatID)

	chatID, err = decodeChatID(json.RawMessage(`null`))
	req.NoError(err)
	req.Empty(chatID)

	_, err = decodeChatID(nil)
	req.ErrorIs(err, presence.ErrInvalidPayload)

	_, err = decodeChatID(json.RawMessage(`"unterminated`))
	req.ErrorIs(err, presence.ErrInvalidPayload)
}

func TestDecodeTyping(t *testing.T) {
	req := require.New(t)

	raw := `{"chatId":"chat-1","userId":"alice","name":"Alice"}`
	p, err := decodeTyping(json.RawMessage(raw))
	req.NoError(err)
	req.Equal(presence.RoomID("chat-1"), p.ChatID)
	req.Equal(presence.UserID("alice"), p.UserID)

	// The relayed payload is the one the client sent
	relayed, err := json.Marshal(presence.NewEvent(presence.EventTyping, p))
	req.NoError(err)
	req.JSONEq(`{"event":"typing","data":`+raw+`}`, string(relayed))

	p, err = decodeTyping(json.RawMessage(` "chat-1" `))
	req.NoError(err)
	req.Equal(presence.RoomID("chat-1"), p.ChatID)
	req.Equal(json.RawMessage(`"chat-1"`), p.Raw)

	_, err = decodeTyping(json.RawMessage(`{"chatId":`))
	req.ErrorIs(err, presence.ErrInvalidPayload)
}

// TestIsExpectedCloseError verifies the classification of shutdown noise.
func TestIsExpectedCloseError(t *testing.T) {
	req := require.New(t)
	req.True(isExpectedCloseError(nil))
	req.True(isExpectedCloseError(errString("write tcp: use of closed network connection")))
	req.True(isExpectedCloseError(errString("websocket: close sent")))
	req.True(isExpectedCloseError(errString("write: broken pipe")))
	req.False(isExpectedCloseError(errString("i/o timeout")))
}

type errString string

func (e errString) Error() string { return string(e) }
