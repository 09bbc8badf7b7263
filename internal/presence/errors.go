package presence

import "errors"

var (
	// ErrUnauthenticated rejects an action from a connection without a valid credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrAlreadyAuthenticated rejects a setup that would rebind a connection to another user.
	ErrAlreadyAuthenticated = errors.New("connection already authenticated as another user")
	// ErrUnknownRecipient marks a member with no live connection. It is never surfaced.
	ErrUnknownRecipient = errors.New("recipient offline")
	// ErrTransport is returned by Conn.Send when the handle is closed or backpressured.
	ErrTransport = errors.New("transport failure")
	// ErrPersistenceUnavailable wraps a failed presence write.
	ErrPersistenceUnavailable = errors.New("presence persistence unavailable")
	// ErrInvalidPayload rejects a malformed inbound event.
	ErrInvalidPayload = errors.New("invalid payload")
)
