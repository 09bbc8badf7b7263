//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=mocks/mock_contract.go -package=mocks
package presence

import (
	"context"
	"time"
)

// Conn is one live bidirectional channel to a client process.
//
// Send must not block: it either enqueues the event or returns ErrTransport.
// Close must be idempotent and only schedule teardown; the owner of the
// connection is responsible for calling Coordinator.Disconnect.
type Conn interface {
	ID() string
	Send(evt Event) error
	Close() error
}

// Verifier resolves a bearer credential to the user it was issued for.
type Verifier interface {
	Verify(ctx context.Context, credential string) (UserID, error)
}

// PresenceStore receives the durable isOnline/lastSeen side effect of presence transitions.
type PresenceStore interface {
	UpdatePresence(ctx context.Context, user UserID, isOnline bool, lastSeen time.Time) error
}
