package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tyrowin/chatverse/internal/metrics"
)

// PresenceUpdate is one isOnline/lastSeen write for the persistent store.
type PresenceUpdate struct {
	User     UserID
	IsOnline bool
	LastSeen time.Time
}

// PresenceWriter hands presence transitions to the persistent store off the
// connection path. Updates are written one at a time in enqueue order, so
// the store sees a user's transitions in the order they happened.
//
// Enqueue never blocks: when the queue is full the update is dropped and
// logged. A failed write is logged and not retried.
type PresenceWriter struct {
	log     *slog.Logger
	store   PresenceStore
	queue   chan PresenceUpdate
	timeout time.Duration
}

// NewPresenceWriter creates a writer. A nil store discards every update.
func NewPresenceWriter(log *slog.Logger, store PresenceStore, size int, timeout time.Duration) *PresenceWriter {
	if size <= 0 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PresenceWriter{
		log:     log,
		store:   store,
		queue:   make(chan PresenceUpdate, size),
		timeout: timeout,
	}
}

// Enqueue schedules u and reports whether it was accepted.
func (w *PresenceWriter) Enqueue(u PresenceUpdate) bool {
	if w == nil || w.store == nil {
		return false
	}
	select {
	case w.queue <- u:
		return true
	default:
		metrics.PresenceWrite("dropped")
		w.log.Warn("Presence queue full, dropping update", "user_id", u.User, "online", u.IsOnline)
		return false
	}
}

// Run writes queued updates until ctx is done, then drains what is left.
func (w *PresenceWriter) Run(ctx context.Context) error {
	for {
		select {
		case u := <-w.queue:
			w.write(u)
		case <-ctx.Done():
			w.drain()
			w.log.Debug("Context done, presence writer stopped")
			return nil
		}
	}
}

func (w *PresenceWriter) drain() {
	for {
		select {
		case u := <-w.queue:
			w.write(u)
		default:
			return
		}
	}
}

func (w *PresenceWriter) write(u PresenceUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.store.UpdatePresence(ctx, u.User, u.IsOnline, u.LastSeen); err != nil {
		metrics.PresenceWrite("failed")
		w.log.Error("Presence update failed",
			"user_id", u.User,
			"online", u.IsOnline,
			"error", fmt.Errorf("%w: %w", ErrPersistenceUnavailable, err))
		return
	}
	metrics.PresenceWrite("ok")
}
