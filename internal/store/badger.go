// Package store persists the isOnline/lastSeen state of users in Badger.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Tyrowin/chatverse/internal/presence"
)

const presencePrefix = "presence:"

// ErrNotFound is returned by Get for a user that was never recorded.
var ErrNotFound = errors.New("presence record not found")

// PresenceRecord is the stored presence of one user.
type PresenceRecord struct {
	UserID   presence.UserID `json:"userId"`
	IsOnline bool            `json:"isOnline"`
	LastSeen time.Time       `json:"lastSeen"`
}

var _ presence.PresenceStore = (*BadgerStore)(nil)

// BadgerStore implements presence.PresenceStore.
type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens the store at path. An empty path keeps everything in memory.
func Open(path string, log *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{log: log}).
		WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &BadgerStore{db: db, log: log}, nil
}

func key(user presence.UserID) []byte {
	return []byte(presencePrefix + string(user))
}

// UpdatePresence overwrites the record of user. Badger transactions do not
// take a context, so ctx is only checked before the write starts.
func (s *BadgerStore) UpdatePresence(ctx context.Context, user presence.UserID, isOnline bool, lastSeen time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(PresenceRecord{UserID: user, IsOnline: isOnline, LastSeen: lastSeen.UTC()})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(user), data)
	})
}

// Get returns the record of user or ErrNotFound.
func (s *BadgerStore) Get(ctx context.Context, user presence.UserID) (PresenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return PresenceRecord{}, err
	}
	var record PresenceRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(user))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return PresenceRecord{}, ErrNotFound
	}
	if err != nil {
		return PresenceRecord{}, err
	}
	return record, nil
}

// List returns every stored record ordered by user id. With onlineOnly set,
// offline users are skipped.
func (s *BadgerStore) List(ctx context.Context, onlineOnly bool) ([]PresenceRecord, error) {
	var records []PresenceRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(presencePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var record PresenceRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			if onlineOnly && !record.IsOnline {
				continue
			}
			records = append(records, record)
		}
		return nil
	})
	return records, err
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes Badger's own logging through slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
