package presence

import (
	"sync"

	"github.com/samber/lo"
)

// Registry maps users to their live connections. A user is online exactly
// while the registry holds at least one connection for them.
//
// State is split in two sharded indexes: user -> connections and
// connection -> owner. The connection index also holds every live connection,
// authenticated or not, for the broadcasts that reach all connected clients. Mutations always lock the connection shard first and
// the user shard second, so concurrent register/unregister of the same
// handle are serialized and readers never observe a half-applied change.
type Registry struct {
	users [shardCount]userShard
	conns [shardCount]connShard
}

type userShard struct {
	mu      sync.RWMutex
	entries map[UserID]map[string]Conn
}

type connShard struct {
	mu     sync.Mutex
	owners map[string]UserID
	live   map[string]Conn
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.users {
		r.users[i].entries = make(map[UserID]map[string]Conn)
		r.conns[i].owners = make(map[string]UserID)
		r.conns[i].live = make(map[string]Conn)
	}
	return r
}

func (r *Registry) userShard(user UserID) *userShard {
	return &r.users[shardIndex(string(user))]
}

func (r *Registry) connShard(c Conn) *connShard {
	return &r.conns[shardIndex(c.ID())]
}

// Register adds c under user and reports whether it is the user's first
// connection. Registering the same pair twice is a no-op. A connection already
// bound to another user keeps its identity and the call is ignored.
func (r *Registry) Register(user UserID, c Conn) bool {
	cs := r.connShard(c)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, bound := cs.owners[c.ID()]; bound {
		return false
	}

	us := r.userShard(user)
	us.mu.Lock()
	set, ok := us.entries[user]
	if !ok {
		set = make(map[string]Conn)
		us.entries[user] = set
	}
	set[c.ID()] = c
	first := len(set) == 1
	us.mu.Unlock()

	cs.owners[c.ID()] = user
	cs.live[c.ID()] = c
	return first
}

// Track records c as live before it authenticates. It is idempotent.
func (r *Registry) Track(c Conn) {
	cs := r.connShard(c)
	cs.mu.Lock()
	cs.live[c.ID()] = c
	cs.mu.Unlock()
}

// Unregister removes c from whichever user owns it and from the live set. The owner is found by
// handle, never by a caller-supplied user. It returns the owner only when this
// was their last connection.
func (r *Registry) Unregister(c Conn) (UserID, bool) {
	cs := r.connShard(c)
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.live, c.ID())
	user, bound := cs.owners[c.ID()]
	if !bound {
		return "", false
	}
	delete(cs.owners, c.ID())

	us := r.userShard(user)
	us.mu.Lock()
	defer us.mu.Unlock()

	set := us.entries[user]
	delete(set, c.ID())
	if len(set) > 0 {
		return "", false
	}
	delete(us.entries, user)
	return user, true
}

// Owner returns the user c is registered under.
func (r *Registry) Owner(c Conn) (UserID, bool) {
	cs := r.connShard(c)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	user, ok := cs.owners[c.ID()]
	return user, ok
}

// ConnectionsFor returns a snapshot of the user's connections, nil when offline.
func (r *Registry) ConnectionsFor(user UserID) []Conn {
	us := r.userShard(user)
	us.mu.RLock()
	defer us.mu.RUnlock()

	set, ok := us.entries[user]
	if !ok {
		return nil
	}
	return lo.Values(set)
}

// IsOnline reports whether the user holds at least one connection.
func (r *Registry) IsOnline(user UserID) bool {
	us := r.userShard(user)
	us.mu.RLock()
	defer us.mu.RUnlock()
	return len(us.entries[user]) > 0
}

// OnlineUsers returns a snapshot of every registered user.
func (r *Registry) OnlineUsers() []UserID {
	users := make([]UserID, 0)
	for i := range r.users {
		us := &r.users[i]
		us.mu.RLock()
		users = append(users, lo.Keys(us.entries)...)
		us.mu.RUnlock()
	}
	return users
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []Conn {
	var conns []Conn
	for i := range r.users {
		us := &r.users[i]
		us.mu.RLock()
		for _, set := range us.entries {
			conns = append(conns, lo.Values(set)...)
		}
		us.mu.RUnlock()
	}
	return conns
}

// Live returns a snapshot of every live connection, including those that
// have not authenticated yet.
func (r *Registry) Live() []Conn {
	var conns []Conn
	for i := range r.conns {
		cs := &r.conns[i]
		cs.mu.Lock()
		conns = append(conns, lo.Values(cs.live)...)
		cs.mu.Unlock()
	}
	return conns
}

// UserCount returns the number of online users.
func (r *Registry) UserCount() int {
	n := 0
	for i := range r.users {
		us := &r.users[i]
		us.mu.RLock()
		n += len(us.entries)
		us.mu.RUnlock()
	}
	return n
}
