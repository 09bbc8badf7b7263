package presence

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"
)

// Rooms is the room multiplexer: per-chat broadcast groups of the connections
// currently viewing that chat.
//
// Membership is independent of the Registry. A user can be online without
// being in any room, and several devices of one user can share a room.
// Rooms are created on first join and removed when their last member leaves.
// Mutations lock the connection's membership shard first and the room shard
// second.
type Rooms struct {
	log    *slog.Logger
	rooms  [shardCount]roomShard
	joined [shardCount]membershipShard
}

type roomShard struct {
	mu      sync.RWMutex
	members map[RoomID]map[string]Conn
}

type membershipShard struct {
	mu    sync.Mutex
	rooms map[string]map[RoomID]struct{}
}

// NewRooms creates an empty multiplexer.
func NewRooms(log *slog.Logger) *Rooms {
	m := &Rooms{log: log}
	for i := range m.rooms {
		m.rooms[i].members = make(map[RoomID]map[string]Conn)
		m.joined[i].rooms = make(map[string]map[RoomID]struct{})
	}
	return m
}

func (m *Rooms) roomShard(room RoomID) *roomShard {
	return &m.rooms[shardIndex(string(room))]
}

func (m *Rooms) membershipShard(c Conn) *membershipShard {
	return &m.joined[shardIndex(c.ID())]
}

// Join adds c to room. Joining twice leaves membership unchanged.
func (m *Rooms) Join(room RoomID, c Conn) {
	ms := m.membershipShard(c)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	rs := m.roomShard(room)
	rs.mu.Lock()
	set, ok := rs.members[room]
	if !ok {
		set = make(map[string]Conn)
		rs.members[room] = set
	}
	set[c.ID()] = c
	rs.mu.Unlock()

	joined, ok := ms.rooms[c.ID()]
	if !ok {
		joined = make(map[RoomID]struct{})
		ms.rooms[c.ID()] = joined
	}
	joined[room] = struct{}{}
}

// Leave removes c from room and deletes the room once it is empty.
func (m *Rooms) Leave(room RoomID, c Conn) {
	ms := m.membershipShard(c)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	m.removeLocked(room, c)
	if joined, ok := ms.rooms[c.ID()]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(ms.rooms, c.ID())
		}
	}
}

// LeaveAll removes c from every room it joined in one pass.
func (m *Rooms) LeaveAll(c Conn) {
	ms := m.membershipShard(c)
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for room := range ms.rooms[c.ID()] {
		m.removeLocked(room, c)
	}
	delete(ms.rooms, c.ID())
}

// removeLocked requires the membership shard of c to be held.
func (m *Rooms) removeLocked(room RoomID, c Conn) {
	rs := m.roomShard(room)
	rs.mu.Lock()
	defer rs.mu.Unlock()

	set, ok := rs.members[room]
	if !ok {
		return
	}
	delete(set, c.ID())
	if len(set) == 0 {
		delete(rs.members, room)
	}
}

// Members returns a snapshot of the connections joined to room.
func (m *Rooms) Members(room RoomID) []Conn {
	rs := m.roomShard(room)
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	set, ok := rs.members[room]
	if !ok {
		return nil
	}
	return lo.Values(set)
}

// RoomsOf returns the rooms c currently belongs to.
func (m *Rooms) RoomsOf(c Conn) []RoomID {
	ms := m.membershipShard(c)
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return lo.Keys(ms.rooms[c.ID()])
}

// Broadcast sends evt to every member of room except the given connection.
// The member set is snapshotted once; a member whose send fails is closed and
// the others are still served. It returns the number of connections reached.
func (m *Rooms) Broadcast(room RoomID, evt Event, except Conn) int {
	members := m.Members(room)
	if len(members) == 0 {
		return 0
	}
	return sendAll(m.log, members, evt, except)
}

// Len returns the number of live rooms.
func (m *Rooms) Len() int {
	n := 0
	for i := range m.rooms {
		rs := &m.rooms[i]
		rs.mu.RLock()
		n += len(rs.members)
		rs.mu.RUnlock()
	}
	return n
}
