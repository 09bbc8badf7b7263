// Package presence tracks which users hold a live connection and fans chat
// events out to them.
//
// The package is transport agnostic. A Conn is anything that can enqueue an
// Event without blocking; the websocket client in internal/server is the
// production implementation.
//
// Four services cooperate:
//
//   - Registry maps users to their live connections and is the only source of
//     truth for presence.
//   - Rooms groups connections by the chat they are currently viewing.
//   - Coordinator drives the per-connection lifecycle (connect, authenticate,
//     disconnect) and broadcasts online/offline transitions.
//   - Fanout delivers persisted messages and read receipts.
//
// Registry and Rooms shard their state and never hold a lock while sending.
// A send that fails closes the connection, and the owner of the connection
// runs the normal disconnect path.
package presence
