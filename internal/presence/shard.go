package presence

import (
	"hash/fnv"
	"log/slog"

	"github.com/Tyrowin/chatverse/internal/metrics"
)

// shardCount bounds lock contention: unrelated users and rooms rarely share a shard.
const shardCount = 32

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}

// sendAll enqueues evt on every conn except the excluded one. A failed send
// closes the handle so its owner runs the disconnect path; the rest of the set
// is still served. It returns the number of successful sends.
func sendAll(log *slog.Logger, conns []Conn, evt Event, except Conn) int {
	sent := 0
	for _, c := range conns {
		if except != nil && c.ID() == except.ID() {
			continue
		}
		if sendOne(log, c, evt) {
			sent++
		}
	}
	return sent
}

func sendOne(log *slog.Logger, c Conn, evt Event) bool {
	if err := c.Send(evt); err != nil {
		metrics.SendFailed(evt.Name)
		log.Debug("Send failed, scheduling connection cleanup",
			"conn_id", c.ID(), "event", evt.Name, "error", err)
		if cerr := c.Close(); cerr != nil {
			log.Debug("Close after failed send", "conn_id", c.ID(), "error", cerr)
		}
		return false
	}
	metrics.EventSent(evt.Name)
	return true
}
