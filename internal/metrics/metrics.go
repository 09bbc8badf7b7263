// Package metrics exposes the Prometheus collectors of the chatverse server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatverse",
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Current number of open websocket connections, authenticated or not.",
		},
	)

	onlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatverse",
			Subsystem: "presence",
			Name:      "online_users",
			Help:      "Users holding at least one authenticated connection.",
		},
	)

	rooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatverse",
			Subsystem: "presence",
			Name:      "rooms",
			Help:      "Chats with at least one connection viewing them.",
		},
	)

	eventsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatverse",
			Subsystem: "fanout",
			Name:      "events_sent_total",
			Help:      "Events enqueued on a connection.",
		},
		[]string{"event"},
	)

	sendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatverse",
			Subsystem: "fanout",
			Name:      "send_failures_total",
			Help:      "Sends rejected by a closed or backpressured connection.",
		},
		[]string{"event"},
	)

	presenceWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatverse",
			Subsystem: "presence",
			Name:      "store_writes_total",
			Help:      "Presence updates handed to the persistent store, by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatverse",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatverse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		connections,
		onlineUsers,
		rooms,
		eventsSent,
		sendFailures,
		presenceWrites,
		httpRequests,
		httpDuration,
	)
}

// Handler serves the application registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ConnectionOpened and ConnectionClosed track open websocket connections.
func ConnectionOpened() { connections.Inc() }

func ConnectionClosed() { connections.Dec() }

// SetOnlineUsers records the current number of online users.
func SetOnlineUsers(n int) { onlineUsers.Set(float64(n)) }

// SetRooms records the current number of live rooms.
func SetRooms(n int) { rooms.Set(float64(n)) }

// EventSent counts one successful enqueue of the named event.
func EventSent(event string) { eventsSent.WithLabelValues(event).Inc() }

// SendFailed counts one rejected enqueue of the named event.
func SendFailed(event string) { sendFailures.WithLabelValues(event).Inc() }

// PresenceWrite counts a presence store write by result (ok, failed, dropped).
func PresenceWrite(result string) { presenceWrites.WithLabelValues(result).Inc() }

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
