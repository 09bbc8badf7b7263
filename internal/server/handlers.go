package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Tyrowin/chatverse/internal/presence"
	"github.com/Tyrowin/chatverse/internal/store"
)

// WebSocketHandler upgrades GET requests to WebSocket, creates a Client for
// the connection and hands it to the hub, which starts its pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr)
	if !s.hub.add(client) {
		client.log.Info("Hub stopped, refusing connection")
		s.coordinator.Disconnect(client.session)
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "chatverse server is running!")
}

type onlineUsersResponse struct {
	Success bool              `json:"success"`
	Users   []presence.UserID `json:"users"`
}

// onlineUsersHandler lists the users that currently hold a live connection.
func (s *Server) onlineUsersHandler(w http.ResponseWriter, _ *http.Request) {
	users := s.registry.OnlineUsers()
	if users == nil {
		users = []presence.UserID{}
	}
	writeJSON(w, http.StatusOK, onlineUsersResponse{Success: true, Users: users})
}

type userPresenceResponse struct {
	Success  bool            `json:"success"`
	UserID   presence.UserID `json:"userId"`
	IsOnline bool            `json:"isOnline"`
	LastSeen *time.Time      `json:"lastSeen,omitempty"`
}

// userPresenceHandler reports the live presence of one user, with the last
// persisted lastSeen when a store is configured.
func (s *Server) userPresenceHandler(w http.ResponseWriter, r *http.Request) {
	user := presence.UserID(mux.Vars(r)["userId"])
	resp := userPresenceResponse{
		Success:  true,
		UserID:   user,
		IsOnline: s.registry.IsOnline(user),
	}

	if s.store != nil {
		record, err := s.store.Get(r.Context(), user)
		switch {
		case err == nil:
			resp.LastSeen = &record.LastSeen
		case errors.Is(err, store.ErrNotFound):
		default:
			s.log.Warn("Presence lookup failed", "user_id", user, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type presenceListResponse struct {
	Success bool                   `json:"success"`
	Users   []store.PresenceRecord `json:"users"`
}

// presenceListHandler lists the persisted presence records. ?online=true
// keeps only users recorded as online.
func (s *Server) presenceListHandler(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Presence store not configured")
		return
	}

	onlineOnly := r.URL.Query().Get("online") == "true"
	records, err := s.store.List(r.Context(), onlineOnly)
	if err != nil {
		s.log.Warn("Presence listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Could not list presence")
		return
	}
	if records == nil {
		records = []store.PresenceRecord{}
	}
	writeJSON(w, http.StatusOK, presenceListResponse{Success: true, Users: records})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Message: message})
}

// TestPageHandler serves an HTML page to exercise the event protocol by hand.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPage); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>chatverse WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
            font-family: monospace;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        select { padding: 5px; margin-right: 10px; }
        button {
            padding: 5px 15px;
            background-color: #007cba;
            color: white;
            border: none;
            cursor: pointer;
        }
        button:hover { background-color: #005a87; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>chatverse WebSocket Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="token" placeholder="JWT (chatverse token --user &lt;id&gt;)">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div style="margin-top: 10px">
        <select id="event">
            <option>join-chat</option>
            <option>leave-chat</option>
            <option>typing</option>
            <option>stop-typing</option>
            <option>message-read</option>
            <option>new-message</option>
        </select>
        <input type="text" id="data" placeholder='data, e.g. "chat-1" or {"chatId":"chat-1"}' disabled>
        <button id="sendButton" onclick="sendEvent()" disabled>Send</button>
    </div>

    <div id="events"></div>

    <script>
        let ws = null;
        const eventsDiv = document.getElementById('events');
        const dataInput = document.getElementById('data');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.margin = '3px 0';
            line.style.color = color || 'gray';
            line.textContent = text;
            eventsDiv.appendChild(line);
            eventsDiv.scrollTop = eventsDiv.scrollHeight;
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            dataInput.disabled = !connected;
            sendButton.disabled = !connected;
            connectButton.textContent = connected ? 'Disconnect' : 'Connect';
        }

        function send(event, data) {
            const frame = JSON.stringify({ event: event, data: data });
            ws.send(frame);
            addLine('> ' + frame, 'blue');
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');

            ws.onopen = function() {
                updateStatus(true);
                send('setup', { token: document.getElementById('token').value.trim() });
            };

            ws.onmessage = function(event) {
                event.data.split('\n').forEach(function(frame) {
                    addLine('< ' + frame, 'green');
                });
            };

            ws.onclose = function() {
                addLine('Connection closed');
                updateStatus(false);
                ws = null;
            };

            ws.onerror = function() {
                addLine('Connection error');
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendEvent() {
            const raw = dataInput.value.trim();
            let data = raw;
            try { data = JSON.parse(raw); } catch (e) {}
            if (ws && ws.readyState === WebSocket.OPEN) {
                send(document.getElementById('event').value, data);
                dataInput.value = '';
            }
        }

        dataInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendEvent();
            }
        });
    </script>
</body>
</html>`
