package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatverse/internal/presence"
	"github.com/Tyrowin/chatverse/internal/server"
	"github.com/Tyrowin/chatverse/internal/store"
	"github.com/Tyrowin/chatverse/internal/testutil"
)

// TestHealthHandler verifies the health check response.
func TestHealthHandler(t *testing.T) {
	req, err := http.NewRequest("GET", "/", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	server.HealthHandler(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	if rr.Body.String() != "chatverse server is running!" {
		t.Errorf("handler returned unexpected body: got %v", rr.Body.String())
	}
}

// TestCreateServer verifies the address, handler and timeouts of the HTTP server.
func TestCreateServer(t *testing.T) {
	handler := http.NewServeMux()
	srv := server.CreateServer(":8080", handler)

	if srv.Addr != ":8080" {
		t.Errorf("Expected server addr :8080, got %s", srv.Addr)
	}
	if srv.Handler != handler {
		t.Error("Server handler not set correctly")
	}
	if srv.ReadTimeout != 15*time.Second {
		t.Errorf("Expected ReadTimeout 15s, got %v", srv.ReadTimeout)
	}
	if srv.WriteTimeout != 15*time.Second {
		t.Errorf("Expected WriteTimeout 15s, got %v", srv.WriteTimeout)
	}
	if srv.IdleTimeout != 60*time.Second {
		t.Errorf("Expected IdleTimeout 60s, got %v", srv.IdleTimeout)
	}
}

// TestRoutes verifies status codes of the public routes.
func TestRoutes(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		method   string
		path     string
		status   int
		contains string
	}{
		{"Health", http.MethodGet, "/", http.StatusOK, "chatverse server is running!"},
		{"Health rejects POST", http.MethodPost, "/", http.StatusMethodNotAllowed, ""},
		{"WebSocket rejects POST", http.MethodPost, "/ws", http.StatusMethodNotAllowed, "only accepts GET"},
		{"WebSocket requires upgrade", http.MethodGet, "/ws", http.StatusBadRequest, ""},
		{"Test page", http.MethodGet, "/test", http.StatusOK, "chatverse WebSocket Test"},
		{"Unknown path", http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := testutil.MakeRequest(t, tt.method, f.http.URL+tt.path, nil, map[string]string{"Origin": testutil.TestOrigin})
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.contains != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				require.Contains(t, string(body), tt.contains)
			}
		})
	}
}

func TestPresenceAPI(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice, _ := f.login(t, "alice")
	f.login(t, "bob")

	var online struct {
		Success bool              `json:"success"`
		Users   []presence.UserID `json:"users"`
	}
	getJSON(t, f.http.URL+"/api/presence/online", http.StatusOK, &online)
	req.True(online.Success)
	req.ElementsMatch([]presence.UserID{"alice", "bob"}, online.Users)

	var status struct {
		Success  bool            `json:"success"`
		UserID   presence.UserID `json:"userId"`
		IsOnline bool            `json:"isOnline"`
		LastSeen *time.Time      `json:"lastSeen"`
	}
	getJSON(t, f.http.URL+"/api/presence/carol", http.StatusOK, &status)
	req.Equal(presence.UserID("carol"), status.UserID)
	req.False(status.IsOnline)
	req.Nil(status.LastSeen)

	// Once alice leaves her last seen time is served
	req.NoError(testutil.CloseWebSocket(alice.Conn))
	req.Eventually(func() bool {
		getJSON(t, f.http.URL+"/api/presence/alice", http.StatusOK, &status)
		return !status.IsOnline && status.LastSeen != nil
	}, waitTimeout, 20*time.Millisecond)
}

func TestPresenceList(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice, _ := f.login(t, "alice")
	f.login(t, "bob")
	req.NoError(testutil.CloseWebSocket(alice.Conn))

	type listResponse struct {
		Success bool                   `json:"success"`
		Users   []store.PresenceRecord `json:"users"`
	}
	users := func(resp listResponse) []presence.UserID {
		ids := make([]presence.UserID, 0, len(resp.Users))
		for _, record := range resp.Users {
			ids = append(ids, record.UserID)
		}
		return ids
	}

	// Then alice is recorded offline and bob online
	req.Eventually(func() bool {
		var online listResponse
		getJSON(t, f.http.URL+"/api/presence?online=true", http.StatusOK, &online)
		return len(online.Users) == 1 && online.Users[0].UserID == "bob"
	}, waitTimeout, 20*time.Millisecond)

	var all listResponse
	getJSON(t, f.http.URL+"/api/presence", http.StatusOK, &all)
	req.True(all.Success)
	req.Equal([]presence.UserID{"alice", "bob"}, users(all))
}

func TestIngress_Authorization(t *testing.T) {
	f := newFixture(t)
	body := mustJSON(t, map[string]any{
		"message": chatMessage("m1", "alice", "chat-1", "alice", "bob"),
		"chatId":  "chat-1",
		"members": []string{"alice", "bob"},
	})

	tests := []struct {
		name    string
		headers map[string]string
		message string
	}{
		{"No header", nil, "Not authorized, no token"},
		{"Wrong scheme", map[string]string{"Authorization": "Basic abc"}, "Invalid Authorization header format"},
		{"Bad token", map[string]string{"Authorization": "Bearer nope"}, "Not authorized, token failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			postJSON(t, f.http.URL+"/api/internal/messages", tt.headers, body, http.StatusUnauthorized, &resp)
			require.False(t, resp.Success)
			require.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestIngress_Deliver(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	bob, _ := f.login(t, "bob")
	f.join(t, bob, "chat-1")

	body := mustJSON(t, map[string]any{
		"message": chatMessage("m1", "alice", "chat-1", "alice", "bob", "carol"),
		"chatId":  "chat-1",
		"members": []string{"alice", "bob", "carol"},
	})

	var resp struct {
		Success bool                    `json:"success"`
		Report  presence.DeliveryReport `json:"report"`
	}
	postJSON(t, f.http.URL+"/api/internal/messages", f.bearer(t, "alice"), body, http.StatusOK, &resp)

	req.True(resp.Success)
	req.Equal(presence.DeliveryReport{RoomRecipients: 1, Notified: 1, Offline: 1}, resp.Report)
	bob.WaitFor(presence.EventMessageReceived, waitTimeout)
	bob.WaitFor(presence.EventMessageNotification, waitTimeout)
}

func TestIngress_Deliver_Rejects_Bad_Requests(t *testing.T) {
	f := newFixture(t)
	valid := chatMessage("m1", "alice", "chat-1", "alice", "bob")

	tests := []struct {
		name   string
		body   []byte
		status int
	}{
		{"Not JSON", []byte("{"), http.StatusBadRequest},
		{"No members", mustJSON(t, map[string]any{"message": valid, "chatId": "chat-1"}), http.StatusBadRequest},
		{"No chat id", mustJSON(t, map[string]any{"message": valid, "members": []string{"bob"}}), http.StatusBadRequest},
		{"Forged sender", mustJSON(t, map[string]any{
			"message": chatMessage("m1", "bob", "chat-1", "alice", "bob"),
			"chatId":  "chat-1",
			"members": []string{"alice", "bob"},
		}), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			postJSON(t, f.http.URL+"/api/internal/messages", f.bearer(t, "alice"), tt.body, tt.status, &resp)
			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Message)
		})
	}
}

func TestIngress_Reads(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice, _ := f.login(t, "alice")

	body := mustJSON(t, map[string]any{"chatId": "chat-1", "messageIds": []string{"m1", "m2"}})

	var resp struct {
		Success bool `json:"success"`
		Sent    int  `json:"sent"`
	}
	postJSON(t, f.http.URL+"/api/internal/reads", f.bearer(t, "bob"), body, http.StatusOK, &resp)

	req.True(resp.Success)
	req.Equal(2, resp.Sent)
	for _, id := range []string{"m1", "m2"} {
		var update presence.ReadUpdate
		alice.WaitFor(presence.EventMessageReadUpdate, waitTimeout).Decode(t, &update)
		req.Equal(presence.ReadUpdate{MessageID: id, UserID: "bob", ChatID: "chat-1"}, update)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	resp := testutil.MakeRequest(t, http.MethodGet, f.http.URL+"/", nil, nil)
	_ = resp.Body.Close()

	resp = testutil.MakeRequest(t, http.MethodGet, f.http.URL+"/metrics", nil, nil)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.Contains(string(body), "chatverse_http_requests_total"))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func getJSON(t *testing.T, url string, status int, dst any) {
	t.Helper()
	resp := testutil.MakeRequest(t, http.MethodGet, url, nil, nil)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, status, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func postJSON(t *testing.T, url string, headers map[string]string, body []byte, status int, dst any) {
	t.Helper()
	resp := testutil.MakeRequest(t, http.MethodPost, url, body, headers)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, status, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}
