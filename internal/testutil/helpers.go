// Package testutil provides WebSocket and HTTP helpers shared by the end-to-end tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestOrigin is the Origin header sent by ConnectWebSocket.
const TestOrigin = "http://localhost:3000"

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string, body []byte, headers map[string]string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// WebSocketURL turns an httptest server URL into its /ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket dials url with the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// Event is one decoded server event.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the event payload into dst.
func (e Event) Decode(t *testing.T, dst any) {
	t.Helper()
	if err := json.Unmarshal(e.Data, dst); err != nil {
		t.Fatalf("Failed to decode %s payload %s: %v", e.Name, e.Data, err)
	}
}

// ErrTimeout is returned by Next when no event arrives in time.
var ErrTimeout = errors.New("timed out waiting for event")

// Client is a test-side WebSocket peer speaking the event protocol. A
// background reader splits frames into events, since one frame may carry
// several newline separated events.
type Client struct {
	t      *testing.T
	Conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	err    error
}

// Dial connects to url with TestOrigin and closes the connection at test cleanup.
func Dial(t *testing.T, url string) *Client {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, TestOrigin)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	c := &Client{
		t:      t,
		Conn:   conn,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	t.Cleanup(func() { _ = conn.Close() })
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			c.err = err
			return
		}
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var evt Event
			if err := json.Unmarshal(line, &evt); err != nil {
				c.err = err
				return
			}
			c.events <- evt
		}
	}
}

// Emit sends one event.
func (c *Client) Emit(event string, data any) {
	c.t.Helper()
	if err := c.Conn.WriteJSON(map[string]any{"event": event, "data": data}); err != nil {
		c.t.Fatalf("Failed to send %s: %v", event, err)
	}
}

// Next returns the next event. It returns ErrTimeout when none arrives
// within timeout, or the read error once the connection is closed.
func (c *Client) Next(timeout time.Duration) (Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case evt := <-c.events:
		return evt, nil
	case <-c.done:
		select {
		case evt := <-c.events:
			return evt, nil
		default:
			return Event{}, c.err
		}
	case <-timer.C:
		return Event{}, ErrTimeout
	}
}

// WaitFor skips events until one named name arrives.
func (c *Client) WaitFor(name string, timeout time.Duration) Event {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		evt, err := c.Next(time.Until(deadline))
		if err != nil {
			c.t.Fatalf("Waiting for %s: %v", name, err)
		}
		if evt.Name == name {
			return evt
		}
	}
}

// ExpectNone fails if an event named name arrives within window. Other
// events are discarded.
func (c *Client) ExpectNone(name string, window time.Duration) {
	c.t.Helper()
	deadline := time.Now().Add(window)
	for {
		evt, err := c.Next(time.Until(deadline))
		if errors.Is(err, ErrTimeout) {
			return
		}
		if err != nil {
			c.t.Fatalf("Reading while expecting no %s: %v", name, err)
		}
		if evt.Name == name {
			c.t.Fatalf("Unexpected %s event: %s", name, evt.Data)
		}
	}
}

// Closed waits until the server closes the connection.
func (c *Client) Closed(timeout time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
