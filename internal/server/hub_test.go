package server

import (
	"testing"
	"time"
)

func runHub(t *testing.T, hub *Hub) {
	t.Helper()
	go hub.Run()
	t.Cleanup(func() {
		if err := hub.Shutdown(time.Second); err != nil {
			t.Errorf("Hub shutdown failed: %v", err)
		}
	})
}

// TestHubIgnoresNilRegistration verifies that a nil registration is skipped
// and the hub keeps serving its channels.
func TestHubIgnoresNilRegistration(t *testing.T) {
	hub := newTestHub(t, NewConfig())
	runHub(t, hub)

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(time.Second):
		t.Fatal("Hub did not accept the registration")
	}

	select {
	case hub.GetUnregisterChan() <- NewClient(nil, hub, "127.0.0.1:12345"):
	case <-time.After(time.Second):
		t.Fatal("Hub stopped serving after a nil registration")
	}

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("Expected no clients, got %d", count)
	}
}

// TestHubUnregisterUnknownClient verifies that unregistering a client the hub
// never started is a no-op.
func TestHubUnregisterUnknownClient(t *testing.T) {
	hub := newTestHub(t, NewConfig())
	runHub(t, hub)
	client := NewClient(nil, hub, "127.0.0.1:12345")

	for i := 0; i < 2; i++ {
		select {
		case hub.GetUnregisterChan() <- client:
		case <-time.After(time.Second):
			t.Fatal("Failed to unregister client")
		}
	}

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("Expected no clients, got %d", count)
	}
}

// TestHubRefusesClientsAfterShutdown verifies that add and remove return once
// the hub is stopped instead of blocking.
func TestHubRefusesClientsAfterShutdown(t *testing.T) {
	hub := newTestHub(t, NewConfig())
	go hub.Run()
	if err := hub.Shutdown(time.Second); err != nil {
		t.Fatalf("Hub shutdown failed: %v", err)
	}

	client := NewClient(nil, hub, "127.0.0.1:12345")
	if hub.add(client) {
		t.Error("Stopped hub accepted a client")
	}
	hub.remove(client)
}
