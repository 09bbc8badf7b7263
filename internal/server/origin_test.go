package server

import (
	"log/slog"
	"net/http/httptest"
	"testing"
)

// TestNormalizeOrigin verifies scheme and host lowercasing and rejection of
// values that are not origins.
func TestNormalizeOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   string
		ok     bool
	}{
		{"http://localhost:3000", "http://localhost:3000", true},
		{"HTTPS://Chat.Example.COM", "https://chat.example.com", true},
		{"https://chat.example.com/path?q=1", "https://chat.example.com", true},
		{"localhost:3000", "", false},
		{"/relative", "", false},
		{"://broken", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			got, ok := normalizeOrigin(tt.origin)
			if ok != tt.ok || got != tt.want {
				t.Errorf("normalizeOrigin(%q) = %q, %v; want %q, %v", tt.origin, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// TestOriginPolicy verifies which Origin headers may open a WebSocket.
func TestOriginPolicy(t *testing.T) {
	policy := newOriginPolicy(slog.Default(), []string{"http://localhost:3000", "not an origin", ""})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"Allowed origin", "http://localhost:3000", true},
		{"Allowed origin in another case", "HTTP://LOCALHOST:3000", true},
		{"Other port", "http://localhost:8080", false},
		{"Missing header", "", false},
		{"Garbage header", "%%%", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := policy.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

// TestOriginPolicyWildcard verifies that "*" accepts any well-formed origin.
func TestOriginPolicyWildcard(t *testing.T) {
	policy := newOriginPolicy(slog.Default(), []string{"*"})

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "https://anywhere.example")
	if !policy.isAllowed(r) {
		t.Error("wildcard policy rejected a valid origin")
	}

	r.Header.Del("Origin")
	if policy.isAllowed(r) {
		t.Error("wildcard policy accepted a request without Origin")
	}
}
