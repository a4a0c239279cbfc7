package gateway

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/tokenstore"
)

func TestRequestToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{
			name:   "query parameter",
			target: "/ws?token=abc123",
			want:   "abc123",
		},
		{
			name:   "bearer header",
			target: "/ws",
			header: map[string]string{"Authorization": "Bearer xyz789"},
			want:   "xyz789",
		},
		{
			name:   "bearer case-insensitive",
			target: "/ws",
			header: map[string]string{"Authorization": "bearer xyz789"},
			want:   "xyz789",
		},
		{
			name:   "query wins over header",
			target: "/ws?token=from-query",
			header: map[string]string{"Authorization": "Bearer from-header"},
			want:   "from-query",
		},
		{
			name:   "basic auth ignored",
			target: "/ws",
			header: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			want:   "",
		},
		{
			name:   "nothing",
			target: "/ws",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := requestToken(r); got != tt.want {
				t.Errorf("requestToken = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatchAPIKey(t *testing.T) {
	keys := []string{"alpha", "beta-key", "gamma"}

	tests := []struct {
		token string
		want  bool
	}{
		{"alpha", true},
		{"beta-key", true},
		{"gamma", true},
		{"delta", false},
		{"alph", false},
		{"alphaa", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := matchAPIKey(tt.token, keys); got != tt.want {
			t.Errorf("matchAPIKey(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}

	if matchAPIKey("anything", nil) {
		t.Error("matchAPIKey with no keys must fail")
	}
}

func TestAuthenticateOpenMode(t *testing.T) {
	g := New(Options{})
	r := httptest.NewRequest("GET", "/ws", nil)
	if _, ok := g.authenticate(r); !ok {
		t.Error("authenticate must pass when no credentials are configured")
	}
}

func TestAuthenticateUISessionToken(t *testing.T) {
	store := tokenstore.NewMemoryStore(nil)
	_ = store.Put(context.Background(), tokenstore.Token{
		Value:     "ui-session-token",
		UserID:    "user-7",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	g := New(Options{
		Config: config.GatewayConfig{
			Auth: config.AuthConfig{UIPassword: "hunter2"},
		},
		Tokens: store,
	})

	r := httptest.NewRequest("GET", "/ws?token=ui-session-token", nil)
	userID, ok := g.authenticate(r)
	if !ok {
		t.Fatal("valid UI-session token rejected")
	}
	if userID != "user-7" {
		t.Errorf("userID = %q, want user-7", userID)
	}

	// With only a UI password configured, arbitrary strings never pass:
	// there is no API-key list to match against.
	r = httptest.NewRequest("GET", "/ws?token=hunter2", nil)
	if _, ok := g.authenticate(r); ok {
		t.Error("the UI password itself must not work as a bearer token")
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	store := tokenstore.NewMemoryStore(nil)
	_ = store.Put(context.Background(), tokenstore.Token{
		Value:     "stale",
		UserID:    "user-7",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	g := New(Options{
		Config: config.GatewayConfig{
			Auth: config.AuthConfig{APIKeys: []string{"real-key"}},
		},
		Tokens: store,
	})

	r := httptest.NewRequest("GET", "/ws?token=stale", nil)
	if _, ok := g.authenticate(r); ok {
		t.Error("expired token accepted")
	}

	// API keys still work alongside the store.
	r = httptest.NewRequest("GET", "/ws?token=real-key", nil)
	if _, ok := g.authenticate(r); !ok {
		t.Error("API key rejected")
	}
}

func TestOriginAllowed(t *testing.T) {
	g := New(Options{
		Config: config.GatewayConfig{
			AllowedOrigins: []string{"https://app.example.com", "http://localhost:3000"},
		},
	})

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://app.example.com", true},
		{"http://localhost:3000", true},
		{"https://app.example.com.evil.io", false},
		{"https://sub.app.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := g.originAllowed(r); got != tt.want {
			t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	open := New(Options{})
	r := httptest.NewRequest("GET", "/ws", nil)
	if !open.originAllowed(r) {
		t.Error("empty allow-list must admit every origin")
	}
}
