package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorFormatting(t *testing.T) {
	t.Run("with provider", func(t *testing.T) {
		err := &Error{
			Kind:     KindInternal,
			Provider: "openai",
			Message:  "API error (status 500): internal error",
		}

		expected := `provider "openai": API error (status 500): internal error`
		if err.Error() != expected {
			t.Errorf("expected %q, got %q", expected, err.Error())
		}
	})

	t.Run("without provider", func(t *testing.T) {
		err := NewValidationError("no providers are configured")

		if err.Error() != "no providers are configured" {
			t.Errorf("unexpected message: %q", err.Error())
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := WrapInternal("openai", "request failed", cause)

		if !errors.Is(err, cause) {
			t.Error("expected error to wrap cause")
		}
		if !strings.Contains(err.Error(), "connection reset") {
			t.Errorf("expected cause in message, got %q", err.Error())
		}
	})
}

func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel *Error
		want     bool
	}{
		{"validation matches", NewValidationError("bad field"), ErrValidation, true},
		{"validation does not match timeout", NewValidationError("bad field"), ErrTimeout, false},
		{"timeout matches", NewTimeoutError("openai", 120*time.Second), ErrTimeout, true},
		{"internal matches", NewInternalError("boom"), ErrInternal, true},
		{"wrapped internal matches", fmt.Errorf("outer: %w", NewInternalError("boom")), ErrInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.sentinel); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NewTimeoutError("x", time.Second)); got != KindTimeout {
		t.Errorf("expected timeout kind, got %q", got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty kind for untagged error, got %q", got)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", NewValidationError("unknown model"), false},
		{"timeout", NewTimeoutError("openai", time.Minute), true},
		{"internal rate limit", NewInternalError("API error (status 429): rate limit"), true},
		{"internal 5xx", NewInternalError("API error (status 503): overloaded"), true},
		{"internal invalid key", NewInternalError("invalid API key (status 401): nope"), false},
		{"internal key not configured", NewInternalError("openai API key not configured"), false},
		{"internal not configured", NewInternalError("provider not configured"), false},
		{"carve-out is case-insensitive", NewInternalError("Invalid API Key"), false},
		{"untagged plain error", errors.New("connection refused"), true},
		{"untagged auth hint", errors.New("backend Not Configured for tenant"), false},
		{"context cancellation", fmt.Errorf("call: %w", context.Canceled), false},
		{"wrapped timeout", fmt.Errorf("outer: %w", NewTimeoutError("x", time.Second)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
