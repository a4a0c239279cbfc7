package providers

import (
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

// TestConfig returns a test provider configuration.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		Timeout:             5 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// TestMessage creates a test message.
func TestMessage(role, content string) providers.Message {
	return providers.Message{
		Role:    role,
		Content: content,
	}
}

// TestCompletionRequest creates a test completion request.
func TestCompletionRequest(model string, messages ...providers.Message) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   100,
	}
}

// TestStreamingRequest creates a test streaming request.
func TestStreamingRequest(model string, messages ...providers.Message) *providers.CompletionRequest {
	req := TestCompletionRequest(model, messages...)
	req.Stream = true
	return req
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertKind fails the test if err does not carry the expected taxonomy kind.
func AssertKind(t *testing.T, err error, kind providers.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := providers.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %q: %v", kind, got, err)
	}
}

// AssertEqual fails the test if got != expected.
func AssertEqual(t *testing.T, got, expected interface{}) {
	t.Helper()
	if got != expected {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

// AssertContains fails the test if haystack doesn't contain needle.
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	found := false
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

// CollectStreamChunks drains a stream channel, returning the collected
// chunks and the first chunk-borne error.
func CollectStreamChunks(t *testing.T, chunks <-chan *providers.StreamChunk) ([]*providers.StreamChunk, error) {
	t.Helper()

	var collected []*providers.StreamChunk
	for chunk := range chunks {
		if chunk.Error != nil {
			return collected, chunk.Error
		}
		collected = append(collected, chunk)
	}

	return collected, nil
}

// ConcatenateChunks concatenates the delta content from all chunks.
func ConcatenateChunks(chunks []*providers.StreamChunk) string {
	var result string
	for _, chunk := range chunks {
		result += chunk.Delta
	}
	return result
}

// WaitForCondition waits for a condition to become true within a timeout.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}

		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s: %s", timeout, message)
		}

		<-ticker.C
	}
}
