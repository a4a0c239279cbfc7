package providers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockServer is a mock HTTP server for testing provider adapters. It
// simulates provider API responses including errors and SSE streams, and
// captures every request it receives for wire-format assertions.
type MockServer struct {
	server    *httptest.Server
	responses map[string]MockResponse
	requests  []CapturedRequest
	mu        sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string

	// StreamChunks are JSON fragments delivered as "data: {json}" SSE lines
	// terminated by "data: [DONE]".
	StreamChunks []string

	// RawEvents are complete SSE events written verbatim, for providers
	// with named events or without a [DONE] sentinel.
	RawEvents []string
}

// CapturedRequest records one request seen by the server.
type CapturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// NewMockServer creates a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse sets a mock response for a specific endpoint path.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = response
}

// RequestCount returns the number of requests received.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// LastRequest returns the most recent captured request, or nil.
func (ms *MockServer) LastRequest() *CapturedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return nil
	}
	req := ms.requests[len(ms.requests)-1]
	return &req
}

// Reset clears captured requests.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = nil
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, CapturedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	response, ok := ms.responses[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	if len(response.StreamChunks) > 0 || len(response.RawEvents) > 0 {
		ms.handleStream(w, response)
		return
	}

	w.WriteHeader(response.StatusCode)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// handleStream writes a Server-Sent Events response.
func (ms *MockServer) handleStream(w http.ResponseWriter, response MockResponse) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	for _, event := range response.RawEvents {
		fmt.Fprint(w, event)
		flusher.Flush()
	}

	for _, chunk := range response.StreamChunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
		flusher.Flush()
	}

	if len(response.StreamChunks) > 0 {
		fmt.Fprintf(w, "data: [DONE]\n\n")
		flusher.Flush()
	}
}

// MockOpenAIResponse creates a mock chat completion response body.
func MockOpenAIResponse(content string, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}

// MockOpenAIStreamChunk creates a mock chat completion stream fragment.
func MockOpenAIStreamChunk(delta string, finishReason string) string {
	chunk := map[string]interface{}{
		"id":      "chatcmpl-123",
		"object":  "chat.completion.chunk",
		"created": time.Now().Unix(),
		"model":   "gpt-4",
		"choices": []map[string]interface{}{
			{
				"index": 0,
				"delta": map[string]interface{}{
					"content": delta,
				},
				"finish_reason": finishReason,
			},
		},
	}

	bytes, _ := json.Marshal(chunk)
	return string(bytes)
}

// MockAnthropicResponse creates a mock messages response body.
func MockAnthropicResponse(content string, model string) map[string]interface{} {
	return map[string]interface{}{
		"id":   "msg_123",
		"type": "message",
		"role": "assistant",
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": content,
			},
		},
		"model":       model,
		"stop_reason": "end_turn",
		"usage": map[string]interface{}{
			"input_tokens":  10,
			"output_tokens": 20,
		},
	}
}

// MockAnthropicEvent creates one named SSE event, written verbatim.
func MockAnthropicEvent(eventType string, data interface{}) string {
	bytes, _ := json.Marshal(data)
	return fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, bytes)
}

// MockGoogleResponse creates a mock generateContent response body.
func MockGoogleResponse(content string, model string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"role": "model",
					"parts": []map[string]interface{}{
						{"text": content},
					},
				},
				"finishReason": "STOP",
				"index":        0,
			},
		},
		"usageMetadata": map[string]interface{}{
			"promptTokenCount":     10,
			"candidatesTokenCount": 20,
			"totalTokenCount":      30,
		},
		"modelVersion": model,
		"responseId":   "resp_123",
	}
}

// MockGoogleStreamChunk creates one streamGenerateContent SSE event,
// written verbatim. Google streams carry no [DONE] sentinel.
func MockGoogleStreamChunk(text string, finishReason string) string {
	candidate := map[string]interface{}{
		"content": map[string]interface{}{
			"role": "model",
			"parts": []map[string]interface{}{
				{"text": text},
			},
		},
		"index": 0,
	}
	if finishReason != "" {
		candidate["finishReason"] = finishReason
	}

	chunk := map[string]interface{}{
		"candidates": []map[string]interface{}{candidate},
		"responseId": "resp_123",
	}

	bytes, _ := json.Marshal(chunk)
	return fmt.Sprintf("data: %s\n\n", bytes)
}

// MockErrorResponse creates a mock error response.
func MockErrorResponse(statusCode int, message string) MockResponse {
	body := map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "invalid_request_error",
			"code":    statusCode,
		},
	}

	return MockResponse{
		StatusCode: statusCode,
		Body:       body,
	}
}

// MockAuthError creates a 401 authentication error response.
func MockAuthError() MockResponse {
	return MockErrorResponse(http.StatusUnauthorized, "Invalid API key")
}

// MockRateLimitError creates a 429 rate limit error response.
func MockRateLimitError(retryAfter int) MockResponse {
	response := MockErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded")
	response.Headers = map[string]string{
		"Retry-After": fmt.Sprintf("%d", retryAfter),
	}
	return response
}

// MockTimeoutError creates a slow response to simulate a timeout.
func MockTimeoutError(delay time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       MockOpenAIResponse("timeout", "gpt-4"),
		Delay:      delay,
	}
}

// MockServerError creates a 500 internal server error response.
func MockServerError() MockResponse {
	return MockErrorResponse(http.StatusInternalServerError, "Internal server error")
}
