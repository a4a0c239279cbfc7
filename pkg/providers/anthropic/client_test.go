package anthropic

import (
	"context"
	"encoding/json"
	"testing"

	testhelpers "mercator-hq/ganymede/internal/providers"
	"mercator-hq/ganymede/pkg/providers"
)

func TestSendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/messages", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockAnthropicResponse("Hello, world!", "claude-sonnet-4"),
	})

	provider := New(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	defer provider.Close()

	resp, err := provider.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model:     "claude-sonnet-4",
		Messages:  []providers.Message{testhelpers.TestMessage(providers.RoleUser, "Hello")},
		MaxTokens: 1024,
	})
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}

	if resp.Content != "Hello, world!" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Model != "claude-sonnet-4" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("total tokens = %d, want 30", resp.Usage.TotalTokens)
	}

	captured := mock.LastRequest()
	if captured == nil {
		t.Fatal("no request captured")
	}
	if got := captured.Header.Get("x-api-key"); got != "test-key" {
		t.Errorf("x-api-key = %q", got)
	}
	if got := captured.Header.Get("anthropic-version"); got != APIVersion {
		t.Errorf("anthropic-version = %q, want %q", got, APIVersion)
	}
	if got := captured.Header.Get("anthropic-beta"); got != PromptCachingBeta {
		t.Errorf("anthropic-beta = %q, want %q", got, PromptCachingBeta)
	}
}

func TestSendCompletion_SystemSplitOnWire(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/messages", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockAnthropicResponse("ok", "claude-sonnet-4"),
	})

	provider := New(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	defer provider.Close()

	_, err := provider.SendCompletion(context.Background(), &providers.CompletionRequest{
		Model: "claude-sonnet-4",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "You are a helper.\n\n## Current Context\nToday is Tuesday."},
			testhelpers.TestMessage(providers.RoleUser, "Hello"),
		},
	})
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}

	var body struct {
		System []struct {
			Type         string `json:"type"`
			Text         string `json:"text"`
			CacheControl *struct {
				Type string `json:"type"`
			} `json:"cache_control"`
		} `json:"system"`
	}
	if err := json.Unmarshal(mock.LastRequest().Body, &body); err != nil {
		t.Fatalf("failed to decode captured body: %v", err)
	}

	if len(body.System) != 2 {
		t.Fatalf("system blocks = %+v", body.System)
	}
	if body.System[0].Text != "You are a helper." {
		t.Errorf("prefix = %q", body.System[0].Text)
	}
	if body.System[0].CacheControl == nil || body.System[0].CacheControl.Type != "ephemeral" {
		t.Errorf("prefix cache control = %+v", body.System[0].CacheControl)
	}
	if body.System[1].Text != "## Current Context\nToday is Tuesday." {
		t.Errorf("suffix = %q", body.System[1].Text)
	}
	if body.System[1].CacheControl != nil {
		t.Error("suffix must not be cached")
	}
}

func TestSendCompletion_Validation(t *testing.T) {
	provider := New(testhelpers.TestConfig("anthropic", "anthropic"))
	defer provider.Close()

	tests := []struct {
		name    string
		req     *providers.CompletionRequest
		wantErr string
	}{
		{"nil request", nil, "request cannot be nil"},
		{
			"empty model",
			&providers.CompletionRequest{
				Messages: []providers.Message{testhelpers.TestMessage(providers.RoleUser, "Hello")},
			},
			"model is required",
		},
		{
			"empty messages",
			&providers.CompletionRequest{Model: "claude-sonnet-4"},
			"at least one message is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := provider.SendCompletion(context.Background(), tt.req)
			testhelpers.AssertKind(t, err, providers.KindValidation)
			testhelpers.AssertContains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSendCompletion_NotConfigured(t *testing.T) {
	config := testhelpers.TestConfig("anthropic", "anthropic")
	config.APIKey = ""
	provider := New(config)
	defer provider.Close()

	_, err := provider.SendCompletion(context.Background(), testhelpers.TestCompletionRequest(
		"claude-sonnet-4", testhelpers.TestMessage(providers.RoleUser, "Hello")))
	testhelpers.AssertKind(t, err, providers.KindValidation)
	testhelpers.AssertContains(t, err.Error(), "anthropic API key not configured")
	if providers.Retryable(err) {
		t.Error("configuration errors must not be retryable")
	}
}

func TestSendCompletion_AuthError(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/messages", testhelpers.MockAuthError())

	provider := New(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	defer provider.Close()

	_, err := provider.SendCompletion(context.Background(), testhelpers.TestCompletionRequest(
		"claude-sonnet-4", testhelpers.TestMessage(providers.RoleUser, "Hello")))
	testhelpers.AssertKind(t, err, providers.KindInternal)
	if providers.Retryable(err) {
		t.Error("auth errors must not be retryable")
	}
}

func TestStreamCompletion_Text(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/messages", testhelpers.MockResponse{
		RawEvents: []string{
			testhelpers.MockAnthropicEvent("message_start", map[string]interface{}{
				"type": "message_start",
				"message": map[string]interface{}{
					"id":    "msg_1",
					"model": "claude-sonnet-4",
					"usage": map[string]interface{}{"input_tokens": 12},
				},
			}),
			testhelpers.MockAnthropicEvent("content_block_start", map[string]interface{}{
				"type": "content_block_start", "index": 0,
				"content_block": map[string]interface{}{"type": "text", "text": ""},
			}),
			testhelpers.MockAnthropicEvent("content_block_delta", map[string]interface{}{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]interface{}{"type": "text_delta", "text": "Hello"},
			}),
			testhelpers.MockAnthropicEvent("content_block_delta", map[string]interface{}{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]interface{}{"type": "text_delta", "text": ", world"},
			}),
			testhelpers.MockAnthropicEvent("content_block_stop", map[string]interface{}{
				"type": "content_block_stop", "index": 0,
			}),
			testhelpers.MockAnthropicEvent("message_delta", map[string]interface{}{
				"type":  "message_delta",
				"delta": map[string]interface{}{"stop_reason": "end_turn"},
				"usage": map[string]interface{}{"output_tokens": 7},
			}),
			testhelpers.MockAnthropicEvent("message_stop", map[string]interface{}{
				"type": "message_stop",
			}),
		},
	})

	provider := New(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	defer provider.Close()

	chunks, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest(
		"claude-sonnet-4", testhelpers.TestMessage(providers.RoleUser, "Hello")))
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	testhelpers.AssertNoError(t, err)

	if got := testhelpers.ConcatenateChunks(collected); got != "Hello, world" {
		t.Errorf("concatenated deltas = %q", got)
	}

	terminal := collected[len(collected)-1]
	if !terminal.Done {
		t.Fatal("last chunk must be terminal")
	}
	if terminal.FinishReason != providers.FinishReasonStop {
		t.Errorf("finish reason = %q", terminal.FinishReason)
	}
	if terminal.Usage == nil || terminal.Usage.PromptTokens != 12 || terminal.Usage.CompletionTokens != 7 || terminal.Usage.TotalTokens != 19 {
		t.Errorf("usage = %+v", terminal.Usage)
	}

	for _, chunk := range collected[:len(collected)-1] {
		if chunk.Done {
			t.Error("only the last chunk may be terminal")
		}
	}
}

func TestStreamCompletion_ToolUse(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/messages", testhelpers.MockResponse{
		RawEvents: []string{
			testhelpers.MockAnthropicEvent("message_start", map[string]interface{}{
				"type": "message_start",
				"message": map[string]interface{}{
					"id": "msg_2", "model": "claude-sonnet-4",
					"usage": map[string]interface{}{"input_tokens": 9},
				},
			}),
			testhelpers.MockAnthropicEvent("content_block_start", map[string]interface{}{
				"type": "content_block_start", "index": 0,
				"content_block": map[string]interface{}{"type": "tool_use", "id": "toolu_1", "name": "files__read"},
			}),
			testhelpers.MockAnthropicEvent("content_block_delta", map[string]interface{}{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": `{"pa`},
			}),
			testhelpers.MockAnthropicEvent("content_block_delta", map[string]interface{}{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": `th":"a.go"}`},
			}),
			testhelpers.MockAnthropicEvent("content_block_stop", map[string]interface{}{
				"type": "content_block_stop", "index": 0,
			}),
			testhelpers.MockAnthropicEvent("message_delta", map[string]interface{}{
				"type":  "message_delta",
				"delta": map[string]interface{}{"stop_reason": "tool_use"},
				"usage": map[string]interface{}{"output_tokens": 5},
			}),
			testhelpers.MockAnthropicEvent("message_stop", map[string]interface{}{
				"type": "message_stop",
			}),
		},
	})

	provider := New(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	defer provider.Close()

	chunks, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest(
		"claude-sonnet-4", testhelpers.TestMessage(providers.RoleUser, "read main")))
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	testhelpers.AssertNoError(t, err)

	var toolChunks []*providers.StreamChunk
	for _, chunk := range collected {
		if len(chunk.ToolCalls) > 0 {
			toolChunks = append(toolChunks, chunk)
		}
	}
	if len(toolChunks) != 1 {
		t.Fatalf("expected exactly one assembled tool call chunk, got %d", len(toolChunks))
	}

	call := toolChunks[0].ToolCalls[0]
	if call.ID != "toolu_1" {
		t.Errorf("tool call id = %q", call.ID)
	}
	if call.Function.Name != "files.read" {
		t.Errorf("tool name = %q, want desanitized files.read", call.Function.Name)
	}
	if call.Function.Arguments != `{"path":"a.go"}` {
		t.Errorf("arguments = %q", call.Function.Arguments)
	}

	terminal := collected[len(collected)-1]
	if terminal.FinishReason != providers.FinishReasonToolCalls {
		t.Errorf("finish reason = %q", terminal.FinishReason)
	}
}

func TestStreamCompletion_Thinking(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/messages", testhelpers.MockResponse{
		RawEvents: []string{
			testhelpers.MockAnthropicEvent("message_start", map[string]interface{}{
				"type": "message_start",
				"message": map[string]interface{}{
					"id": "msg_3", "model": "claude-sonnet-4",
					"usage": map[string]interface{}{"input_tokens": 4},
				},
			}),
			testhelpers.MockAnthropicEvent("content_block_start", map[string]interface{}{
				"type": "content_block_start", "index": 0,
				"content_block": map[string]interface{}{"type": "thinking"},
			}),
			testhelpers.MockAnthropicEvent("content_block_delta", map[string]interface{}{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]interface{}{"type": "thinking_delta", "thinking": "Let me think"},
			}),
			testhelpers.MockAnthropicEvent("content_block_delta", map[string]interface{}{
				"type": "content_block_delta", "index": 0,
				"delta": map[string]interface{}{"type": "signature_delta", "signature": "sig123"},
			}),
			testhelpers.MockAnthropicEvent("content_block_stop", map[string]interface{}{
				"type": "content_block_stop", "index": 0,
			}),
			testhelpers.MockAnthropicEvent("content_block_start", map[string]interface{}{
				"type": "content_block_start", "index": 1,
				"content_block": map[string]interface{}{"type": "text", "text": ""},
			}),
			testhelpers.MockAnthropicEvent("content_block_delta", map[string]interface{}{
				"type": "content_block_delta", "index": 1,
				"delta": map[string]interface{}{"type": "text_delta", "text": "4"},
			}),
			testhelpers.MockAnthropicEvent("content_block_stop", map[string]interface{}{
				"type": "content_block_stop", "index": 1,
			}),
			testhelpers.MockAnthropicEvent("message_delta", map[string]interface{}{
				"type":  "message_delta",
				"delta": map[string]interface{}{"stop_reason": "end_turn"},
				"usage": map[string]interface{}{"output_tokens": 3},
			}),
			testhelpers.MockAnthropicEvent("message_stop", map[string]interface{}{
				"type": "message_stop",
			}),
		},
	})

	provider := New(testhelpers.TestConfigWithURL("anthropic", "anthropic", mock.URL()))
	defer provider.Close()

	req := testhelpers.TestStreamingRequest("claude-sonnet-4", testhelpers.TestMessage(providers.RoleUser, "2+2?"))
	req.Thinking = &providers.ThinkingConfig{Adaptive: true}

	chunks, err := provider.StreamCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	testhelpers.AssertNoError(t, err)

	var thinkingDelta, textDelta string
	for _, chunk := range collected {
		if chunk.Done {
			continue
		}
		if chunk.Metadata != nil && chunk.Metadata["type"] == "thinking" {
			thinkingDelta += chunk.Delta
		} else {
			textDelta += chunk.Delta
		}
	}
	if thinkingDelta != "Let me think" {
		t.Errorf("thinking deltas = %q", thinkingDelta)
	}
	if textDelta != "4" {
		t.Errorf("text deltas = %q", textDelta)
	}

	terminal := collected[len(collected)-1]
	blocks, ok := terminal.Metadata[providers.MetadataThinkingBlocks].([]providers.ThinkingBlock)
	if !ok || len(blocks) != 1 {
		t.Fatalf("terminal thinking blocks = %#v", terminal.Metadata)
	}
	if blocks[0].Thinking != "Let me think" || blocks[0].Signature != "sig123" {
		t.Errorf("block = %+v", blocks[0])
	}
}
