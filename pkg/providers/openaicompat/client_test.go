package openaicompat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	testhelpers "mercator-hq/ganymede/internal/providers"
	"mercator-hq/ganymede/pkg/providers"
)

func TestSendCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("Hello, world!", "gpt-4"),
	})

	provider := New(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()))
	defer provider.Close()

	resp, err := provider.SendCompletion(context.Background(), testhelpers.TestCompletionRequest(
		"gpt-4", testhelpers.TestMessage(providers.RoleUser, "Hello")))
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}

	if resp.Content != "Hello, world!" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != providers.FinishReasonStop {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 30 {
		t.Errorf("total tokens = %d, want 30", resp.Usage.TotalTokens)
	}

	captured := mock.LastRequest()
	if captured == nil {
		t.Fatal("no request captured")
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestSendCompletion_SystemStaysInMessages(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("ok", "gpt-4"),
	})

	provider := New(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()))
	defer provider.Close()

	_, err := provider.SendCompletion(context.Background(), testhelpers.TestCompletionRequest("gpt-4",
		testhelpers.TestMessage(providers.RoleSystem, "You are terse."),
		testhelpers.TestMessage(providers.RoleUser, "Hello"),
	))
	if err != nil {
		t.Fatalf("SendCompletion failed: %v", err)
	}

	var body struct {
		Messages []struct {
			Role    string      `json:"role"`
			Content interface{} `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(mock.LastRequest().Body, &body); err != nil {
		t.Fatalf("failed to decode captured body: %v", err)
	}

	if len(body.Messages) != 2 {
		t.Fatalf("messages = %+v", body.Messages)
	}
	if body.Messages[0].Role != providers.RoleSystem {
		t.Errorf("first role = %q, system must stay in the messages array", body.Messages[0].Role)
	}
	if content, ok := body.Messages[1].Content.(string); !ok || content != "Hello" {
		t.Errorf("content = %#v, want bare string", body.Messages[1].Content)
	}
}

func TestSendCompletion_ToolChoiceOnWire(t *testing.T) {
	tests := []struct {
		name   string
		choice *providers.ToolChoice
		want   interface{}
	}{
		{"auto", &providers.ToolChoice{Mode: providers.ToolChoiceAuto}, "auto"},
		{"none", &providers.ToolChoice{Mode: providers.ToolChoiceNone}, "none"},
		{"required", &providers.ToolChoice{Mode: providers.ToolChoiceRequired}, "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse("/chat/completions", testhelpers.MockResponse{
				StatusCode: 200,
				Body:       testhelpers.MockOpenAIResponse("ok", "gpt-4"),
			})

			provider := New(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()))
			defer provider.Close()

			req := testhelpers.TestCompletionRequest("gpt-4", testhelpers.TestMessage(providers.RoleUser, "hi"))
			req.ToolChoice = tt.choice

			if _, err := provider.SendCompletion(context.Background(), req); err != nil {
				t.Fatalf("SendCompletion failed: %v", err)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(mock.LastRequest().Body, &body); err != nil {
				t.Fatalf("failed to decode captured body: %v", err)
			}
			if body["tool_choice"] != tt.want {
				t.Errorf("tool_choice = %#v, want %#v", body["tool_choice"], tt.want)
			}
		})
	}
}

func TestSendCompletion_NotConfigured(t *testing.T) {
	config := testhelpers.TestConfig("groq", "openai-compatible")
	config.APIKey = ""
	provider := New(config)
	defer provider.Close()

	_, err := provider.SendCompletion(context.Background(), testhelpers.TestCompletionRequest(
		"llama-3.3-70b", testhelpers.TestMessage(providers.RoleUser, "hi")))
	testhelpers.AssertKind(t, err, providers.KindValidation)
	testhelpers.AssertContains(t, err.Error(), "groq API key not configured")
}

func TestStreamCompletion(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StreamChunks: []string{
			testhelpers.MockOpenAIStreamChunk("Hel", ""),
			testhelpers.MockOpenAIStreamChunk("lo", ""),
			testhelpers.MockOpenAIStreamChunk("", "stop"),
		},
	})

	provider := New(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()))
	defer provider.Close()

	chunks, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest(
		"gpt-4", testhelpers.TestMessage(providers.RoleUser, "Hello")))
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	testhelpers.AssertNoError(t, err)

	if got := testhelpers.ConcatenateChunks(collected); got != "Hello" {
		t.Errorf("concatenated deltas = %q", got)
	}

	terminal := collected[len(collected)-1]
	if !terminal.Done {
		t.Fatal("last chunk must be terminal")
	}
	if terminal.FinishReason != providers.FinishReasonStop {
		t.Errorf("finish reason = %q", terminal.FinishReason)
	}

	for _, chunk := range collected[:len(collected)-1] {
		if chunk.Done || chunk.FinishReason != "" {
			t.Error("finish reason belongs on the terminal chunk only")
		}
	}
}

func TestStreamCompletion_MalformedFragmentSkipped(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StreamChunks: []string{
			testhelpers.MockOpenAIStreamChunk("Hello", ""),
			`{not json`,
			testhelpers.MockOpenAIStreamChunk(" again", "stop"),
		},
	})

	provider := New(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()))
	defer provider.Close()

	chunks, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest(
		"gpt-4", testhelpers.TestMessage(providers.RoleUser, "Hello")))
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	testhelpers.AssertNoError(t, err)

	if got := testhelpers.ConcatenateChunks(collected); got != "Hello again" {
		t.Errorf("concatenated deltas = %q", got)
	}
}

func TestStreamCompletion_ToolCallDeltas(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	toolChunk := `{"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"Oslo\"}"}}]},"finish_reason":""}]}`
	finishChunk := `{"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StreamChunks: []string{toolChunk, finishChunk},
	})

	provider := New(testhelpers.TestConfigWithURL("openai", "openai", mock.URL()))
	defer provider.Close()

	chunks, err := provider.StreamCompletion(context.Background(), testhelpers.TestStreamingRequest(
		"gpt-4", testhelpers.TestMessage(providers.RoleUser, "weather?")))
	if err != nil {
		t.Fatalf("StreamCompletion failed: %v", err)
	}

	collected, err := testhelpers.CollectStreamChunks(t, chunks)
	testhelpers.AssertNoError(t, err)

	var sawToolCall bool
	for _, chunk := range collected {
		for _, call := range chunk.ToolCalls {
			sawToolCall = true
			if call.Function.Name != "get_weather" {
				t.Errorf("tool name = %q", call.Function.Name)
			}
			if !strings.Contains(call.Function.Arguments, "Oslo") {
				t.Errorf("arguments = %q", call.Function.Arguments)
			}
		}
	}
	if !sawToolCall {
		t.Fatal("expected a tool call delta")
	}

	terminal := collected[len(collected)-1]
	if terminal.FinishReason != providers.FinishReasonToolCalls {
		t.Errorf("finish reason = %q", terminal.FinishReason)
	}
}

func TestTransformMessage_MultiModalParts(t *testing.T) {
	msg := providers.Message{
		Role: providers.RoleUser,
		Parts: []providers.ContentPart{
			{Type: providers.PartTypeText, Text: "describe"},
			{Type: providers.PartTypeImage, ImageData: "aGk=", MediaType: "image/png"},
			{Type: providers.PartTypeImage, ImageURL: "https://example.com/x.png"},
		},
	}

	out := transformMessage(&msg)
	parts, ok := out.Content.([]chatContentPart)
	if !ok || len(parts) != 3 {
		t.Fatalf("content = %#v", out.Content)
	}
	if parts[1].ImageURL == nil || parts[1].ImageURL.URL != "data:image/png;base64,aGk=" {
		t.Errorf("inline image = %+v", parts[1].ImageURL)
	}
	if parts[2].ImageURL == nil || parts[2].ImageURL.URL != "https://example.com/x.png" {
		t.Errorf("url image = %+v", parts[2].ImageURL)
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"stop", providers.FinishReasonStop},
		{"length", providers.FinishReasonLength},
		{"tool_calls", providers.FinishReasonToolCalls},
		{"function_call", providers.FinishReasonToolCalls},
		{"content_filter", providers.FinishReasonContentFilter},
		{"other", "other"},
	}

	for _, tt := range tests {
		if got := normalizeFinishReason(tt.in); got != tt.want {
			t.Errorf("normalizeFinishReason(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
