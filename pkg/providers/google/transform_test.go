package google

import (
	"reflect"
	"testing"

	"mercator-hq/ganymede/pkg/providers"
)

func userMessage(content string) providers.Message {
	return providers.Message{Role: providers.RoleUser, Content: content}
}

func TestTransformRequest_SystemInstruction(t *testing.T) {
	req := &providers.CompletionRequest{
		Model: "gemini-2.5-flash",
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: "You are a helper."},
			{Role: providers.RoleSystem, Content: "Be terse."},
			userMessage("Hello"),
			{Role: providers.RoleAssistant, Content: "Hi there"},
		},
	}

	wireReq, err := transformRequest(req)
	if err != nil {
		t.Fatalf("transformRequest failed: %v", err)
	}

	if wireReq.SystemInstruction == nil {
		t.Fatal("expected systemInstruction")
	}
	if got := wireReq.SystemInstruction.Parts[0].Text; got != "You are a helper.\n\nBe terse." {
		t.Errorf("systemInstruction = %q", got)
	}
	if wireReq.SystemInstruction.Role != "" {
		t.Errorf("systemInstruction role = %q, want empty", wireReq.SystemInstruction.Role)
	}

	if len(wireReq.Contents) != 2 {
		t.Fatalf("contents len = %d, want 2", len(wireReq.Contents))
	}
	if wireReq.Contents[0].Role != "user" {
		t.Errorf("first role = %q, want user", wireReq.Contents[0].Role)
	}
	if wireReq.Contents[1].Role != "model" {
		t.Errorf("second role = %q, want model", wireReq.Contents[1].Role)
	}
}

func TestTransformGenerationConfig(t *testing.T) {
	defaults := &providers.CompletionRequest{Messages: []providers.Message{userMessage("hi")}}
	if cfg := transformGenerationConfig(defaults); cfg != nil {
		t.Errorf("all-default request produced config %+v, want nil", cfg)
	}

	req := &providers.CompletionRequest{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   256,
		Stop:        []string{"END"},
	}
	cfg := transformGenerationConfig(req)
	if cfg == nil {
		t.Fatal("expected generation config")
	}
	if cfg.Temperature != 0.7 || cfg.TopP != 0.9 || cfg.MaxOutputTokens != 256 {
		t.Errorf("config = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.StopSequences, []string{"END"}) {
		t.Errorf("stopSequences = %v", cfg.StopSequences)
	}
}

func TestTransformThinking(t *testing.T) {
	if got := transformThinking(nil); got != nil {
		t.Errorf("nil config = %+v, want nil", got)
	}

	adaptive := transformThinking(&providers.ThinkingConfig{Adaptive: true})
	if adaptive == nil || !adaptive.IncludeThoughts || adaptive.ThinkingBudget != 0 {
		t.Errorf("adaptive = %+v", adaptive)
	}

	budgeted := transformThinking(&providers.ThinkingConfig{Enabled: true, BudgetTokens: 2048})
	if budgeted == nil || !budgeted.IncludeThoughts || budgeted.ThinkingBudget != 2048 {
		t.Errorf("budgeted = %+v", budgeted)
	}

	if got := transformThinking(&providers.ThinkingConfig{}); got != nil {
		t.Errorf("disabled config = %+v, want nil", got)
	}
}

func TestTransformToolChoice(t *testing.T) {
	tests := []struct {
		name      string
		choice    *providers.ToolChoice
		wantMode  string
		wantNames []string
	}{
		{name: "nil omitted", choice: nil},
		{name: "auto", choice: &providers.ToolChoice{Mode: providers.ToolChoiceAuto}, wantMode: "AUTO"},
		{name: "none", choice: &providers.ToolChoice{Mode: providers.ToolChoiceNone}, wantMode: "NONE"},
		{name: "required", choice: &providers.ToolChoice{Mode: providers.ToolChoiceRequired}, wantMode: "ANY"},
		{
			name:      "named restricts to one function",
			choice:    &providers.ToolChoice{Mode: providers.ToolChoiceNamed, Name: "files.read"},
			wantMode:  "ANY",
			wantNames: []string{"files.read"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transformToolChoice(tt.choice)
			if tt.wantMode == "" {
				if got != nil {
					t.Errorf("toolConfig = %+v, want nil", got)
				}
				return
			}
			if got == nil || got.FunctionCallingConfig == nil {
				t.Fatal("expected functionCallingConfig")
			}
			if got.FunctionCallingConfig.Mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", got.FunctionCallingConfig.Mode, tt.wantMode)
			}
			if !reflect.DeepEqual(got.FunctionCallingConfig.AllowedFunctionNames, tt.wantNames) {
				t.Errorf("allowedFunctionNames = %v, want %v",
					got.FunctionCallingConfig.AllowedFunctionNames, tt.wantNames)
			}
		})
	}
}

func TestTransformMessage_ToolResult(t *testing.T) {
	callNames := map[string]string{"call_abc": "get_weather"}

	object := providers.Message{
		Role:       providers.RoleTool,
		Content:    `{"temp": 20}`,
		ToolCallID: "call_abc",
	}
	content, err := transformMessage(&object, callNames)
	if err != nil {
		t.Fatalf("transformMessage failed: %v", err)
	}
	if content.Role != "user" {
		t.Errorf("role = %q, want user", content.Role)
	}
	fr := content.Parts[0].FunctionResponse
	if fr == nil {
		t.Fatal("expected functionResponse part")
	}
	if fr.ID != "call_abc" || fr.Name != "get_weather" {
		t.Errorf("functionResponse = %+v", fr)
	}
	if fr.Response["temp"] != float64(20) {
		t.Errorf("response = %v, want JSON object passthrough", fr.Response)
	}

	plain := providers.Message{
		Role:       providers.RoleTool,
		Content:    "sunny",
		ToolCallID: "call_abc",
	}
	content, err = transformMessage(&plain, callNames)
	if err != nil {
		t.Fatalf("transformMessage failed: %v", err)
	}
	if got := content.Parts[0].FunctionResponse.Response["result"]; got != "sunny" {
		t.Errorf(`response["result"] = %v, want "sunny"`, got)
	}
}

func TestTransformMessage_ToolCalls(t *testing.T) {
	msg := providers.Message{
		Role: providers.RoleAssistant,
		ToolCalls: []providers.ToolCall{{
			ID:   "call_1",
			Type: providers.ToolTypeFunction,
			Function: providers.FunctionCall{
				Name:      "get_weather",
				Arguments: `{"city":"Berlin"}`,
			},
			Metadata: map[string]any{
				providers.MetadataThoughtSignature: "sig-xyz",
			},
		}},
	}

	content, err := transformMessage(&msg, nil)
	if err != nil {
		t.Fatalf("transformMessage failed: %v", err)
	}
	if content.Role != "model" {
		t.Errorf("role = %q, want model", content.Role)
	}

	part := content.Parts[0]
	if part.FunctionCall == nil {
		t.Fatal("expected functionCall part")
	}
	if part.FunctionCall.ID != "call_1" || part.FunctionCall.Name != "get_weather" {
		t.Errorf("functionCall = %+v", part.FunctionCall)
	}
	if part.FunctionCall.Args["city"] != "Berlin" {
		t.Errorf("args = %v", part.FunctionCall.Args)
	}
	if part.ThoughtSignature != "sig-xyz" {
		t.Errorf("thoughtSignature = %q, want sig-xyz", part.ThoughtSignature)
	}
}

func TestTransformMessage_InvalidToolCallArgs(t *testing.T) {
	msg := providers.Message{
		Role: providers.RoleAssistant,
		ToolCalls: []providers.ToolCall{{
			ID:       "call_1",
			Function: providers.FunctionCall{Name: "broken", Arguments: "{not json"},
		}},
	}

	_, err := transformMessage(&msg, nil)
	if err == nil {
		t.Fatal("expected error for malformed tool-call arguments")
	}
	if providers.KindOf(err) != providers.KindValidation {
		t.Errorf("kind = %v, want validation", providers.KindOf(err))
	}
}

func TestTransformMessage_ImageParts(t *testing.T) {
	msg := providers.Message{
		Role: providers.RoleUser,
		Parts: []providers.ContentPart{
			{Type: providers.PartTypeText, Text: "What is this?"},
			{Type: providers.PartTypeImage, MediaType: "image/png", ImageData: "aGk="},
			{Type: providers.PartTypeImage, ImageURL: "https://example.com/cat.png"},
		},
	}

	content, err := transformMessage(&msg, nil)
	if err != nil {
		t.Fatalf("transformMessage failed: %v", err)
	}
	if len(content.Parts) != 3 {
		t.Fatalf("parts len = %d, want 3", len(content.Parts))
	}

	inline := content.Parts[1].InlineData
	if inline == nil || inline.MimeType != "image/png" || inline.Data != "aGk=" {
		t.Errorf("inlineData = %+v", inline)
	}

	if got := content.Parts[2].Text; got != "[image: https://example.com/cat.png]" {
		t.Errorf("url placeholder = %q", got)
	}
}

func TestTransformResponse(t *testing.T) {
	resp := &generateResponse{
		ResponseID:   "resp_1",
		ModelVersion: "gemini-2.5-flash-001",
		Candidates: []candidate{{
			Content: wireContent{
				Role: "model",
				Parts: []wirePart{
					{Text: "Let me check.", Thought: true, ThoughtSignature: "sig-1"},
					{Text: "Hello"},
					{Text: ", world"},
				},
			},
			FinishReason: "STOP",
		}},
		UsageMetadata: &usageMetadata{
			PromptTokenCount:        10,
			CandidatesTokenCount:    20,
			TotalTokenCount:         30,
			CachedContentTokenCount: 4,
		},
	}

	result, err := transformResponse(resp)
	if err != nil {
		t.Fatalf("transformResponse failed: %v", err)
	}

	if result.ID != "resp_1" || result.Model != "gemini-2.5-flash-001" {
		t.Errorf("identity = %q / %q", result.ID, result.Model)
	}
	if result.Content != "Hello, world" {
		t.Errorf("content = %q", result.Content)
	}
	if result.Thinking != "Let me check." {
		t.Errorf("thinking = %q", result.Thinking)
	}
	if len(result.ThinkingBlocks) != 1 || result.ThinkingBlocks[0].Signature != "sig-1" {
		t.Errorf("thinkingBlocks = %+v", result.ThinkingBlocks)
	}
	if result.FinishReason != providers.FinishReasonStop {
		t.Errorf("finishReason = %q", result.FinishReason)
	}
	if result.Usage.TotalTokens != 30 || result.Usage.CachedTokens != 4 {
		t.Errorf("usage = %+v", result.Usage)
	}
}

func TestTransformResponse_ToolCalls(t *testing.T) {
	resp := &generateResponse{
		Candidates: []candidate{{
			Content: wireContent{
				Parts: []wirePart{
					{FunctionCall: &functionCall{
						Name: "get_weather",
						Args: map[string]interface{}{"city": "Berlin"},
					}},
					{
						FunctionCall:     &functionCall{ID: "srv_9", Name: "get_time"},
						ThoughtSignature: "sig-2",
					},
				},
			},
			FinishReason: "FUNCTION_CALL",
		}},
	}

	result, err := transformResponse(resp)
	if err != nil {
		t.Fatalf("transformResponse failed: %v", err)
	}
	if len(result.ToolCalls) != 2 {
		t.Fatalf("toolCalls len = %d, want 2", len(result.ToolCalls))
	}

	first := result.ToolCalls[0]
	if first.ID != "call_0" {
		t.Errorf("fallback id = %q, want call_0", first.ID)
	}
	if first.Function.Arguments != `{"city":"Berlin"}` {
		t.Errorf("arguments = %q", first.Function.Arguments)
	}

	second := result.ToolCalls[1]
	if second.ID != "srv_9" {
		t.Errorf("wire id = %q, want srv_9", second.ID)
	}
	if second.Function.Arguments != "{}" {
		t.Errorf("empty args = %q, want {}", second.Function.Arguments)
	}
	if second.Metadata[providers.MetadataThoughtSignature] != "sig-2" {
		t.Errorf("metadata = %v", second.Metadata)
	}

	if result.FinishReason != providers.FinishReasonToolCalls {
		t.Errorf("finishReason = %q", result.FinishReason)
	}
}

func TestTransformResponse_NoCandidates(t *testing.T) {
	if _, err := transformResponse(&generateResponse{}); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestNormalizeFinishReason(t *testing.T) {
	tests := []struct {
		wire string
		want string
	}{
		{"", providers.FinishReasonStop},
		{"STOP", providers.FinishReasonStop},
		{"MAX_TOKENS", providers.FinishReasonLength},
		{"SAFETY", providers.FinishReasonContentFilter},
		{"RECITATION", providers.FinishReasonContentFilter},
		{"BLOCKLIST", providers.FinishReasonContentFilter},
		{"FUNCTION_CALL", providers.FinishReasonToolCalls},
		{"SOMETHING_NEW", providers.FinishReasonStop},
	}

	for _, tt := range tests {
		if got := normalizeFinishReason(tt.wire); got != tt.want {
			t.Errorf("normalizeFinishReason(%q) = %q, want %q", tt.wire, got, tt.want)
		}
	}
}
