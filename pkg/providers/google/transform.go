package google

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/ganymede/pkg/providers"
)

// Wire types for the generateContent API.

// generateRequest represents a generateContent request body.
type generateRequest struct {
	Contents          []wireContent     `json:"contents"`
	SystemInstruction *wireContent      `json:"systemInstruction,omitempty"`
	Tools             []wireTool        `json:"tools,omitempty"`
	ToolConfig        *wireToolConfig   `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// wireContent is one conversation turn. Roles are "user" and "model".
type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

// wirePart is one element of a turn. Exactly one payload field is set.
// ThoughtSignature rides alongside functionCall parts on thinking-capable
// models and must be echoed on the next request.
type wirePart struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	InlineData       *inlineData       `json:"inlineData,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
}

// inlineData carries base64 image bytes.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// functionCall is a model-issued tool invocation.
type functionCall struct {
	ID   string                 `json:"id,omitempty"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// functionResponse is a tool result keyed back to its call.
type functionResponse struct {
	ID       string                 `json:"id,omitempty"`
	Name     string                 `json:"name"`
	Response map[string]interface{} `json:"response"`
}

// wireTool groups function declarations.
type wireTool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations,omitempty"`
}

// functionDeclaration describes one callable function.
type functionDeclaration struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// wireToolConfig constrains function calling.
type wireToolConfig struct {
	FunctionCallingConfig *functionCallingConfig `json:"functionCallingConfig,omitempty"`
}

// functionCallingConfig selects the calling mode: AUTO, ANY or NONE.
type functionCallingConfig struct {
	Mode                 string   `json:"mode,omitempty"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

// generationConfig carries sampling parameters.
type generationConfig struct {
	Temperature     float64         `json:"temperature,omitempty"`
	TopP            float64         `json:"topP,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	StopSequences   []string        `json:"stopSequences,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

// thinkingConfig enables thought output.
type thinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
	ThinkingBudget  int  `json:"thinkingBudget,omitempty"`
}

// generateResponse represents a generateContent response body.
type generateResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
	ResponseID    string         `json:"responseId,omitempty"`
}

// candidate is one generated completion.
type candidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
	Index        int         `json:"index"`
}

// usageMetadata represents token usage on the wire.
type usageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount"`
	CandidatesTokenCount    int `json:"candidatesTokenCount"`
	TotalTokenCount         int `json:"totalTokenCount"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}

// Transformation functions

// transformRequest transforms a provider-agnostic request to the wire
// format: system messages become systemInstruction, assistant turns get
// role "model", tool results become functionResponse parts keyed by the
// tool-call id.
func transformRequest(req *providers.CompletionRequest) (*generateRequest, error) {
	wireReq := &generateRequest{}

	// Tool results reference the function by name; index prior tool calls
	// so the name can be recovered from the call id.
	callNames := make(map[string]string)
	for i := range req.Messages {
		for _, tc := range req.Messages[i].ToolCalls {
			callNames[tc.ID] = tc.Function.Name
		}
	}

	var systemParts []string
	for i := range req.Messages {
		msg := &req.Messages[i]
		if msg.Role == providers.RoleSystem {
			systemParts = append(systemParts, msg.Text())
			continue
		}
		content, err := transformMessage(msg, callNames)
		if err != nil {
			return nil, err
		}
		if len(content.Parts) > 0 {
			wireReq.Contents = append(wireReq.Contents, content)
		}
	}
	if len(systemParts) > 0 {
		wireReq.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	if len(req.Tools) > 0 {
		declarations := make([]functionDeclaration, len(req.Tools))
		for i, tool := range req.Tools {
			declarations[i] = functionDeclaration{
				Name:        tool.Function.Name,
				Description: tool.Function.Description,
				Parameters:  tool.Function.Parameters,
			}
		}
		wireReq.Tools = []wireTool{{FunctionDeclarations: declarations}}
	}

	wireReq.ToolConfig = transformToolChoice(req.ToolChoice)
	wireReq.GenerationConfig = transformGenerationConfig(req)

	return wireReq, nil
}

// transformGenerationConfig collects sampling parameters, returning nil
// when every field is default.
func transformGenerationConfig(req *providers.CompletionRequest) *generationConfig {
	cfg := &generationConfig{
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.Stop,
		ThinkingConfig:  transformThinking(req.Thinking),
	}
	if cfg.Temperature == 0 && cfg.TopP == 0 && cfg.MaxOutputTokens == 0 &&
		len(cfg.StopSequences) == 0 && cfg.ThinkingConfig == nil {
		return nil
	}
	return cfg
}

// transformThinking maps the thinking config onto the wire form. Adaptive
// leaves the budget to the model.
func transformThinking(cfg *providers.ThinkingConfig) *thinkingConfig {
	if cfg == nil {
		return nil
	}
	if cfg.Adaptive {
		return &thinkingConfig{IncludeThoughts: true}
	}
	if cfg.Enabled {
		return &thinkingConfig{IncludeThoughts: true, ThinkingBudget: cfg.BudgetTokens}
	}
	return nil
}

// transformToolChoice maps the tool-choice policy onto the function calling
// config: auto → AUTO, none → NONE, required → ANY, named → ANY restricted
// to that function.
func transformToolChoice(choice *providers.ToolChoice) *wireToolConfig {
	if choice == nil {
		return nil
	}
	cfg := &functionCallingConfig{}
	switch choice.Mode {
	case providers.ToolChoiceAuto:
		cfg.Mode = "AUTO"
	case providers.ToolChoiceNone:
		cfg.Mode = "NONE"
	case providers.ToolChoiceRequired:
		cfg.Mode = "ANY"
	case providers.ToolChoiceNamed:
		cfg.Mode = "ANY"
		cfg.AllowedFunctionNames = []string{choice.Name}
	default:
		return nil
	}
	return &wireToolConfig{FunctionCallingConfig: cfg}
}

// transformMessage converts one message to a wire turn.
func transformMessage(msg *providers.Message, callNames map[string]string) (wireContent, error) {
	if msg.Role == providers.RoleTool {
		return wireContent{
			Role: "user",
			Parts: []wirePart{{
				FunctionResponse: &functionResponse{
					ID:       msg.ToolCallID,
					Name:     callNames[msg.ToolCallID],
					Response: toolResponseBody(msg.Text()),
				},
			}},
		}, nil
	}

	role := msg.Role
	if role == providers.RoleAssistant {
		role = "model"
	}
	content := wireContent{Role: role}

	if len(msg.Parts) == 0 {
		if msg.Content != "" {
			content.Parts = append(content.Parts, wirePart{Text: msg.Content})
		}
	} else {
		for _, part := range msg.Parts {
			switch part.Type {
			case providers.PartTypeText:
				content.Parts = append(content.Parts, wirePart{Text: part.Text})
			case providers.PartTypeImage:
				if part.ImageData != "" {
					content.Parts = append(content.Parts, wirePart{
						InlineData: &inlineData{
							MimeType: part.MediaType,
							Data:     part.ImageData,
						},
					})
				} else {
					// The API has no URL image source; pass a placeholder
					// so the reference survives the round trip.
					content.Parts = append(content.Parts, wirePart{
						Text: fmt.Sprintf("[image: %s]", part.ImageURL),
					})
				}
			}
		}
	}

	for _, tc := range msg.ToolCalls {
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return wireContent{}, providers.NewValidationErrorf(
					"invalid arguments for tool call %q: %v", tc.Function.Name, err)
			}
		}
		part := wirePart{
			FunctionCall: &functionCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			},
		}
		if sig, ok := tc.Metadata[providers.MetadataThoughtSignature].(string); ok {
			part.ThoughtSignature = sig
		}
		content.Parts = append(content.Parts, part)
	}

	return content, nil
}

// toolResponseBody wraps a tool result as a JSON object. Non-object results
// are wrapped under a "result" key.
func toolResponseBody(content string) map[string]interface{} {
	var response map[string]interface{}
	if err := json.Unmarshal([]byte(content), &response); err == nil {
		return response
	}
	return map[string]interface{}{"result": content}
}

// transformResponse transforms a wire response to provider-agnostic format.
// Thought parts feed the thinking fields instead of the visible content.
func transformResponse(resp *generateResponse) (*providers.CompletionResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	cand := resp.Candidates[0]

	result := &providers.CompletionResponse{
		ID:           resp.ResponseID,
		Model:        resp.ModelVersion,
		FinishReason: normalizeFinishReason(cand.FinishReason),
	}
	if resp.UsageMetadata != nil {
		result.Usage = providers.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			CachedTokens:     resp.UsageMetadata.CachedContentTokenCount,
		}
	}

	var callSeq int
	for _, part := range cand.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			call, err := toolCallFromPart(&part, callSeq)
			if err != nil {
				return nil, err
			}
			callSeq++
			result.ToolCalls = append(result.ToolCalls, *call)

		case part.Thought:
			result.Thinking += part.Text
			result.ThinkingBlocks = append(result.ThinkingBlocks, providers.ThinkingBlock{
				Type:      "thinking",
				Thinking:  part.Text,
				Signature: part.ThoughtSignature,
			})

		default:
			result.Content += part.Text
		}
	}

	return result, nil
}

// toolCallFromPart converts a functionCall part, preserving its thought
// signature in the call metadata. Calls without a wire id get a
// deterministic sequence id so tool results can reference them.
func toolCallFromPart(part *wirePart, seq int) (*providers.ToolCall, error) {
	args := []byte("{}")
	if part.FunctionCall.Args != nil {
		var err error
		args, err = json.Marshal(part.FunctionCall.Args)
		if err != nil {
			return nil, fmt.Errorf("function call args for %q: %w", part.FunctionCall.Name, err)
		}
	}

	id := part.FunctionCall.ID
	if id == "" {
		id = fmt.Sprintf("call_%d", seq)
	}

	call := &providers.ToolCall{
		ID:   id,
		Type: providers.ToolTypeFunction,
		Function: providers.FunctionCall{
			Name:      part.FunctionCall.Name,
			Arguments: string(args),
		},
	}
	if part.ThoughtSignature != "" {
		call.Metadata = map[string]any{
			providers.MetadataThoughtSignature: part.ThoughtSignature,
		}
	}
	return call, nil
}

// normalizeFinishReason normalizes wire finish reasons to provider-agnostic
// values. Unknown reasons default to stop.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "", "STOP":
		return providers.FinishReasonStop
	case "MAX_TOKENS":
		return providers.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST":
		return providers.FinishReasonContentFilter
	case "FUNCTION_CALL":
		return providers.FinishReasonToolCalls
	default:
		return providers.FinishReasonStop
	}
}
