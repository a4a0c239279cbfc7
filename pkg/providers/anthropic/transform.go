package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/ganymede/pkg/providers"
)

// defaultMaxTokens is applied when the request does not set max_tokens,
// which the messages API requires.
const defaultMaxTokens = 4096

// cacheMarkers delimit the volatile tail of a system prompt. Text before the
// earliest marker is stable across turns and marked cacheable.
var cacheMarkers = []string{
	"## Current Context",
	"## Code Execution",
	"## File Operations",
}

// Wire types for the messages API.

// messagesRequest represents a messages request body.
type messagesRequest struct {
	Model         string          `json:"model"`
	Messages      []wireMessage   `json:"messages"`
	System        []systemBlock   `json:"system,omitempty"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   float64         `json:"temperature,omitempty"`
	TopP          float64         `json:"top_p,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
	Tools         []wireTool      `json:"tools,omitempty"`
	ToolChoice    *wireToolChoice `json:"tool_choice,omitempty"`
	Thinking      *wireThinking   `json:"thinking,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
}

// wireMessage represents a message on the wire. Content is a bare string for
// single-text messages and a block array otherwise.
type wireMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// systemBlock is one element of the top-level system array.
type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

// cacheControl marks a block for prompt caching.
type cacheControl struct {
	Type string `json:"type"`
}

// contentBlock is one element of a message content array, in either
// direction. The populated fields depend on Type.
type contentBlock struct {
	Type string `json:"type"`

	// text blocks
	Text string `json:"text,omitempty"`

	// thinking and redacted_thinking blocks
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
	Data      string `json:"data,omitempty"`

	// tool_use blocks
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result blocks
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`

	// image blocks
	Source *imageSource `json:"source,omitempty"`
}

// imageSource carries image data, either inline base64 or by URL.
type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// wireTool represents a tool definition on the wire.
type wireTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// wireToolChoice represents the tool-choice policy on the wire.
type wireToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// wireThinking enables extended reasoning on the wire.
type wireThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

// messagesResponse represents a messages response body.
type messagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []contentBlock `json:"content"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        wireUsage      `json:"usage"`
}

// wireUsage represents token usage on the wire.
type wireUsage struct {
	InputTokens          int `json:"input_tokens"`
	OutputTokens         int `json:"output_tokens"`
	CacheReadInputTokens int `json:"cache_read_input_tokens,omitempty"`
}

// Transformation functions

// transformRequest transforms a provider-agnostic request to the wire
// format: system messages move to the top-level system array, tool names
// are sanitized, and thinking config suppresses temperature.
func transformRequest(req *providers.CompletionRequest) (*messagesRequest, error) {
	wireReq := &messagesRequest{
		Model:         req.Model,
		MaxTokens:     req.MaxTokens,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Thinking:      transformThinking(req.Thinking),
	}

	if wireReq.MaxTokens == 0 {
		wireReq.MaxTokens = defaultMaxTokens
	}

	// The API rejects temperature alongside thinking.
	if wireReq.Thinking == nil {
		wireReq.Temperature = req.Temperature
	}

	var systemParts []string
	for i := range req.Messages {
		msg := &req.Messages[i]
		if msg.Role == providers.RoleSystem {
			systemParts = append(systemParts, msg.Text())
			continue
		}
		wireMsg, err := transformMessage(msg)
		if err != nil {
			return nil, err
		}
		wireReq.Messages = append(wireReq.Messages, wireMsg)
	}
	if len(systemParts) > 0 {
		wireReq.System = splitSystemPrompt(strings.Join(systemParts, "\n\n"))
	}

	if len(req.Tools) > 0 {
		wireReq.Tools = make([]wireTool, len(req.Tools))
		for i, tool := range req.Tools {
			wireReq.Tools[i] = wireTool{
				Name:        sanitizeToolName(tool.Function.Name),
				Description: tool.Function.Description,
				InputSchema: tool.Function.Parameters,
			}
		}
	}

	wireReq.ToolChoice = transformToolChoice(req.ToolChoice, wireReq.Thinking != nil)

	return wireReq, nil
}

// splitSystemPrompt splits a system prompt at the earliest cache marker.
// The stable prefix is marked cacheable; the volatile suffix is not. With
// no marker the whole prompt is the prefix.
func splitSystemPrompt(system string) []systemBlock {
	idx := -1
	for _, marker := range cacheMarkers {
		if i := strings.Index(system, marker); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}

	if idx < 0 {
		return []systemBlock{{
			Type:         "text",
			Text:         system,
			CacheControl: &cacheControl{Type: "ephemeral"},
		}}
	}

	blocks := make([]systemBlock, 0, 2)
	if prefix := strings.TrimSpace(system[:idx]); prefix != "" {
		blocks = append(blocks, systemBlock{
			Type:         "text",
			Text:         prefix,
			CacheControl: &cacheControl{Type: "ephemeral"},
		})
	}
	return append(blocks, systemBlock{Type: "text", Text: system[idx:]})
}

// transformMessage converts one message. Tool messages become user-role
// tool_result blocks; thinking blocks carried in message metadata are echoed
// ahead of the visible content.
func transformMessage(msg *providers.Message) (wireMessage, error) {
	if msg.Role == providers.RoleTool {
		return wireMessage{
			Role: providers.RoleUser,
			Content: []contentBlock{{
				Type:      "tool_result",
				ToolUseID: msg.ToolCallID,
				Content:   msg.Text(),
			}},
		}, nil
	}

	blocks := echoThinkingBlocks(msg.Metadata)

	if len(blocks) == 0 && len(msg.Parts) == 0 && len(msg.ToolCalls) == 0 {
		if msg.Content == "" {
			// Never an empty text block.
			return wireMessage{Role: msg.Role, Content: []contentBlock{}}, nil
		}
		return wireMessage{Role: msg.Role, Content: msg.Content}, nil
	}

	if len(msg.Parts) == 0 {
		if msg.Content != "" {
			blocks = append(blocks, contentBlock{Type: "text", Text: msg.Content})
		}
	} else {
		for _, part := range msg.Parts {
			switch part.Type {
			case providers.PartTypeText:
				blocks = append(blocks, contentBlock{Type: "text", Text: part.Text})
			case providers.PartTypeImage:
				blocks = append(blocks, contentBlock{Type: "image", Source: imageSourceFor(&part)})
			}
		}
	}

	for _, tc := range msg.ToolCalls {
		input := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				return wireMessage{}, providers.NewValidationErrorf(
					"invalid arguments for tool call %q: %v", tc.Function.Name, err)
			}
		}
		blocks = append(blocks, contentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  sanitizeToolName(tc.Function.Name),
			Input: input,
		})
	}

	if blocks == nil {
		blocks = []contentBlock{}
	}
	return wireMessage{Role: msg.Role, Content: blocks}, nil
}

// echoThinkingBlocks re-emits thinking blocks a prior response attached to
// this message, preserving reasoning continuity. It accepts both the typed
// form and the generic form a JSON round-trip produces.
func echoThinkingBlocks(metadata map[string]any) []contentBlock {
	raw, ok := metadata[providers.MetadataThinkingBlocks]
	if !ok {
		return nil
	}

	var blocks []contentBlock
	switch v := raw.(type) {
	case []providers.ThinkingBlock:
		for _, b := range v {
			blocks = append(blocks, contentBlock{
				Type:      b.Type,
				Thinking:  b.Thinking,
				Signature: b.Signature,
				Data:      b.Data,
			})
		}
	case []interface{}:
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			blocks = append(blocks, contentBlock{
				Type:      stringAt(m, "type"),
				Thinking:  stringAt(m, "thinking"),
				Signature: stringAt(m, "signature"),
				Data:      stringAt(m, "data"),
			})
		}
	}
	return blocks
}

func stringAt(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// imageSourceFor maps a content part to an image source, preferring inline
// base64 over a URL reference.
func imageSourceFor(part *providers.ContentPart) *imageSource {
	if part.ImageData != "" {
		return &imageSource{
			Type:      "base64",
			MediaType: part.MediaType,
			Data:      part.ImageData,
		}
	}
	return &imageSource{Type: "url", URL: part.ImageURL}
}

// transformToolChoice maps the tool-choice policy onto the wire form:
// auto → {type:auto}, required → {type:any}, none → omitted, named →
// {type:tool, name}. Thinking restricts forced choices back to auto.
func transformToolChoice(choice *providers.ToolChoice, thinking bool) *wireToolChoice {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case providers.ToolChoiceAuto:
		return &wireToolChoice{Type: "auto"}
	case providers.ToolChoiceNone:
		return nil
	case providers.ToolChoiceRequired:
		if thinking {
			return &wireToolChoice{Type: "auto"}
		}
		return &wireToolChoice{Type: "any"}
	case providers.ToolChoiceNamed:
		if thinking {
			return &wireToolChoice{Type: "auto"}
		}
		return &wireToolChoice{Type: "tool", Name: sanitizeToolName(choice.Name)}
	default:
		return nil
	}
}

// transformThinking maps the thinking config onto the wire form.
func transformThinking(cfg *providers.ThinkingConfig) *wireThinking {
	if cfg == nil {
		return nil
	}
	if cfg.Adaptive {
		return &wireThinking{Type: "adaptive"}
	}
	if cfg.Enabled {
		return &wireThinking{Type: "enabled", BudgetTokens: cfg.BudgetTokens}
	}
	return nil
}

// sanitizeToolName rewrites dots, which the messages API rejects in tool
// names, to double underscores. desanitizeToolName reverses it.
func sanitizeToolName(name string) string {
	return strings.ReplaceAll(name, ".", "__")
}

func desanitizeToolName(name string) string {
	return strings.ReplaceAll(name, "__", ".")
}

// transformResponse transforms a wire response to provider-agnostic format.
// Text blocks concatenate into Content; thinking blocks are preserved for
// the next turn.
func transformResponse(resp *messagesResponse) (*providers.CompletionResponse, error) {
	result := &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
			CachedTokens:     resp.Usage.CacheReadInputTokens,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text

		case "tool_use":
			args := "{}"
			if block.Input != nil {
				data, err := json.Marshal(block.Input)
				if err != nil {
					return nil, fmt.Errorf("tool input for %q: %w", block.Name, err)
				}
				args = string(data)
			}
			result.ToolCalls = append(result.ToolCalls, providers.ToolCall{
				ID:   block.ID,
				Type: providers.ToolTypeFunction,
				Function: providers.FunctionCall{
					Name:      desanitizeToolName(block.Name),
					Arguments: args,
				},
			})

		case "thinking":
			result.Thinking += block.Thinking
			result.ThinkingBlocks = append(result.ThinkingBlocks, providers.ThinkingBlock{
				Type:      "thinking",
				Thinking:  block.Thinking,
				Signature: block.Signature,
			})

		case "redacted_thinking":
			result.ThinkingBlocks = append(result.ThinkingBlocks, providers.ThinkingBlock{
				Type: "redacted_thinking",
				Data: block.Data,
			})
		}
	}

	return result, nil
}

// normalizeStopReason normalizes wire stop reasons to provider-agnostic values.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "tool_use":
		return providers.FinishReasonToolCalls
	default:
		return reason
	}
}
