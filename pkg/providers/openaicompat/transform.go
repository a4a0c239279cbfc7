package openaicompat

import (
	"fmt"

	"mercator-hq/ganymede/pkg/providers"
)

// Wire types for the chat completions API.

// chatRequest represents a chat completion request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	TopP        float64       `json:"top_p,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []chatTool    `json:"tools,omitempty"`
	ToolChoice  interface{}   `json:"tool_choice,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

// chatMessage represents a message on the wire. Content is a string for
// text-only messages and a part array for multi-modal ones.
type chatMessage struct {
	Role       string         `json:"role"`
	Content    interface{}    `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

// chatContentPart is one element of a multi-modal content array.
type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

// chatImageURL carries an image reference, either a plain URL or a data URI.
type chatImageURL struct {
	URL string `json:"url"`
}

// chatToolCall represents a tool call on the wire. Index is only present in
// streaming deltas.
type chatToolCall struct {
	Index    *int             `json:"index,omitempty"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function chatFunctionCall `json:"function"`
}

// chatFunctionCall represents a function invocation on the wire.
type chatFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// chatTool represents a tool definition on the wire.
type chatTool struct {
	Type     string                 `json:"type"`
	Function chatFunctionDefinition `json:"function"`
}

// chatFunctionDefinition represents a function definition on the wire.
type chatFunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

// chatResponse represents a chat completion response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice represents a completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage represents token usage.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Streaming wire types.

// chatStreamResponse represents a chunk in the SSE stream.
type chatStreamResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []chatStreamChoice `json:"choices"`
	Usage   *chatUsage         `json:"usage,omitempty"`
}

// chatStreamChoice represents a choice in a stream chunk.
type chatStreamChoice struct {
	Index        int             `json:"index"`
	Delta        chatStreamDelta `json:"delta"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// chatStreamDelta represents the incremental content in a stream chunk.
type chatStreamDelta struct {
	Role      string         `json:"role,omitempty"`
	Content   string         `json:"content,omitempty"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
}

// Transformation functions

// transformRequest transforms a provider-agnostic request to the wire format.
// System messages stay in the messages array.
func transformRequest(req *providers.CompletionRequest) *chatRequest {
	wireReq := &chatRequest{
		Model:       req.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stream:      req.Stream,
		Stop:        req.Stop,
		ToolChoice:  transformToolChoice(req.ToolChoice),
	}

	for i := range req.Messages {
		wireReq.Messages[i] = transformMessage(&req.Messages[i])
	}

	if len(req.Tools) > 0 {
		wireReq.Tools = make([]chatTool, len(req.Tools))
		for i, tool := range req.Tools {
			wireReq.Tools[i] = chatTool{
				Type: tool.Type,
				Function: chatFunctionDefinition{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  tool.Function.Parameters,
				},
			}
		}
	}

	return wireReq
}

// transformMessage converts one message. Text-only messages keep a plain
// string content; multi-modal messages become a part array.
func transformMessage(msg *providers.Message) chatMessage {
	out := chatMessage{
		Role:       msg.Role,
		ToolCallID: msg.ToolCallID,
	}

	if len(msg.Parts) == 0 {
		out.Content = msg.Content
	} else {
		parts := make([]chatContentPart, 0, len(msg.Parts))
		for _, part := range msg.Parts {
			switch part.Type {
			case providers.PartTypeText:
				parts = append(parts, chatContentPart{Type: "text", Text: part.Text})
			case providers.PartTypeImage:
				url := part.ImageURL
				if url == "" && part.ImageData != "" {
					url = fmt.Sprintf("data:%s;base64,%s", part.MediaType, part.ImageData)
				}
				parts = append(parts, chatContentPart{
					Type:     "image_url",
					ImageURL: &chatImageURL{URL: url},
				})
			}
		}
		out.Content = parts
	}

	if len(msg.ToolCalls) > 0 {
		out.ToolCalls = make([]chatToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			out.ToolCalls[i] = chatToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: chatFunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	return out
}

// transformToolChoice maps the tool-choice policy onto the wire form:
// "auto", "none", "required", or {type:function, function:{name}}.
func transformToolChoice(choice *providers.ToolChoice) interface{} {
	if choice == nil {
		return nil
	}
	switch choice.Mode {
	case providers.ToolChoiceAuto:
		return "auto"
	case providers.ToolChoiceNone:
		return "none"
	case providers.ToolChoiceRequired:
		return "required"
	case providers.ToolChoiceNamed:
		return map[string]interface{}{
			"type":     "function",
			"function": map[string]interface{}{"name": choice.Name},
		}
	default:
		return nil
	}
}

// transformResponse transforms a wire response to provider-agnostic format.
func transformResponse(resp *chatResponse) (*providers.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]

	content, _ := choice.Message.Content.(string)

	result := &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      content,
		FinishReason: normalizeFinishReason(choice.FinishReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Created: resp.Created,
	}

	if len(choice.Message.ToolCalls) > 0 {
		result.ToolCalls = make([]providers.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			result.ToolCalls[i] = providers.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: providers.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	return result, nil
}

// transformStreamChunk transforms a stream chunk to provider-agnostic format.
// Finish reason and usage are withheld here and re-emitted on the terminal
// chunk by the stream reader.
func transformStreamChunk(chunk *chatStreamResponse) *providers.StreamChunk {
	if len(chunk.Choices) == 0 {
		return nil
	}

	choice := chunk.Choices[0]

	result := &providers.StreamChunk{
		ID:      chunk.ID,
		Model:   chunk.Model,
		Delta:   choice.Delta.Content,
		Created: chunk.Created,
	}

	if len(choice.Delta.ToolCalls) > 0 {
		result.ToolCalls = make([]providers.ToolCall, len(choice.Delta.ToolCalls))
		for i, tc := range choice.Delta.ToolCalls {
			result.ToolCalls[i] = providers.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: providers.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			}
		}
	}

	return result
}

// normalizeFinishReason normalizes wire finish reasons to provider-agnostic values.
func normalizeFinishReason(reason string) string {
	switch reason {
	case "stop":
		return providers.FinishReasonStop
	case "length":
		return providers.FinishReasonLength
	case "tool_calls", "function_call":
		return providers.FinishReasonToolCalls
	case "content_filter":
		return providers.FinishReasonContentFilter
	default:
		return reason
	}
}
