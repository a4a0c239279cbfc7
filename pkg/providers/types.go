package providers

import (
	"strings"
	"time"
)

// Message represents a single message in a conversation.
// It is provider-agnostic and will be transformed to provider-specific formats.
type Message struct {
	// Role identifies the message sender (system, user, assistant, tool)
	Role string `json:"role"`

	// Content is the plain-text content. When Parts is non-empty, Parts
	// takes precedence and Content is ignored.
	Content string `json:"content,omitempty"`

	// Parts is the ordered multi-modal content (text and image parts)
	Parts []ContentPart `json:"parts,omitempty"`

	// ToolCalls contains function/tool calls made by the assistant (for assistant role)
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID is used when role is "tool" to reference which tool call this responds to
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Metadata carries opaque provider-specific blobs (Anthropic thinking
	// blocks, Google thought signatures). The gateway copies it verbatim
	// onto the next request in the conversation and never inspects it.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Text returns the textual content of the message: Content when Parts is
// empty, otherwise the concatenation of all text parts.
func (m *Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var sb strings.Builder
	for _, part := range m.Parts {
		if part.Type == PartTypeText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ContentPart is one typed element of a multi-modal message.
type ContentPart struct {
	// Type is the part type (text, image)
	Type string `json:"type"`

	// Text is the text content (for text parts)
	Text string `json:"text,omitempty"`

	// ImageData is base64-encoded image bytes (for inline image parts)
	ImageData string `json:"image_data,omitempty"`

	// MediaType is the MIME type of ImageData (e.g. "image/png")
	MediaType string `json:"media_type,omitempty"`

	// ImageURL references an image by URL (for URL image parts)
	ImageURL string `json:"image_url,omitempty"`
}

// ToolCall represents a function/tool call request from the model.
type ToolCall struct {
	// ID is a unique identifier for this tool call
	ID string `json:"id"`

	// Type is the type of tool call (currently always "function")
	Type string `json:"type"`

	// Function contains the function name and arguments
	Function FunctionCall `json:"function"`

	// Metadata carries opaque provider continuation data (Google thought
	// signatures). Echoed verbatim on the next request.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FunctionCall represents a specific function invocation.
type FunctionCall struct {
	// Name is the function name to call
	Name string `json:"name"`

	// Arguments is a JSON string containing the function arguments
	Arguments string `json:"arguments"`
}

// Tool represents a tool/function definition that the model can call.
type Tool struct {
	// Type is the type of tool (currently always "function")
	Type string `json:"type"`

	// Function contains the function definition
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a callable function.
type FunctionDefinition struct {
	// Name is the function name
	Name string `json:"name"`

	// Description explains what the function does
	Description string `json:"description,omitempty"`

	// Parameters is a JSON Schema object describing the function parameters
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// ToolChoice controls which tools the model may call.
type ToolChoice struct {
	// Mode is one of auto, none, required, or named
	Mode string `json:"mode"`

	// Name is the function to force when Mode is named
	Name string `json:"name,omitempty"`
}

// ThinkingConfig enables extended reasoning on providers that support it.
type ThinkingConfig struct {
	// Adaptive lets the provider choose its own reasoning budget
	Adaptive bool `json:"adaptive,omitempty"`

	// Enabled turns on explicit reasoning with BudgetTokens
	Enabled bool `json:"enabled,omitempty"`

	// BudgetTokens caps the reasoning token budget when Enabled
	BudgetTokens int `json:"budget_tokens,omitempty"`
}

// ThinkingBlock is an opaque reasoning block issued by a provider. Blocks
// must be echoed verbatim on the next request to preserve continuity.
type ThinkingBlock struct {
	// Type is the block type (thinking, redacted_thinking)
	Type string `json:"type"`

	// Thinking is the reasoning text (for thinking blocks)
	Thinking string `json:"thinking,omitempty"`

	// Signature is the provider-issued continuation token
	Signature string `json:"signature,omitempty"`

	// Data is the opaque payload of a redacted block
	Data string `json:"data,omitempty"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`

	// CachedTokens is the number of prompt tokens served from a provider
	// cache (0 when the provider does not report it)
	CachedTokens int `json:"cached_tokens,omitempty"`
}

// CompletionRequest represents a provider-agnostic completion request.
// It is transformed to provider-specific formats by each adapter.
type CompletionRequest struct {
	// Model is the model identifier. The router fills it with the selected
	// model id when empty.
	Model string `json:"model"`

	// Messages is the conversation history
	Messages []Message `json:"messages"`

	// Temperature controls randomness (0.0 to 2.0, typically 0.0 to 1.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0)
	TopP float64 `json:"top_p,omitempty"`

	// Stream indicates whether to stream the response
	Stream bool `json:"stream,omitempty"`

	// Tools is a list of tools the model can call
	Tools []Tool `json:"tools,omitempty"`

	// ToolChoice controls which tools can be called (nil leaves the
	// provider default in place)
	ToolChoice *ToolChoice `json:"tool_choice,omitempty"`

	// Thinking enables extended reasoning (nil disables it)
	Thinking *ThinkingConfig `json:"thinking,omitempty"`

	// Stop sequences that will halt generation
	Stop []string `json:"stop,omitempty"`

	// Metadata contains additional request context (user ID, session ID).
	// This is not sent to the provider, but used internally.
	Metadata map[string]string `json:"-"`
}

// CompletionResponse represents a provider-agnostic completion response.
// It is normalized from provider-specific response formats.
type CompletionResponse struct {
	// ID is the unique response identifier
	ID string `json:"id"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Content is the generated text content
	Content string `json:"content"`

	// FinishReason indicates why generation stopped
	// (stop, length, tool_calls, content_filter, error)
	FinishReason string `json:"finish_reason"`

	// Usage contains token consumption information
	Usage TokenUsage `json:"usage"`

	// ToolCalls contains any tool/function calls made by the model
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Thinking is the concatenated reasoning text, when the provider
	// produced any
	Thinking string `json:"thinking,omitempty"`

	// ThinkingBlocks preserves the individual reasoning blocks for
	// re-emission on the next request
	ThinkingBlocks []ThinkingBlock `json:"thinking_blocks,omitempty"`

	// Created is the Unix timestamp when the response was created
	Created int64 `json:"created"`

	// Metadata contains additional response context
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// ID is the response identifier (same across all chunks)
	ID string `json:"id"`

	// Model is the model generating the response
	Model string `json:"model"`

	// Delta is the incremental content in this chunk
	Delta string `json:"delta"`

	// ToolCalls contains incremental tool call information
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Metadata tags the chunk (e.g. {"type": "thinking"} for reasoning
	// deltas)
	Metadata map[string]any `json:"metadata,omitempty"`

	// Done marks the terminal chunk of a successful stream
	Done bool `json:"done,omitempty"`

	// FinishReason is set in the final chunk to indicate why generation stopped
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is included in the final chunk (if supported by provider)
	Usage *TokenUsage `json:"usage,omitempty"`

	// Error is set if an error occurred during streaming
	Error error `json:"-"`

	// Created is the Unix timestamp when the chunk was created
	Created int64 `json:"created"`
}

// ProviderConfig contains configuration for a single provider instance.
// This is a subset of registry.ProviderConfig with only the fields needed
// by adapters.
type ProviderConfig struct {
	// Name is the provider identifier (e.g., "openai", "anthropic")
	Name string

	// Type is the provider type (openai, anthropic, google, openai-compatible)
	Type string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// APIKey is the authentication key (empty means not configured)
	APIKey string

	// Models is the list of model ids served by this provider
	Models []string

	// Timeout is the request deadline (defaults to 120s)
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Content part type constants
const (
	PartTypeText  = "text"
	PartTypeImage = "image"
)

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
	FinishReasonError         = "error"
)

// Tool type constants
const (
	ToolTypeFunction = "function"
)

// Tool choice mode constants
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
	ToolChoiceNamed    = "named"
)

// Metadata keys for opaque continuation blobs carried between turns. The
// core never inspects the values; adapters write them on responses and read
// them back on the next request.
const (
	// MetadataThinkingBlocks holds []ThinkingBlock on an assistant message.
	MetadataThinkingBlocks = "thinking_blocks"

	// MetadataThoughtSignature holds the signature attached to a streamed
	// tool call, re-attached to the matching function call on the next
	// request.
	MetadataThoughtSignature = "thought_signature"
)

// DefaultTimeout is the request deadline applied when a provider config
// does not set one.
const DefaultTimeout = 120 * time.Second
