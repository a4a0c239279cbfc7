package providers

import "context"

// Provider is the core interface that all LLM provider adapters must implement.
// It provides a unified abstraction for interacting with different LLM providers
// (OpenAI-compatible backends, Anthropic, Google).
//
// All blocking methods accept a context.Context for cancellation and timeout
// control. Implementations must respect context cancellation and return
// immediately when the context is cancelled.
//
// Example usage:
//
//	provider := openaicompat.New(cfg)
//
//	req := &providers.CompletionRequest{
//	    Model: "gpt-4o-mini",
//	    Messages: []providers.Message{
//	        {Role: providers.RoleUser, Content: "Hello!"},
//	    },
//	}
//
//	resp, err := provider.SendCompletion(ctx, req)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Content)
type Provider interface {
	// SendCompletion sends a completion request to the provider and returns
	// the response. The request is transformed to the provider-specific
	// format, sent to the provider, and the response is normalized to the
	// provider-agnostic format.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// StreamCompletion sends a streaming completion request to the provider.
	// It returns a channel that yields incremental response chunks as they
	// arrive. The sequence is lazy, finite, and non-restartable.
	//
	// The caller must read from the channel until it closes. A successful
	// stream ends with exactly one terminal chunk (Done set); a failed
	// stream ends with exactly one chunk whose Error field is set.
	//
	// Example:
	//
	//	chunks, err := provider.StreamCompletion(ctx, req)
	//	if err != nil {
	//	    return err
	//	}
	//	for chunk := range chunks {
	//	    if chunk.Error != nil {
	//	        return chunk.Error
	//	    }
	//	    fmt.Print(chunk.Delta)
	//	}
	StreamCompletion(ctx context.Context, req *CompletionRequest) (<-chan *StreamChunk, error)

	// CountTokens estimates the token count of the given messages without
	// calling the provider. Only text parts count; the heuristic is
	// ceil(totalTextChars / 4).
	CountTokens(messages []Message) int

	// GetModels returns the model ids this provider serves.
	GetModels() []string

	// IsReady reports whether the provider can accept requests
	// (an API key is configured).
	IsReady() bool

	// GetName returns the provider's configured name (e.g., "openai", "anthropic").
	GetName() string

	// GetType returns the provider's type (openai, anthropic, google,
	// openai-compatible).
	GetType() string

	// Cancel aborts any in-flight request on a best-effort basis. Streams
	// already handed to callers terminate with a cancellation error chunk.
	Cancel()

	// Close releases the provider's resources (HTTP connections).
	// After calling Close, the provider should not be used.
	Close() error
}
