package gateway

import (
	"context"
	"strings"

	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/registry"
	"mercator-hq/ganymede/pkg/routing"
)

// ChatOptions carries per-call options into an AgentRuntime.
type ChatOptions struct {
	// Stream requests incremental delivery through OnChunk.
	Stream bool

	// OnChunk receives each streamed chunk, including the terminal one.
	// Called from the agent's goroutine; implementations must be safe to
	// call concurrently with nothing else on the same session writer.
	OnChunk func(*providers.StreamChunk)

	// TaskType is an optional routing hint: code, reasoning, analysis,
	// creative, or chat.
	TaskType string

	// Metadata is session context threaded onto the request. Not sent to
	// providers.
	Metadata map[string]string
}

// ChatResult is the completed outcome of a chat call.
type ChatResult struct {
	// Content is the full assistant reply.
	Content string

	// Model and Provider name what produced the reply, when known.
	Model    string
	Provider string

	// Usage is the provider-reported token usage, when available.
	Usage providers.TokenUsage
}

// AgentRuntime answers chat:send frames. Implementations decide how a user
// message becomes an assistant reply.
type AgentRuntime interface {
	// Chat produces a reply for one user message. With opts.Stream set,
	// chunks flow through opts.OnChunk before Chat returns the final
	// result. Cancelling ctx aborts the call.
	Chat(ctx context.Context, content string, opts ChatOptions) (*ChatResult, error)

	// DemoMode reports whether the runtime has no real backend and chat
	// should synthesize demo responses instead.
	DemoMode() bool
}

// RouterAgent is the production AgentRuntime: it routes each message
// through the model router, falling back across providers for
// non-streaming calls.
type RouterAgent struct {
	router   *routing.Router
	strategy string
	system   string
}

// NewRouterAgent creates a router-backed agent. strategy may be empty for
// the router's default; system, when non-empty, is prepended to every
// conversation as a system message.
func NewRouterAgent(router *routing.Router, strategy, system string) *RouterAgent {
	return &RouterAgent{router: router, strategy: strategy, system: system}
}

// DemoMode reports true while no provider in the registry has an API key.
func (a *RouterAgent) DemoMode() bool {
	return len(a.router.Registry().Configured()) == 0
}

func (a *RouterAgent) buildRequest(content string, opts ChatOptions) *providers.CompletionRequest {
	messages := make([]providers.Message, 0, 2)
	if a.system != "" {
		messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: a.system})
	}
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: content})
	return &providers.CompletionRequest{
		Messages: messages,
		Stream:   opts.Stream,
		Metadata: opts.Metadata,
	}
}

// Chat routes the message and streams or completes it. Streaming uses a
// single routed provider; non-streaming calls go through provider
// fallback.
func (a *RouterAgent) Chat(ctx context.Context, content string, opts ChatOptions) (*ChatResult, error) {
	req := a.buildRequest(content, opts)
	criteria := registry.SelectionCriteria{TaskType: opts.TaskType}

	if !opts.Stream {
		resp, err := a.router.CompleteWithFallback(ctx, req, criteria)
		if err != nil {
			return nil, err
		}
		result := &ChatResult{Content: resp.Content, Model: resp.Model, Usage: resp.Usage}
		if resp.Routing != nil {
			result.Provider = resp.Routing.Provider
		}
		return result, nil
	}

	chunks, err := a.router.Stream(ctx, req, criteria, a.strategy)
	if err != nil {
		return nil, err
	}

	var (
		full     strings.Builder
		result   ChatResult
		chunkErr error
	)
	for chunk := range chunks {
		if chunk.Routing != nil {
			result.Provider = chunk.Routing.Provider
			result.Model = chunk.Routing.Model
		}
		if chunk.StreamChunk == nil {
			continue
		}
		if chunk.Error != nil {
			chunkErr = chunk.Error
		}
		if chunk.Delta != "" {
			full.WriteString(chunk.Delta)
		}
		if chunk.Usage != nil {
			result.Usage = *chunk.Usage
		}
		if chunk.Model != "" {
			result.Model = chunk.Model
		}
		if opts.OnChunk != nil {
			opts.OnChunk(chunk.StreamChunk)
		}
	}
	if chunkErr != nil {
		return nil, chunkErr
	}

	result.Content = full.String()
	return &result, nil
}
