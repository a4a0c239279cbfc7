// Package anthropic implements the provider adapter for the Anthropic
// messages API.
//
// The adapter moves system messages into the top-level system array and
// splits them at known context markers so the stable prefix is served from
// the prompt cache. Tool names are sanitized (dots become double
// underscores) on the way out and reversed on the way in. Extended
// reasoning ("thinking") is supported end to end: thinking blocks stream
// with metadata type "thinking", accumulate into the response, and are
// echoed verbatim on the next request to preserve continuity.
//
// Streaming uses named SSE events (message_start, content_block_start,
// content_block_delta, content_block_stop, message_delta, message_stop).
// Tool-call arguments arrive piecewise as input_json_delta fragments and
// are assembled into a single tool call at content_block_stop.
//
// Example:
//
//	provider := anthropic.New(providers.ProviderConfig{
//	    Name:    "anthropic",
//	    Type:    "anthropic",
//	    BaseURL: "https://api.anthropic.com/v1",
//	    APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	defer provider.Close()
//
//	resp, err := provider.SendCompletion(ctx, req)
package anthropic
