// Package providers implements a unified abstraction layer for LLM providers.
//
// # Overview
//
// The providers package provides a consistent interface for interacting with
// heterogeneous model backends. It normalizes requests and responses across
// wire formats, manages connections, and carries the structured error
// taxonomy the rest of the gateway routes and retries on.
//
// # Architecture
//
// The package is organized into several layers:
//
//  1. Provider Interface - Defines the contract all adapters must implement
//  2. Base HTTP Provider - Implements common HTTP client logic (connection pooling, deadlines, cancellation)
//  3. Provider Adapters - Wire-format implementations in subpackages (openaicompat, anthropic, google)
//  4. Fallback Wrapper - Ordered provider list with per-provider circuit breakers (subpackage fallback)
//
// # Basic Usage
//
// Create a single provider:
//
//	cfg := providers.ProviderConfig{
//	    Name:    "openai",
//	    Type:    "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	}
//
//	provider := openaicompat.New(cfg)
//	defer provider.Close()
//
//	req := &providers.CompletionRequest{
//	    Model: "gpt-4o-mini",
//	    Messages: []providers.Message{
//	        {Role: providers.RoleUser, Content: "Hello!"},
//	    },
//	}
//
//	resp, err := provider.SendCompletion(context.Background(), req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(resp.Content)
//
// # Streaming
//
// Stream responses from providers:
//
//	chunks, err := provider.StreamCompletion(context.Background(), req)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for chunk := range chunks {
//	    if chunk.Error != nil {
//	        log.Fatal(chunk.Error)
//	    }
//	    fmt.Print(chunk.Delta)
//	}
//
// Streams are lazy, finite, and non-restartable. A successful stream ends
// with exactly one terminal chunk (Done set); a failed one ends with exactly
// one chunk carrying Error.
//
// # Error Handling
//
// Every failure is a *providers.Error tagged with one of three kinds:
//
//   - KindValidation: the request violates a precondition; never retryable
//   - KindTimeout: the upstream call exceeded its deadline; retryable
//   - KindInternal: any other upstream failure; retryable unless the message
//     indicates an auth or configuration defect
//
// Call sites branch with errors.Is against the ErrValidation / ErrTimeout /
// ErrInternal sentinels, or ask Retryable(err) directly:
//
//	resp, err := provider.SendCompletion(ctx, req)
//	if err != nil && providers.Retryable(err) {
//	    // try the next provider
//	}
//
// # Supported Providers
//
// Three wire formats cover every supported backend:
//
//  1. openaicompat - OpenAI's chat completions API and every OpenAI-compatible
//     backend (Groq, Mistral, OpenRouter, Together, Fireworks, ...)
//  2. anthropic - Anthropic's messages API
//  3. google - Google's Gemini generateContent API
//
// # Connection Pooling
//
// All providers use HTTP connection pooling to reduce latency:
//
//	cfg := providers.ProviderConfig{
//	    Name:                "openai",
//	    MaxIdleConns:        100,
//	    MaxIdleConnsPerHost: 10,
//	    IdleConnTimeout:     90 * time.Second,
//	}
//
// # Thread Safety
//
// All adapter implementations are safe for concurrent use from multiple
// goroutines. Cancel aborts every in-flight call on a best-effort basis.
package providers
