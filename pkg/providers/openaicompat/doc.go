// Package openaicompat implements the provider adapter for OpenAI's chat
// completions API and every backend that speaks the same wire format
// (Groq, Mistral, OpenRouter, Together, Fireworks, Perplexity, DeepInfra,
// xAI, local servers such as Ollama and vLLM, ...).
//
// The adapter transforms provider-agnostic requests into the
// /chat/completions JSON body, authenticates with a Bearer token, and
// parses both regular JSON responses and SSE streams ("data: {...}" lines
// terminated by "data: [DONE]").
//
// Example:
//
//	provider := openaicompat.New(providers.ProviderConfig{
//	    Name:    "groq",
//	    Type:    "openai-compatible",
//	    BaseURL: "https://api.groq.com/openai/v1",
//	    APIKey:  os.Getenv("GROQ_API_KEY"),
//	})
//	defer provider.Close()
//
//	resp, err := provider.SendCompletion(ctx, req)
package openaicompat
