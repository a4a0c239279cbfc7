// Package fallback wraps a primary provider and an ordered list of fallback
// providers behind the providers.Provider contract.
//
// Completions walk the ready providers in order: open circuits are skipped,
// retryable failures advance to the next provider, non-retryable failures
// surface immediately, and exhausting the list returns the last error
// wrapped in a summary. Each sub-provider gets its own circuit breaker
// (closed / open / half-open) owned by the wrapper instance.
//
// Streams follow the same iteration only until the first chunk reaches the
// caller. After any data has been yielded the serving provider is committed:
// a mid-stream failure produces one terminal error chunk and no further
// provider is tried.
//
// Example:
//
//	wrapped := fallback.New(openai, []providers.Provider{anthropic}, nil)
//	defer wrapped.Close()
//
//	resp, err := wrapped.SendCompletion(ctx, req)
package fallback
