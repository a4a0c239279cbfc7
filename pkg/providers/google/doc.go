// Package google implements the provider adapter for the Google Gemini
// generateContent API.
//
// Unlike the other backends, Gemini authenticates with the API key as a
// query parameter and scopes the endpoint by model
// (/models/{model}:generateContent). System messages become the
// systemInstruction block, assistant turns map to role "model", and tool
// results travel as functionResponse parts keyed back to their call id.
// Thinking-capable models attach a thoughtSignature to streamed function
// calls; the adapter carries it through tool-call metadata and echoes it
// on the next request.
//
// Streaming uses plain "data: {...}" SSE fragments with no done sentinel;
// the stream ends when the upstream closes the connection.
//
// Example:
//
//	provider := google.New(providers.ProviderConfig{
//	    Name:   "google",
//	    Type:   "google",
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	})
//	defer provider.Close()
//
//	resp, err := provider.SendCompletion(ctx, req)
package google
