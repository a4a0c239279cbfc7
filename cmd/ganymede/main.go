// Ganymede is a multi-provider AI gateway.
//
// It routes chat completion requests across OpenAI-compatible, Anthropic,
// and Google providers, providing:
//   - Strategy-based model selection (cheapest, fastest, smartest, balanced)
//   - Automatic fallback with per-provider circuit breaking
//   - A WebSocket session layer for interactive clients
//   - An event bus bridging process events to connected sessions
//   - Hot reload of the provider catalog
//
// Usage:
//
//	# Start the gateway with default configuration
//	ganymede run
//
//	# Start with a custom configuration file
//	ganymede run --config /path/to/config.yaml
//
//	# Validate configuration and the provider catalog
//	ganymede validate
//
//	# Print the resolved provider catalog
//	ganymede providers
//
//	# Show version information
//	ganymede version
//
// For complete documentation, see: https://github.com/mercator-hq/ganymede
package main

func main() {
	Execute()
}
