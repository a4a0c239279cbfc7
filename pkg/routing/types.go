package routing

import (
	"mercator-hq/ganymede/pkg/providers"
)

// Routing strategies accepted by the router.
const (
	// StrategyBalanced scores candidates across capability match, provider
	// preference, task affinity and price.
	StrategyBalanced = "balanced"

	// StrategyCheapest picks the lowest combined price per million tokens.
	StrategyCheapest = "cheapest"

	// StrategyFastest favors low-latency inference hosts.
	StrategyFastest = "fastest"

	// StrategySmartest favors reasoning-capable frontier models.
	StrategySmartest = "smartest"
)

// Config controls a Router instance.
type Config struct {
	// RequiredCapabilities are merged (deduplicated) into every
	// selection's capability list.
	RequiredCapabilities []string

	// DefaultStrategy is used when an operation passes an empty strategy.
	// Empty means balanced.
	DefaultStrategy string

	// MaxRetries caps how many candidates CompleteWithFallback tries.
	// Zero means 3.
	MaxRetries int

	// Instrument wraps each adapter as it enters the cache, so every
	// routed call flows through the wrapper. Nil means no wrapping; the
	// server wiring installs metrics instrumentation here.
	Instrument func(providers.Provider) providers.Provider
}

// RoutingInfo records the selection behind a routed request, for audit
// and for clients that display which model answered.
type RoutingInfo struct {
	// Provider is the selected provider id.
	Provider string `json:"provider"`

	// ProviderName is the provider's display name.
	ProviderName string `json:"providerName,omitempty"`

	// Model is the selected model id.
	Model string `json:"model"`

	// Strategy is the strategy that made the selection.
	Strategy string `json:"strategy"`

	// Score is the selection score under that strategy.
	Score int `json:"score"`

	// IsFallback is true when earlier candidates failed before this one
	// answered.
	IsFallback bool `json:"isFallback,omitempty"`

	// AttemptedProviders lists the candidates (provider/model) tried
	// before the selected one.
	AttemptedProviders []string `json:"attemptedProviders,omitempty"`
}

// Response is a completion response with the routing decision attached.
type Response struct {
	*providers.CompletionResponse

	// Routing describes the provider and model that produced the response.
	Routing *RoutingInfo `json:"routing,omitempty"`
}

// StreamChunk is a stream element with an optional routing decision.
// Only the first chunk of a routed stream carries Routing.
type StreamChunk struct {
	*providers.StreamChunk

	// Routing is set on the first chunk only.
	Routing *RoutingInfo `json:"routing,omitempty"`
}
