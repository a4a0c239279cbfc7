// Package routing selects a provider and model for each request and routes
// completions through the matching adapter.
//
// The router answers selection queries against the provider registry using
// one of four strategies (balanced, cheapest, fastest, smartest), caches one
// adapter instance per provider id, and attaches a RoutingInfo to every
// routed response so callers can see which model answered. Streams carry the
// RoutingInfo on their first chunk only.
//
// Example usage:
//
//	router := routing.New(reg, routing.Config{
//		RequiredCapabilities: []string{registry.CapStreaming},
//	})
//	defer router.Close()
//
//	resp, err := router.Complete(ctx, req, registry.SelectionCriteria{
//		TaskType: registry.TaskCode,
//	}, routing.StrategyBalanced)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("answered by %s/%s\n", resp.Routing.Provider, resp.Routing.Model)
package routing

import (
	"sync"

	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/providers/anthropic"
	"mercator-hq/ganymede/pkg/providers/google"
	"mercator-hq/ganymede/pkg/providers/openaicompat"
	"mercator-hq/ganymede/pkg/registry"
)

// defaultMaxRetries caps CompleteWithFallback candidates when Config
// leaves MaxRetries at zero.
const defaultMaxRetries = 3

// Router selects providers and models from the registry and routes
// completions through cached adapter instances.
//
// Router is safe for concurrent use.
type Router struct {
	registry *registry.Registry
	config   Config
	cache    *adapterCache
	stats    *RouterStats
}

// New creates a router over the given registry.
func New(reg *registry.Registry, config Config) *Router {
	if config.DefaultStrategy == "" {
		config.DefaultStrategy = StrategyBalanced
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaultMaxRetries
	}
	return &Router{
		registry: reg,
		config:   config,
		cache:    newAdapterCache(),
		stats:    NewRouterStats(),
	}
}

// Registry returns the registry the router selects from.
func (r *Router) Registry() *registry.Registry {
	return r.registry
}

// Stats returns the router's statistics tracker.
func (r *Router) Stats() *RouterStats {
	return r.stats
}

// Adapter returns the cached adapter for a provider id, building it on
// first use. The wire format follows the provider's registry type: google
// and anthropic get their native adapters, everything else speaks the
// OpenAI-compatible dialect.
func (r *Router) Adapter(providerID string) (providers.Provider, error) {
	cfg, ok := r.registry.Get(providerID)
	if !ok {
		return nil, providers.NewValidationErrorf("unknown provider %q", providerID)
	}
	return r.adapterFor(cfg), nil
}

func (r *Router) adapterFor(cfg *registry.ProviderConfig) providers.Provider {
	return r.cache.getOrStore(cfg.ID, func() providers.Provider {
		a := buildAdapter(cfg)
		if r.config.Instrument != nil {
			a = r.config.Instrument(a)
		}
		return a
	})
}

func buildAdapter(cfg *registry.ProviderConfig) providers.Provider {
	pc := providers.ProviderConfig{
		Name:    cfg.ID,
		Type:    cfg.Type,
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Models:  modelIDs(cfg),
	}

	switch cfg.Type {
	case registry.TypeGoogle:
		return google.New(pc)
	case registry.TypeAnthropic:
		return anthropic.New(pc)
	default:
		return openaicompat.New(pc)
	}
}

func modelIDs(cfg *registry.ProviderConfig) []string {
	ids := make([]string, 0, len(cfg.Models))
	for i := range cfg.Models {
		ids = append(ids, cfg.Models[i].ID)
	}
	return ids
}

// ClearCache drops all cached adapter instances. The next routed request
// rebuilds them from the current registry snapshot; call it after a
// registry reload changes keys or base URLs.
func (r *Router) ClearCache() {
	r.cache.clear()
}

// Close releases all cached adapters. The router must not be used after
// Close.
func (r *Router) Close() error {
	r.cache.clear()
	return nil
}

var (
	defaultRouter   *Router
	defaultRouterMu sync.Mutex
)

// Default returns the process-wide router, building it on first call over
// the given registry. Later calls ignore the argument and return the same
// instance.
func Default(reg *registry.Registry) *Router {
	defaultRouterMu.Lock()
	defer defaultRouterMu.Unlock()
	if defaultRouter == nil {
		defaultRouter = New(reg, Config{})
	}
	return defaultRouter
}

// ResetDefault discards the process-wide router. The next Default call
// builds a fresh one. Intended for tests.
func ResetDefault() {
	defaultRouterMu.Lock()
	defer defaultRouterMu.Unlock()
	if defaultRouter != nil {
		_ = defaultRouter.Close()
		defaultRouter = nil
	}
}
