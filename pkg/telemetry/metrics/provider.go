package metrics

import (
	"context"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

// instrumentedProvider decorates a Provider with request, error, latency,
// and token metrics. All other Provider methods pass through unchanged.
type instrumentedProvider struct {
	providers.Provider
	collector *Collector
}

// InstrumentProvider wraps a provider so every completion call is recorded
// on the collector. A nil collector returns the provider unwrapped.
func InstrumentProvider(p providers.Provider, c *Collector) providers.Provider {
	if p == nil || c == nil {
		return p
	}
	return &instrumentedProvider{Provider: p, collector: c}
}

func (ip *instrumentedProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	name := ip.GetName()
	ip.collector.RecordProviderRequest(name, req.Model)

	start := time.Now()
	resp, err := ip.Provider.SendCompletion(ctx, req)
	ip.collector.ObserveProviderLatency(name, time.Since(start).Seconds())

	if err != nil {
		ip.collector.RecordProviderError(name, string(providers.KindOf(err)))
		return nil, err
	}
	if resp != nil {
		ip.collector.RecordProviderTokens(name, resp.Usage)
	}
	return resp, nil
}

func (ip *instrumentedProvider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	name := ip.GetName()
	ip.collector.RecordProviderRequest(name, req.Model)

	start := time.Now()
	chunks, err := ip.Provider.StreamCompletion(ctx, req)
	if err != nil {
		ip.collector.RecordProviderError(name, string(providers.KindOf(err)))
		return nil, err
	}

	out := make(chan *providers.StreamChunk)
	go func() {
		defer close(out)
		for chunk := range chunks {
			if chunk.Error != nil {
				ip.collector.RecordProviderError(name, string(providers.KindOf(chunk.Error)))
			}
			if chunk.Done {
				ip.collector.ObserveProviderLatency(name, time.Since(start).Seconds())
				if chunk.Usage != nil {
					ip.collector.RecordProviderTokens(name, *chunk.Usage)
				}
			}
			out <- chunk
		}
	}()
	return out, nil
}
