package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ganymede/pkg/providers"
)

// namespace prefixes every exported series.
const namespace = "ganymede"

// latencyBuckets cover provider round trips, which range from sub-second
// cache hits to multi-minute long-context completions.
var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// Collector owns every Prometheus series the gateway exports. All record
// methods are nil-safe: calling them on a nil *Collector is a no-op, so
// instrumented code paths never need to branch on whether metrics are
// enabled.
//
// Collector is safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	providerRequests *prometheus.CounterVec
	providerErrors   *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	providerTokens   *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
	sessionsActive   prometheus.Gauge
	wsMessages       *prometheus.CounterVec
	busEvents        *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its series on the given
// registry. A nil registry gets a fresh private one, which keeps tests
// isolated from the default global registry.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Completion requests issued per provider and model.",
			},
			[]string{"provider", "model"},
		),

		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Provider call failures by error kind.",
			},
			[]string{"provider", "kind"},
		),

		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Provider round-trip latency. For streams, time to stream completion.",
				Buckets:   latencyBuckets,
			},
			[]string{"provider"},
		),

		providerTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_tokens_total",
				Help:      "Tokens consumed per provider, split by direction (prompt, completion).",
			},
			[]string{"provider", "direction"},
		),

		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Circuit breaker state per provider: 0 closed, 1 half-open, 2 open.",
			},
			[]string{"provider"},
		),

		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Open WebSocket sessions.",
			},
		),

		wsMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Inbound WebSocket frames by client event type.",
			},
			[]string{"type"},
		),

		busEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_events_total",
				Help:      "Events emitted on the bus by category.",
			},
			[]string{"category"},
		),
	}

	registry.MustRegister(
		c.providerRequests,
		c.providerErrors,
		c.providerLatency,
		c.providerTokens,
		c.circuitState,
		c.sessionsActive,
		c.wsMessages,
		c.busEvents,
	)
	return c
}

// Registry returns the underlying registry, for mounting the scrape
// handler or registering extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordProviderRequest counts one completion request.
func (c *Collector) RecordProviderRequest(provider, model string) {
	if c == nil {
		return
	}
	c.providerRequests.WithLabelValues(provider, model).Inc()
}

// RecordProviderError counts one failed provider call. An empty kind is
// recorded as internal.
func (c *Collector) RecordProviderError(provider, kind string) {
	if c == nil {
		return
	}
	if kind == "" {
		kind = string(providers.KindInternal)
	}
	c.providerErrors.WithLabelValues(provider, kind).Inc()
}

// ObserveProviderLatency records one provider round trip.
func (c *Collector) ObserveProviderLatency(provider string, seconds float64) {
	if c == nil {
		return
	}
	c.providerLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordProviderTokens counts prompt and completion tokens from a usage
// report.
func (c *Collector) RecordProviderTokens(provider string, usage providers.TokenUsage) {
	if c == nil {
		return
	}
	if usage.PromptTokens > 0 {
		c.providerTokens.WithLabelValues(provider, "prompt").Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		c.providerTokens.WithLabelValues(provider, "completion").Add(float64(usage.CompletionTokens))
	}
}

// SetCircuitState publishes a breaker state transition.
func (c *Collector) SetCircuitState(provider, state string) {
	if c == nil {
		return
	}
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	c.circuitState.WithLabelValues(provider).Set(v)
}

// SessionOpened increments the active session gauge.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Inc()
}

// SessionClosed decrements the active session gauge.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
}

// RecordWSMessage counts one inbound client frame.
func (c *Collector) RecordWSMessage(eventType string) {
	if c == nil {
		return
	}
	c.wsMessages.WithLabelValues(eventType).Inc()
}

// RecordBusEvent counts one bus emission under its category.
func (c *Collector) RecordBusEvent(category string) {
	if c == nil {
		return
	}
	c.busEvents.WithLabelValues(category).Inc()
}
