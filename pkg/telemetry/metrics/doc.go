// Package metrics exports the gateway's Prometheus series.
//
// A single Collector owns every series: provider request counts, errors by
// kind, latency, token usage, circuit breaker states, active WebSocket
// sessions, inbound frame counts, and bus emissions. Record methods are
// nil-safe so callers never branch on whether metrics are enabled.
//
// Usage:
//
//	collector := metrics.NewCollector(nil)
//	provider = metrics.InstrumentProvider(provider, collector)
//	http.Handle("/metrics", collector.Handler())
//
// Series are namespaced ganymede_*, for example:
//
//	ganymede_provider_requests_total{provider="anthropic",model="claude-sonnet-4-5"} 42
//	ganymede_circuit_state{provider="openai"} 0
package metrics
