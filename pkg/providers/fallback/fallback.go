package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/ganymede/pkg/providers"
)

// Config controls fallback iteration and the per-provider circuit breakers.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a
	// provider's circuit. Zero means 5.
	FailureThreshold int

	// Cooldown is how long an open circuit blocks its provider before a
	// half-open trial. Zero means 60 seconds.
	Cooldown time.Duration

	// EnableFallback toggles iteration over the fallback list. When false
	// every call goes to the primary only.
	EnableFallback bool

	// OnFallback fires once per provider switch, after `failed` errored and
	// before `next` is tried.
	OnFallback func(failed string, err error, next string)

	// OnRetry fires on every failed attempt with its 1-based number.
	OnRetry func(attempt int, provider string, err error)

	// Clock returns the current time for circuit cooldowns. Nil means
	// time.Now; tests inject a fake.
	Clock func() time.Time
}

// DefaultConfig returns the production defaults: threshold 5, cooldown 60
// seconds, fallback enabled.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		Cooldown:         60 * time.Second,
		EnableFallback:   true,
	}
}

// Provider wraps a primary provider and an ordered fallback list behind the
// providers.Provider contract. Completions walk the list until one provider
// succeeds, skipping open circuits and advancing only past retryable
// failures. Streams follow the same iteration until the first chunk is
// yielded; after that the serving provider is committed and a mid-stream
// failure terminates the stream instead of retrying.
//
// GetName and GetType report the primary's identity: the wrapper is a
// drop-in replacement for it.
type Provider struct {
	primary   providers.Provider
	fallbacks []providers.Provider
	config    *Config

	// One breaker per sub-provider, owned by this instance.
	breakers map[string]*CircuitBreaker
}

// New creates a fallback wrapper. A nil config means DefaultConfig.
func New(primary providers.Provider, fallbacks []providers.Provider, config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		primary:   primary,
		fallbacks: fallbacks,
		config:    config,
		breakers:  make(map[string]*CircuitBreaker, 1+len(fallbacks)),
	}
	for _, prov := range p.all() {
		p.breakers[prov.GetName()] = NewCircuitBreaker(
			config.FailureThreshold, config.Cooldown, config.Clock)
	}
	return p
}

// all returns primary plus fallbacks in order.
func (p *Provider) all() []providers.Provider {
	return append([]providers.Provider{p.primary}, p.fallbacks...)
}

// ready returns the ordered sub-providers that can accept requests.
func (p *Provider) ready() []providers.Provider {
	var out []providers.Provider
	for _, prov := range p.all() {
		if prov.IsReady() {
			out = append(out, prov)
		}
	}
	return out
}

var errNotReady = providers.NewValidationError("No providers are configured or ready")

// SendCompletion walks the ready providers until one succeeds. Open circuits
// are skipped; non-retryable errors surface immediately; exhausting the list
// wraps the last error in a summary.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	candidates := p.ready()
	if len(candidates) == 0 {
		return nil, errNotReady
	}
	if !p.config.EnableFallback {
		return p.primary.SendCompletion(ctx, req)
	}

	attempts := 0
	var lastErr error

	for i, prov := range candidates {
		name := prov.GetName()
		breaker := p.breakers[name]
		if !breaker.Allow() {
			slog.Debug("skipping provider with open circuit", "provider", name)
			continue
		}

		attempts++
		resp, err := prov.SendCompletion(ctx, req)
		if err == nil {
			breaker.RecordSuccess()
			return resp, nil
		}

		breaker.RecordFailure()
		lastErr = err
		if p.config.OnRetry != nil {
			p.config.OnRetry(attempts, name, err)
		}

		if !providers.Retryable(err) {
			return nil, err
		}
		if i+1 < len(candidates) {
			next := candidates[i+1].GetName()
			slog.Warn("falling back to next provider",
				"failed", name,
				"next", next,
				"error", err,
			)
			if p.config.OnFallback != nil {
				p.config.OnFallback(name, err, next)
			}
		}
	}

	if lastErr == nil {
		// Every candidate was skipped on an open circuit.
		return nil, errNotReady
	}
	return nil, providers.WrapInternal(
		"", fmt.Sprintf("All providers failed after %d attempts", attempts), lastErr)
}

// StreamCompletion walks the ready providers until one yields a chunk. The
// iteration runs asynchronously: pre-data failures advance to the next
// provider, but once any chunk reaches the caller the serving provider is
// committed and a later failure ends the stream with a terminal error chunk.
func (p *Provider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	candidates := p.ready()
	if len(candidates) == 0 {
		return nil, errNotReady
	}
	if !p.config.EnableFallback {
		return p.primary.StreamCompletion(ctx, req)
	}

	out := make(chan *providers.StreamChunk, 100)
	go p.streamWithFallback(ctx, req, candidates, out)
	return out, nil
}

func (p *Provider) streamWithFallback(ctx context.Context, req *providers.CompletionRequest, candidates []providers.Provider, out chan<- *providers.StreamChunk) {
	defer close(out)

	attempts := 0
	var lastErr error

	for i, prov := range candidates {
		name := prov.GetName()
		breaker := p.breakers[name]
		if !breaker.Allow() {
			slog.Debug("skipping provider with open circuit", "provider", name)
			continue
		}

		attempts++
		err := p.serveStream(ctx, req, prov, breaker, out)
		if err == nil {
			return
		}
		if errors.Is(err, errStreamCommitted) {
			// Data already reached the caller; the terminal chunk is sent.
			return
		}

		lastErr = err
		if p.config.OnRetry != nil {
			p.config.OnRetry(attempts, name, err)
		}

		if !providers.Retryable(err) {
			out <- &providers.StreamChunk{Error: err}
			return
		}
		if i+1 < len(candidates) {
			next := candidates[i+1].GetName()
			slog.Warn("falling back to next provider",
				"failed", name,
				"next", next,
				"error", err,
			)
			if p.config.OnFallback != nil {
				p.config.OnFallback(name, err, next)
			}
		}
	}

	if lastErr == nil {
		out <- &providers.StreamChunk{Error: errNotReady}
		return
	}
	out <- &providers.StreamChunk{Error: providers.WrapInternal(
		"", fmt.Sprintf("All providers failed after %d attempts", attempts), lastErr)}
}

// errStreamCommitted marks a failure that happened after data was forwarded:
// the stream is already terminated and no further provider may be tried.
var errStreamCommitted = errors.New("stream committed")

// serveStream opens one provider's stream and forwards it. A failure before
// the first data chunk returns that error so the caller can advance; after
// any data has been forwarded, failures emit the terminal error chunk and
// return errStreamCommitted.
func (p *Provider) serveStream(ctx context.Context, req *providers.CompletionRequest, prov providers.Provider, breaker *CircuitBreaker, out chan<- *providers.StreamChunk) error {
	chunks, err := prov.StreamCompletion(ctx, req)
	if err != nil {
		breaker.RecordFailure()
		return err
	}

	yielded := false
	for chunk := range chunks {
		if chunk.Error != nil {
			breaker.RecordFailure()
			if !yielded {
				return chunk.Error
			}
			out <- &providers.StreamChunk{Error: providers.NewInternalErrorf(
				"Stream interrupted after partial data: %v", chunk.Error)}
			return errStreamCommitted
		}

		select {
		case out <- chunk:
			yielded = true
		case <-ctx.Done():
			return errStreamCommitted
		}

		if chunk.Done {
			breaker.RecordSuccess()
			return nil
		}
	}

	if !yielded {
		breaker.RecordFailure()
		return providers.NewInternalErrorf("provider %s stream ended without data", prov.GetName())
	}
	// Upstream closed without a terminal chunk; treat the data we got as a
	// complete stream.
	breaker.RecordSuccess()
	return nil
}

// CountTokens delegates to the primary.
func (p *Provider) CountTokens(messages []providers.Message) int {
	return p.primary.CountTokens(messages)
}

// GetModels returns the union of all ready sub-providers' models, in
// provider order, deduplicated.
func (p *Provider) GetModels() []string {
	seen := make(map[string]bool)
	var models []string
	for _, prov := range p.ready() {
		for _, model := range prov.GetModels() {
			if !seen[model] {
				seen[model] = true
				models = append(models, model)
			}
		}
	}
	return models
}

// IsReady reports whether any sub-provider is ready.
func (p *Provider) IsReady() bool {
	return len(p.ready()) > 0
}

// GetName returns the primary's name.
func (p *Provider) GetName() string {
	return p.primary.GetName()
}

// GetType returns the primary's type.
func (p *Provider) GetType() string {
	return p.primary.GetType()
}

// Cancel forwards to every sub-provider.
func (p *Provider) Cancel() {
	for _, prov := range p.all() {
		prov.Cancel()
	}
}

// Close closes every sub-provider, joining their errors.
func (p *Provider) Close() error {
	var errs []error
	for _, prov := range p.all() {
		if err := prov.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CircuitStates returns the current breaker state per provider name, for
// metrics and diagnostics.
func (p *Provider) CircuitStates() map[string]string {
	states := make(map[string]string, len(p.breakers))
	for name, breaker := range p.breakers {
		states[name] = breaker.State()
	}
	return states
}
