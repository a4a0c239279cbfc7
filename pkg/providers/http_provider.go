package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, deadline handling, in-flight request
// tracking for Cancel, and uniform error classification.
//
// Concrete provider implementations (openaicompat, anthropic, google) embed
// this struct and implement the Provider interface methods.
//
// HTTPProvider performs exactly one attempt per call: retry across providers
// is owned by the fallback layer, which needs to observe every failure to
// drive its circuit breakers.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// inflight tracks cancel funcs of running requests, keyed by a
	// monotonic id, so Cancel can abort them
	inflight map[uint64]context.CancelFunc
	nextID   uint64
	mu       sync.Mutex
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	// No client-level timeout: it would cut streaming bodies short.
	// The per-call deadline is applied in Track.
	client := &http.Client{Transport: transport}

	return &HTTPProvider{
		config:   config,
		client:   client,
		inflight: make(map[uint64]context.CancelFunc),
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetType returns the provider's type.
func (p *HTTPProvider) GetType() string {
	return p.config.Type
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// GetModels returns the model ids this provider serves.
func (p *HTTPProvider) GetModels() []string {
	return p.config.Models
}

// IsReady reports whether an API key is configured.
func (p *HTTPProvider) IsReady() bool {
	return p.config.APIKey != ""
}

// CountTokens estimates the token count of the messages (text parts only,
// ceil(chars/4)).
func (p *HTTPProvider) CountTokens(messages []Message) int {
	return EstimateTokens(messages)
}

// Track derives a cancellable per-call context carrying the provider
// deadline and registers it so Cancel can abort the call. The returned
// release func must be called when the request finishes.
func (p *HTTPProvider) Track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.inflight[id] = cancel
	p.mu.Unlock()

	release := func() {
		p.mu.Lock()
		delete(p.inflight, id)
		p.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// Cancel aborts every in-flight request on a best-effort basis.
func (p *HTTPProvider) Cancel() {
	p.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(p.inflight))
	for _, cancel := range p.inflight {
		cancels = append(cancels, cancel)
	}
	p.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if len(cancels) > 0 {
		slog.Debug("cancelled in-flight requests",
			"provider", p.config.Name,
			"count", len(cancels),
		)
	}
}

// DoRequest performs a single HTTP request against the provider and
// classifies failures into the gateway error taxonomy. The caller owns the
// response body.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, NewInternalErrorf("failed to create request: %v", err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	slog.Debug("sending request to provider",
		"provider", p.config.Name,
		"method", method,
		"url", url,
	)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.classifyTransportError(ctx, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	errorBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return nil, p.classifyStatus(resp.StatusCode, string(errorBody))
}

// classifyTransportError maps client.Do failures onto the taxonomy.
func (p *HTTPProvider) classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(p.config.Name, p.config.Timeout)
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindInternal, Provider: p.config.Name, Message: "request cancelled", Err: context.Canceled}
	}
	return WrapInternal(p.config.Name, "request failed", err)
}

// classifyStatus maps non-2xx responses onto the taxonomy. Auth failures
// become internal errors whose message carries the "invalid API key" hint,
// which Retryable turns into a hard stop.
func (p *HTTPProvider) classifyStatus(status int, body string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{
			Kind:     KindInternal,
			Provider: p.config.Name,
			Message:  fmt.Sprintf("invalid API key (status %d): %s", status, body),
		}
	case status == http.StatusBadRequest:
		return &Error{
			Kind:     KindValidation,
			Provider: p.config.Name,
			Message:  fmt.Sprintf("API error (status %d): %s", status, body),
		}
	default:
		return &Error{
			Kind:     KindInternal,
			Provider: p.config.Name,
			Message:  fmt.Sprintf("API error (status %d): %s", status, body),
		}
	}
}

// DoJSONRequest performs a JSON request and decodes the response.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	var err error
	if reqBody != nil {
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return NewInternalErrorf("failed to marshal request: %v", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return WrapInternal(p.config.Name, "failed to read response", err)
	}

	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return WrapInternal(p.config.Name, "malformed response", err)
		}
	}

	return nil
}

// Close closes idle HTTP connections. In-flight requests are aborted first.
func (p *HTTPProvider) Close() error {
	p.Cancel()
	p.client.CloseIdleConnections()
	slog.Debug("provider closed", "provider", p.config.Name)
	return nil
}
