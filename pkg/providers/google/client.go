package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"mercator-hq/ganymede/pkg/providers"
)

// Provider is the Google Gemini provider adapter.
// It implements the providers.Provider interface for the generateContent API.
type Provider struct {
	*providers.HTTPProvider
}

// New creates a new Google provider instance. A missing API key does not
// fail construction: the provider reports IsReady() == false and rejects
// calls until a key is configured.
func New(config providers.ProviderConfig) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
	}

	slog.Debug("google provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return p
}

// SendCompletion sends a completion request to the generateContent endpoint.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}

	ctx, release := p.Track(ctx)
	defer release()

	wireReq, err := transformRequest(req)
	if err != nil {
		return nil, err
	}

	var wireResp generateResponse
	if err := p.DoJSONRequest(ctx, "POST", p.endpoint(req.Model, false), wireReq, &wireResp, p.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&wireResp)
	if err != nil {
		return nil, providers.WrapInternal(p.GetName(), "malformed response", err)
	}
	if resp.Model == "" {
		resp.Model = req.Model
	}

	slog.Debug("completion request succeeded",
		"provider", p.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	return resp, nil
}

// StreamCompletion sends a streaming completion request to the
// streamGenerateContent endpoint. The stream body is identical to the
// non-streaming one; the URL selects the mode.
func (p *Provider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}

	ctx, release := p.Track(ctx)

	wireReq, err := transformRequest(req)
	if err != nil {
		release()
		return nil, err
	}

	headers := p.headers()
	headers["Accept"] = "text/event-stream"

	stream, err := newStreamReader(ctx, p.HTTPProvider, p.endpoint(req.Model, true), wireReq, headers)
	if err != nil {
		release()
		return nil, err
	}
	stream.model = req.Model

	chunks := make(chan *providers.StreamChunk, 100)

	go func() {
		defer close(chunks)
		defer release()
		defer stream.Close()

		for {
			chunk, err := stream.Read(ctx)
			if err != nil {
				if err != errStreamDone {
					chunks <- &providers.StreamChunk{Error: err}
				}
				return
			}
			if chunk == nil {
				continue
			}

			select {
			case chunks <- chunk:
			case <-ctx.Done():
				// Consumer abandoned the stream; nothing left to deliver to.
				return
			}

			if chunk.Done {
				return
			}
		}
	}()

	return chunks, nil
}

// endpoint builds the model-scoped URL. The API key travels as a query
// parameter, not a header.
func (p *Provider) endpoint(model string, stream bool) string {
	verb := "generateContent"
	if stream {
		verb = "streamGenerateContent"
	}

	q := url.Values{}
	if stream {
		q.Set("alt", "sse")
	}
	q.Set("key", p.GetConfig().APIKey)

	return fmt.Sprintf("%s/models/%s:%s?%s",
		p.GetConfig().BaseURL, url.PathEscape(model), verb, q.Encode())
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
	}
}

func (p *Provider) validateRequest(req *providers.CompletionRequest) error {
	if !p.IsReady() {
		return providers.NewValidationErrorf("%s API key not configured", p.GetName())
	}
	if req == nil {
		return providers.NewValidationError("request cannot be nil")
	}
	if req.Model == "" {
		return providers.NewValidationError("model is required")
	}
	if len(req.Messages) == 0 {
		return providers.NewValidationError("at least one message is required")
	}
	return nil
}
