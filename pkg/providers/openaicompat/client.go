package openaicompat

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/ganymede/pkg/providers"
)

// Provider is the adapter for OpenAI's chat completions API and all
// OpenAI-compatible backends. It implements the providers.Provider
// interface.
type Provider struct {
	*providers.HTTPProvider
}

// New creates a new OpenAI-compatible provider instance. A missing API key
// does not fail construction: the provider reports IsReady() == false and
// rejects calls until a key is configured.
func New(config providers.ProviderConfig) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
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

	slog.Debug("openai-compatible provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return p
}

// SendCompletion sends a completion request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}

	ctx, release := p.Track(ctx)
	defer release()

	wireReq := transformRequest(req)
	url := fmt.Sprintf("%s/chat/completions", p.GetConfig().BaseURL)

	var wireResp chatResponse
	if err := p.DoJSONRequest(ctx, "POST", url, wireReq, &wireResp, p.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&wireResp)
	if err != nil {
		return nil, providers.WrapInternal(p.GetName(), "malformed response", err)
	}

	slog.Debug("completion request succeeded",
		"provider", p.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)

	return resp, nil
}

// StreamCompletion sends a streaming completion request.
func (p *Provider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	if err := p.validateRequest(req); err != nil {
		return nil, err
	}

	ctx, release := p.Track(ctx)

	wireReq := transformRequest(req)
	wireReq.Stream = true
	url := fmt.Sprintf("%s/chat/completions", p.GetConfig().BaseURL)

	stream, err := newStreamReader(ctx, p.HTTPProvider, url, wireReq, p.headers())
	if err != nil {
		release()
		return nil, err
	}

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

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.GetConfig().APIKey,
		"Content-Type":  "application/json",
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
