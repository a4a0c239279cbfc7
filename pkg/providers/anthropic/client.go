package anthropic

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/ganymede/pkg/providers"
)

// Provider is the Anthropic provider adapter.
// It implements the providers.Provider interface for Anthropic's Messages API.
type Provider struct {
	*providers.HTTPProvider
}

const (
	// APIVersion is the anthropic-version header value
	APIVersion = "2023-06-01"

	// PromptCachingBeta is the anthropic-beta header enabling prompt caching
	PromptCachingBeta = "prompt-caching-2024-07-31"
)

// New creates a new Anthropic provider instance. A missing API key does not
// fail construction: the provider reports IsReady() == false and rejects
// calls until a key is configured.
func New(config providers.ProviderConfig) *Provider {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com/v1"
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

	slog.Debug("anthropic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
	)

	return p
}

// SendCompletion sends a completion request to Anthropic.
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

	url := fmt.Sprintf("%s/messages", p.GetConfig().BaseURL)

	var wireResp messagesResponse
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

// StreamCompletion sends a streaming completion request to Anthropic.
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
	wireReq.Stream = true

	url := fmt.Sprintf("%s/messages", p.GetConfig().BaseURL)
	headers := p.headers()
	headers["Accept"] = "text/event-stream"

	stream, err := newStreamReader(ctx, p.HTTPProvider, url, wireReq, headers)
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
		"x-api-key":         p.GetConfig().APIKey,
		"anthropic-version": APIVersion,
		"anthropic-beta":    PromptCachingBeta,
		"Content-Type":      "application/json",
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
