package routing

import (
	"context"
	"log/slog"

	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/registry"
)

// Complete selects a model under the given strategy and sends the request
// through the matching adapter. The response carries the routing decision.
func (r *Router) Complete(ctx context.Context, req *providers.CompletionRequest, criteria registry.SelectionCriteria, strategy string) (*Response, error) {
	scored, resolved, err := r.selectScored(criteria, strategy)
	if err != nil {
		r.stats.IncrementErrors()
		return nil, err
	}

	adapter := r.adapterFor(scored.Provider)
	resp, err := adapter.SendCompletion(ctx, withModel(req, scored.Model.ID))
	if err != nil {
		r.stats.IncrementFailures()
		return nil, err
	}

	r.stats.IncrementSelection(resolved, scored.Provider.ID)
	r.stats.IncrementCompletions()
	return &Response{
		CompletionResponse: resp,
		Routing:            routingInfo(scored, resolved),
	}, nil
}

// Stream selects a model under the given strategy and opens a streaming
// completion. The first chunk carries the routing decision; later chunks
// do not.
func (r *Router) Stream(ctx context.Context, req *providers.CompletionRequest, criteria registry.SelectionCriteria, strategy string) (<-chan StreamChunk, error) {
	scored, resolved, err := r.selectScored(criteria, strategy)
	if err != nil {
		r.stats.IncrementErrors()
		return nil, err
	}

	adapter := r.adapterFor(scored.Provider)
	chunks, err := adapter.StreamCompletion(ctx, withModel(req, scored.Model.ID))
	if err != nil {
		r.stats.IncrementFailures()
		return nil, err
	}

	r.stats.IncrementSelection(resolved, scored.Provider.ID)
	r.stats.IncrementStreams()

	out := make(chan StreamChunk, 100)
	go func() {
		defer close(out)
		info := routingInfo(scored, resolved)
		for chunk := range chunks {
			routed := StreamChunk{StreamChunk: chunk}
			if info != nil {
				routed.Routing = info
				info = nil
			}
			select {
			case out <- routed:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// CompleteWithFallback tries the top candidates from a balanced selection
// in order until one answers, up to the router's MaxRetries. Unready
// adapters are skipped; any send error advances to the next candidate.
func (r *Router) CompleteWithFallback(ctx context.Context, req *providers.CompletionRequest, criteria registry.SelectionCriteria) (*Response, error) {
	criteria.Capabilities = mergeCapabilities(r.config.RequiredCapabilities, criteria.Capabilities)

	candidates := r.registry.FindModels(criteria)
	if len(candidates) == 0 {
		r.stats.IncrementErrors()
		return nil, &NoMatchingModelsError{Strategy: StrategyBalanced, Capabilities: criteria.Capabilities}
	}
	if len(candidates) > r.config.MaxRetries {
		candidates = candidates[:r.config.MaxRetries]
	}

	var (
		attempted []string
		lastErr   error
	)
	for i := range candidates {
		candidate := &candidates[i]

		adapter := r.adapterFor(candidate.Provider)
		if !adapter.IsReady() {
			slog.Debug("skipping unready candidate",
				"provider", candidate.Provider.ID,
				"model", candidate.Model.ID,
			)
			continue
		}

		resp, err := adapter.SendCompletion(ctx, withModel(req, candidate.Model.ID))
		if err == nil {
			info := routingInfo(candidate, StrategyBalanced)
			if len(attempted) > 0 {
				info.IsFallback = true
				info.AttemptedProviders = attempted
			}
			r.stats.IncrementSelection(StrategyBalanced, candidate.Provider.ID)
			r.stats.IncrementCompletions()
			return &Response{CompletionResponse: resp, Routing: info}, nil
		}

		r.stats.IncrementFailures()
		lastErr = err
		attempted = append(attempted, candidate.Provider.ID+"/"+candidate.Model.ID)
		slog.Warn("candidate failed",
			"provider", candidate.Provider.ID,
			"model", candidate.Model.ID,
			"error", err,
		)

		// A cancelled context fails every remaining candidate the same way.
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		r.stats.IncrementErrors()
		return nil, providers.NewValidationError("No providers are configured or ready")
	}
	return nil, &AllCandidatesFailedError{Attempted: attempted, LastError: lastErr}
}

// EstimateCost predicts the USD cost of a request routed under the given
// criteria and strategy, from the selected model's per-million-token
// prices.
func (r *Router) EstimateCost(inputTokens, outputTokens int, criteria registry.SelectionCriteria, strategy string) (float64, error) {
	scored, _, err := r.selectScored(criteria, strategy)
	if err != nil {
		return 0, err
	}
	cost := float64(inputTokens)/1e6*scored.Model.InputPrice +
		float64(outputTokens)/1e6*scored.Model.OutputPrice
	return cost, nil
}

// withModel fills an empty request model with the selected model id. The
// caller's request is never mutated.
func withModel(req *providers.CompletionRequest, model string) *providers.CompletionRequest {
	if req == nil || req.Model != "" {
		return req
	}
	routed := *req
	routed.Model = model
	return &routed
}
