package routing

import (
	"log/slog"

	"mercator-hq/ganymede/pkg/registry"
)

// availableStrategies lists the strategy names the router accepts.
var availableStrategies = []string{
	StrategyBalanced,
	StrategyCheapest,
	StrategyFastest,
	StrategySmartest,
}

// SelectProvider runs a selection under the given strategy and returns the
// routing decision without sending anything. An empty strategy uses the
// router's default.
func (r *Router) SelectProvider(criteria registry.SelectionCriteria, strategy string) (*RoutingInfo, error) {
	scored, resolved, err := r.selectScored(criteria, strategy)
	if err != nil {
		r.stats.IncrementErrors()
		return nil, err
	}
	r.stats.IncrementSelection(resolved, scored.Provider.ID)
	return routingInfo(scored, resolved), nil
}

// selectScored resolves the strategy, merges the router's required
// capabilities into the criteria, and runs the selection. It does not
// touch statistics; callers record the outcome.
func (r *Router) selectScored(criteria registry.SelectionCriteria, strategy string) (*registry.ScoredModel, string, error) {
	if strategy == "" {
		strategy = r.config.DefaultStrategy
	}
	criteria.Capabilities = mergeCapabilities(r.config.RequiredCapabilities, criteria.Capabilities)

	var (
		scored *registry.ScoredModel
		err    error
	)
	switch strategy {
	case StrategyBalanced:
		scored, err = r.registry.SelectBestModel(criteria)
	case StrategyCheapest:
		matches := r.registry.Cheapest(criteria)
		if len(matches) == 0 {
			err = ErrNoMatchingModels
		} else {
			scored = &matches[0]
		}
	case StrategyFastest:
		scored, err = r.registry.Fastest(criteria)
	case StrategySmartest:
		scored, err = r.registry.Smartest(criteria)
	default:
		return nil, "", &InvalidStrategyError{
			Strategy:            strategy,
			AvailableStrategies: availableStrategies,
		}
	}

	if err != nil {
		return nil, "", &NoMatchingModelsError{Strategy: strategy, Capabilities: criteria.Capabilities}
	}

	slog.Debug("model selected",
		"strategy", strategy,
		"provider", scored.Provider.ID,
		"model", scored.Model.ID,
		"score", scored.Score,
	)
	return scored, strategy, nil
}

// mergeCapabilities combines the router's required capabilities with the
// caller's, deduplicated, router capabilities first.
func mergeCapabilities(required, requested []string) []string {
	if len(required) == 0 {
		return requested
	}
	merged := make([]string, 0, len(required)+len(requested))
	seen := make(map[string]bool, len(required)+len(requested))
	for _, c := range required {
		if !seen[c] {
			seen[c] = true
			merged = append(merged, c)
		}
	}
	for _, c := range requested {
		if !seen[c] {
			seen[c] = true
			merged = append(merged, c)
		}
	}
	return merged
}

func routingInfo(scored *registry.ScoredModel, strategy string) *RoutingInfo {
	return &RoutingInfo{
		Provider:     scored.Provider.ID,
		ProviderName: scored.Provider.Name,
		Model:        scored.Model.ID,
		Strategy:     strategy,
		Score:        scored.Score,
	}
}
