package registry

import (
	"fmt"
	"sort"
)

// FindModels returns every configured, non-deprecated model matching the
// criteria, scored and sorted best first. Ties keep catalog order.
func (r *Registry) FindModels(criteria SelectionCriteria) []ScoredModel {
	excluded := make(map[string]bool, len(criteria.ExcludedProviders))
	for _, id := range criteria.ExcludedProviders {
		excluded[id] = true
	}

	var matches []ScoredModel
	for _, provider := range r.Configured() {
		if excluded[provider.ID] {
			continue
		}
		for i := range provider.Models {
			model := &provider.Models[i]
			if model.Deprecated {
				continue
			}
			if !matchesCriteria(model, criteria) {
				continue
			}
			matches = append(matches, ScoredModel{
				Provider: provider,
				Model:    model,
				Score:    scoreModel(provider, model, criteria),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// SelectBestModel returns the top match for the criteria.
func (r *Registry) SelectBestModel(criteria SelectionCriteria) (*ScoredModel, error) {
	matches := r.FindModels(criteria)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no models match the selection criteria")
	}
	return &matches[0], nil
}

// Cheapest returns matching models ordered by combined price per million
// tokens, ascending. Ties keep catalog order.
func (r *Registry) Cheapest(criteria SelectionCriteria) []ScoredModel {
	matches := r.FindModels(criteria)
	sort.SliceStable(matches, func(i, j int) bool {
		return combinedPrice(matches[i].Model) < combinedPrice(matches[j].Model)
	})
	return matches
}

// Fastest returns the best match biased toward low-latency hosts.
func (r *Registry) Fastest(criteria SelectionCriteria) (*ScoredModel, error) {
	criteria.PreferredProviders = []string{"groq", "fireworks-ai", "togetherai", "deepseek"}
	return r.SelectBestModel(criteria)
}

// Smartest returns the best reasoning-capable match biased toward frontier
// providers, falling back to general models when nothing reasons.
func (r *Registry) Smartest(criteria SelectionCriteria) (*ScoredModel, error) {
	reasoning := criteria
	reasoning.Capabilities = appendMissing(criteria.Capabilities, CapReasoning)
	reasoning.PreferredProviders = []string{"anthropic", "openai", "deepseek"}
	if best, err := r.SelectBestModel(reasoning); err == nil {
		return best, nil
	}

	criteria.PreferredProviders = []string{"anthropic", "openai", "google"}
	return r.SelectBestModel(criteria)
}

func appendMissing(caps []string, want string) []string {
	for _, c := range caps {
		if c == want {
			return caps
		}
	}
	out := make([]string, 0, len(caps)+1)
	out = append(out, caps...)
	return append(out, want)
}

func matchesCriteria(model *ModelConfig, criteria SelectionCriteria) bool {
	for _, capability := range criteria.Capabilities {
		if !model.HasCapability(capability) {
			return false
		}
	}
	if criteria.MaxInputPrice > 0 && model.InputPrice > criteria.MaxInputPrice {
		return false
	}
	if criteria.MaxOutputPrice > 0 && model.OutputPrice > criteria.MaxOutputPrice {
		return false
	}
	if criteria.MinContextWindow > 0 && model.ContextWindow < criteria.MinContextWindow {
		return false
	}
	return true
}

// scoreModel ranks a candidate: required capabilities and preferred
// providers dominate, task affinity and price efficiency refine.
func scoreModel(provider *ProviderConfig, model *ModelConfig, criteria SelectionCriteria) int {
	score := 0

	score += 10 * len(criteria.Capabilities)

	for idx, id := range criteria.PreferredProviders {
		if provider.ID == id {
			score += 20 * (len(criteria.PreferredProviders) - idx)
			break
		}
	}

	score += taskBonus(model, criteria.TaskType)

	if model.Default {
		score += 5
	}

	if efficiency := int(20 - combinedPrice(model)/2); efficiency > 0 {
		score += efficiency
	}

	return score
}

func taskBonus(model *ModelConfig, task string) int {
	switch task {
	case TaskCode:
		if model.HasCapability(CapCode) {
			return 15
		}
	case TaskReasoning:
		if model.HasCapability(CapReasoning) {
			return 20
		}
	case TaskAnalysis:
		if model.HasCapability(CapVision) {
			return 10
		}
		if model.HasCapability(CapReasoning) {
			return 15
		}
		return 5
	case TaskCreative:
		if model.ContextWindow > 100000 {
			return 10
		}
		return 5
	case TaskChat:
		if model.HasCapability(CapChat) {
			return 5
		}
	}
	return 0
}

func combinedPrice(model *ModelConfig) float64 {
	return model.InputPrice + model.OutputPrice
}
