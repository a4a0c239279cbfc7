package registry

// Provider types understood by the router's adapter factory.
const (
	TypeOpenAI           = "openai"
	TypeAnthropic        = "anthropic"
	TypeGoogle           = "google"
	TypeOpenAICompatible = "openai-compatible"
)

// Model capabilities. Capability strings appear verbatim in provider JSON
// files and in selection criteria.
const (
	CapChat            = "chat"
	CapVision          = "vision"
	CapAudio           = "audio"
	CapFunctionCalling = "function_calling"
	CapJSONMode        = "json_mode"
	CapReasoning       = "reasoning"
	CapStreaming       = "streaming"
	CapImageGeneration = "image_generation"
	CapCode            = "code"
)

// Task types accepted as selection hints.
const (
	TaskCode      = "code"
	TaskReasoning = "reasoning"
	TaskAnalysis  = "analysis"
	TaskCreative  = "creative"
	TaskChat      = "chat"
)

// ProviderConfig describes one upstream provider and its model catalog,
// as stored in the registry's JSON files.
type ProviderConfig struct {
	// ID is the stable provider identifier (e.g. "openai", "groq").
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Type selects the wire format (openai, anthropic, google,
	// openai-compatible).
	Type string `json:"type"`

	// BaseURL is the API root.
	BaseURL string `json:"baseUrl"`

	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `json:"apiKeyEnv"`

	// APIKey is the resolved key. Never serialized.
	APIKey string `json:"-"`

	// Features is the provider-level feature matrix.
	Features Features `json:"features"`

	// Models is the ordered model catalog. Declaration order matters: it
	// breaks selection ties and resolves the default when no model is
	// flagged.
	Models []ModelConfig `json:"models"`
}

// Configured reports whether a key was resolved for this provider.
func (p *ProviderConfig) Configured() bool {
	return p.APIKey != ""
}

// DefaultModel returns the flagged default model, or the first model in
// declared order, or nil when the catalog is empty.
func (p *ProviderConfig) DefaultModel() *ModelConfig {
	for i := range p.Models {
		if p.Models[i].Default {
			return &p.Models[i]
		}
	}
	if len(p.Models) > 0 {
		return &p.Models[0]
	}
	return nil
}

// Features is the provider-level feature matrix.
type Features struct {
	Streaming     bool `json:"streaming"`
	Tools         bool `json:"tools"`
	Vision        bool `json:"vision"`
	JSONMode      bool `json:"jsonMode"`
	SystemMessage bool `json:"systemMessage"`
}

// ModelConfig describes one model in a provider's catalog.
type ModelConfig struct {
	// ID is the model identifier sent on the wire.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// ContextWindow is the total token window.
	ContextWindow int `json:"contextWindow"`

	// MaxOutputTokens caps a single completion.
	MaxOutputTokens int `json:"maxOutputTokens"`

	// InputPrice and OutputPrice are USD per million tokens.
	InputPrice  float64 `json:"inputPrice"`
	OutputPrice float64 `json:"outputPrice"`

	// Capabilities lists what the model can do (see Cap constants).
	Capabilities []string `json:"capabilities"`

	// Default marks the provider's default model. The registry enforces
	// at most one per provider on load.
	Default bool `json:"default"`

	// ReleaseDate is informational (YYYY-MM-DD).
	ReleaseDate string `json:"releaseDate,omitempty"`

	// Aliases are alternative ids accepted for this model.
	Aliases []string `json:"aliases,omitempty"`

	// Deprecated excludes the model from selection.
	Deprecated bool `json:"deprecated,omitempty"`
}

// HasCapability reports whether the model declares the capability.
func (m *ModelConfig) HasCapability(cap string) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// SelectionCriteria filters and ranks models across providers.
type SelectionCriteria struct {
	// Capabilities the model must declare (all of them).
	Capabilities []string

	// PreferredProviders boosts matching providers; the first entry gets
	// the largest boost.
	PreferredProviders []string

	// ExcludedProviders removes providers from consideration.
	ExcludedProviders []string

	// MaxInputPrice and MaxOutputPrice cap USD-per-million prices.
	// Zero means no cap.
	MaxInputPrice  float64
	MaxOutputPrice float64

	// MinContextWindow floors the context window. Zero means no floor.
	MinContextWindow int

	// TaskType is an optional hint from {code, reasoning, analysis,
	// creative, chat}.
	TaskType string
}

// ScoredModel is one selection result.
type ScoredModel struct {
	// Provider owns the model. Points into the registry snapshot; treat
	// as read-only.
	Provider *ProviderConfig

	// Model is the selected model.
	Model *ModelConfig

	// Score is the selection score (higher wins).
	Score int
}
