package registry

// canonicalOverride pins a known provider id to its authoritative wire
// type, base URL and key variable.
type canonicalOverride struct {
	Type      string
	BaseURL   string
	APIKeyEnv string
}

// canonicalOverrides wins over both stored and synced values on every load,
// so a misconfigured file can never point a known provider at the wrong
// wire format.
var canonicalOverrides = map[string]canonicalOverride{
	"openai": {
		Type:      TypeOpenAI,
		BaseURL:   "https://api.openai.com/v1",
		APIKeyEnv: "OPENAI_API_KEY",
	},
	"anthropic": {
		Type:      TypeAnthropic,
		BaseURL:   "https://api.anthropic.com/v1",
		APIKeyEnv: "ANTHROPIC_API_KEY",
	},
	"google": {
		Type:      TypeGoogle,
		BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
		APIKeyEnv: "GOOGLE_GENERATIVE_AI_API_KEY",
	},
	"groq": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.groq.com/openai/v1",
		APIKeyEnv: "GROQ_API_KEY",
	},
	"mistral": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.mistral.ai/v1",
		APIKeyEnv: "MISTRAL_API_KEY",
	},
	"cohere": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.cohere.ai/compatibility/v1",
		APIKeyEnv: "COHERE_API_KEY",
	},
	"openrouter": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://openrouter.ai/api/v1",
		APIKeyEnv: "OPENROUTER_API_KEY",
	},
	"togetherai": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.together.xyz/v1",
		APIKeyEnv: "TOGETHER_API_KEY",
	},
	"fireworks-ai": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.fireworks.ai/inference/v1",
		APIKeyEnv: "FIREWORKS_API_KEY",
	},
	"perplexity": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.perplexity.ai",
		APIKeyEnv: "PERPLEXITY_API_KEY",
	},
	"deepinfra": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.deepinfra.com/v1/openai",
		APIKeyEnv: "DEEPINFRA_API_KEY",
	},
	"xai": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.x.ai/v1",
		APIKeyEnv: "XAI_API_KEY",
	},
	"moonshotai": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.moonshot.ai/v1",
		APIKeyEnv: "MOONSHOT_API_KEY",
	},
	"alibaba": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://dashscope-intl.aliyuncs.com/compatible-mode/v1",
		APIKeyEnv: "DASHSCOPE_API_KEY",
	},
	"nvidia": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://integrate.api.nvidia.com/v1",
		APIKeyEnv: "NVIDIA_API_KEY",
	},
	"vultr": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://api.vultrinference.com/v1",
		APIKeyEnv: "VULTR_API_KEY",
	},
	"github-models": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://models.github.ai/inference",
		APIKeyEnv: "GITHUB_TOKEN",
	},
	"huggingface": {
		Type:      TypeOpenAICompatible,
		BaseURL:   "https://router.huggingface.co/v1",
		APIKeyEnv: "HF_TOKEN",
	},
}

// applyCanonicalOverride rewrites the pinned fields for known ids.
func applyCanonicalOverride(cfg *ProviderConfig) {
	override, ok := canonicalOverrides[cfg.ID]
	if !ok {
		return
	}
	cfg.Type = override.Type
	cfg.BaseURL = override.BaseURL
	cfg.APIKeyEnv = override.APIKeyEnv
}
