// Package llm wraps the language model used for code generation and
// prompt analysis.
package llm

// ModelTier selects a model by capability.
type ModelTier string

const (
	// TierLite handles classification and short structured extraction.
	TierLite ModelTier = "lite"
	// TierStandard handles component generation.
	TierStandard ModelTier = "standard"
	// TierAdvanced handles large multi-section layouts.
	TierAdvanced ModelTier = "advanced"
)

// Provider names an LLM backend.
type Provider string

const ProviderGemini Provider = "gemini"

// Config maps tiers to concrete model names.
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the Gemini model set.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.2,
	}
}

// GetModel returns the model for tier, falling back to standard then lite.
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of c using model for tier.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	out := &Config{Provider: c.Provider, Models: make(map[ModelTier]string, len(c.Models)+1), Temperature: c.Temperature}
	for k, v := range c.Models {
		out.Models[k] = v
	}
	out.Models[tier] = model
	return out
}
