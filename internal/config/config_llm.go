package config

import "os"

// ProviderConfig describes one configured LLM provider. A provider is
// considered absent (and omitted from /ai/providers) when its API key
// environment variable is unset.
type ProviderConfig struct {
	ID      string
	APIKey  string
	BaseURL string
	Model   string
}

// ProvidersConfig is the set of LLM providers available to this process,
// keyed by provider id ("openai", "anthropic", "custom").
type ProvidersConfig struct {
	OpenAI    *ProviderConfig
	Anthropic *ProviderConfig
	Custom    *ProviderConfig
}

// Enabled returns every configured provider in stable order.
func (p ProvidersConfig) Enabled() []*ProviderConfig {
	var out []*ProviderConfig
	for _, c := range []*ProviderConfig{p.OpenAI, p.Anthropic, p.Custom} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func loadProvidersConfig() ProvidersConfig {
	var cfg ProvidersConfig

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI = &ProviderConfig{
			ID:      "openai",
			APIKey:  key,
			BaseURL: getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getenvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		}
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Anthropic = &ProviderConfig{
			ID:      "anthropic",
			APIKey:  key,
			BaseURL: "https://api.anthropic.com",
			Model:   getenvDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		}
	}

	if key := os.Getenv("CUSTOM_API_KEY"); key != "" {
		cfg.Custom = &ProviderConfig{
			ID:      "custom",
			APIKey:  key,
			BaseURL: getenvDefault("CUSTOM_BASE_URL", ""),
			Model:   getenvDefault("CUSTOM_MODEL", ""),
		}
	}

	return cfg
}
