package agent

import (
	"fmt"
	"time"
)

// Provider names accepted by New.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type providerDefaults struct {
	model     string
	baseURL   string
	apiKeyEnv string
}

var defaults = map[string]providerDefaults{
	ProviderGroq:   {model: "llama-3.3-70b-versatile", baseURL: "https://api.groq.com/openai/v1", apiKeyEnv: "GROQ_API_KEY"},
	ProviderOpenAI: {model: "gpt-4o-mini", baseURL: "https://api.openai.com/v1", apiKeyEnv: "OPENAI_API_KEY"},
	ProviderGemini: {model: "gemini-2.5-flash", apiKeyEnv: "GEMINI_API_KEY"},
}

// Config selects and parameterizes the model provider.
//
// Model, BaseURL and APIKeyEnv fall back to the provider's defaults when
// empty. The API key itself is never stored in configuration; it is read
// from the environment variable named by APIKeyEnv.
type Config struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKeyEnv   string  `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Timeout     string  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DefaultConfig returns Groq with llama-3.3-70b-versatile at temperature 0.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderGroq,
		Timeout:  "60s",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Provider != "" {
		c.Provider = source.Provider
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKeyEnv != "" {
		c.APIKeyEnv = source.APIKeyEnv
	}
	if source.Temperature != 0 {
		c.Temperature = source.Temperature
	}
	if source.Timeout != "" {
		c.Timeout = source.Timeout
	}
}

// resolved returns c with provider defaults filled in.
func (c *Config) resolved() (Config, error) {
	d, ok := defaults[c.Provider]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}

	r := *c
	if r.Model == "" {
		r.Model = d.model
	}
	if r.BaseURL == "" {
		r.BaseURL = d.baseURL
	}
	if r.APIKeyEnv == "" {
		r.APIKeyEnv = d.apiKeyEnv
	}
	return r, nil
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, c.Timeout)
	}
	return d, nil
}
