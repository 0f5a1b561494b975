// Package agent provides the model-facing side of the kernel: an Agent sends
// conversation history and tool definitions to a provider and returns the
// model's next turn.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/tailored-agentic-units/tradedesk/agent/providers"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/core/response"
)

// Agent requests the next model turn for a conversation.
type Agent interface {
	// Tools sends messages and the available tools to the model.
	Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error)
}

type agent struct {
	provider providers.Provider
	model    string
	options  map[string]any
}

// New creates an Agent for the configured provider. The provider's API key
// is read from the environment variable named by cfg.APIKeyEnv.
func New(ctx context.Context, cfg *Config) (Agent, error) {
	r, err := cfg.resolved()
	if err != nil {
		return nil, err
	}

	timeout, err := r.timeout()
	if err != nil {
		return nil, err
	}

	apiKey := os.Getenv(r.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, r.APIKeyEnv)
	}

	var p providers.Provider
	switch r.Provider {
	case ProviderGemini:
		p, err = providers.NewGemini(ctx, apiKey, r.BaseURL)
		if err != nil {
			return nil, err
		}
	default:
		p = providers.NewOpenAI(r.Provider, r.BaseURL, apiKey, &http.Client{Timeout: timeout})
	}

	return NewWithProvider(p, r.Model, r.Temperature), nil
}

// NewWithProvider creates an Agent over an already constructed provider.
func NewWithProvider(p providers.Provider, model string, temperature float64) Agent {
	return &agent{
		provider: p,
		model:    model,
		options:  map[string]any{"temperature": temperature},
	}
}

func (a *agent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	return a.provider.Tools(ctx, &providers.ToolsData{
		Model:    a.model,
		Messages: messages,
		Tools:    tools,
		Options:  a.options,
	})
}
