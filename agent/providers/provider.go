// Package providers adapts model backends to the kernel's tool-calling
// exchange: conversation history and tool definitions in, one
// OpenAI-compatible chat completion out.
package providers

import (
	"context"
	"errors"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/core/response"
)

// ErrRequestFailed reports a provider call that did not yield a response.
var ErrRequestFailed = errors.New("provider request failed")

// ToolsData is one tool-calling request: the conversation so far, the tools
// the model may call, and provider options such as temperature.
type ToolsData struct {
	Model    string
	Messages []protocol.Message
	Tools    []protocol.Tool
	Options  map[string]any
}

// Provider executes tools requests against one model backend.
type Provider interface {
	// Name returns the provider identifier.
	Name() string
	// Tools sends a tool-calling request and returns the model's reply.
	Tools(ctx context.Context, data *ToolsData) (*response.ToolsResponse, error)
}
