package response

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
)

// ErrEmptyResponse is returned by Reply when the model produced no choices.
var ErrEmptyResponse = errors.New("model returned empty response")

// ToolsResponse represents the response from a tools (function calling) protocol request.
// Contains function calls requested by the model along with metadata and token usage.
type ToolsResponse struct {
	ID      string      `json:"id,omitempty"`
	Object  string      `json:"object,omitempty"`
	Created int64       `json:"created,omitempty"`
	Model   string      `json:"model"`
	Choices []Choice    `json:"choices"`
	Usage   *TokenUsage `json:"usage,omitempty"`
}

// Choice is a single completion candidate.
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ChoiceMessage is the assistant message carried by a Choice.
type ChoiceMessage struct {
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	ToolCalls []protocol.ToolCall `json:"tool_calls,omitempty"`
}

// TokenUsage reports token accounting for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens"`
}

// ParseTools parses a tools response from JSON bytes.
// Returns the parsed ToolsResponse or an error if parsing fails.
func ParseTools(body []byte) (*ToolsResponse, error) {
	var response ToolsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse tools response: %w", err)
	}
	return &response, nil
}

// NewAnswer builds a single-choice ToolsResponse carrying plain content.
func NewAnswer(model, content string) *ToolsResponse {
	return &ToolsResponse{
		Model: model,
		Choices: []Choice{{
			Message:      ChoiceMessage{Role: string(protocol.RoleAssistant), Content: content},
			FinishReason: "stop",
		}},
	}
}

// NewToolCalls builds a single-choice ToolsResponse requesting the given calls.
func NewToolCalls(model string, calls ...protocol.ToolCall) *ToolsResponse {
	return &ToolsResponse{
		Model: model,
		Choices: []Choice{{
			Message:      ChoiceMessage{Role: string(protocol.RoleAssistant), ToolCalls: calls},
			FinishReason: "tool_calls",
		}},
	}
}

// Reply is the outcome of one model turn: either an Answer or ToolCalls.
type Reply interface {
	reply()
}

// Answer is a final plain-text response.
type Answer struct {
	Content string
}

// ToolCalls is a request to execute one or more tools, in order.
type ToolCalls struct {
	Content string
	Calls   []protocol.ToolCall
}

func (Answer) reply()    {}
func (ToolCalls) reply() {}

// Reply classifies the first choice of the response.
func (r *ToolsResponse) Reply() (Reply, error) {
	if r == nil || len(r.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	msg := r.Choices[0].Message
	if len(msg.ToolCalls) == 0 {
		return Answer{Content: msg.Content}, nil
	}
	return ToolCalls{Content: msg.Content, Calls: msg.ToolCalls}, nil
}
