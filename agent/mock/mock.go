// Package mock provides a scripted Agent for tests and offline runs.
package mock

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/core/response"
)

// ErrExhausted is returned once every scripted step has been consumed.
var ErrExhausted = errors.New("mock agent: no more responses configured")

// Step is one scripted model turn.
type Step struct {
	Response *response.ToolsResponse
	Err      error
}

// Request records the arguments of one Tools call.
type Request struct {
	Messages []protocol.Message
	Tools    []protocol.Tool
}

// ToolsFunc computes a response from the request instead of a fixed script.
type ToolsFunc func(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error)

// MockAgent replays scripted steps in order and records every request.
type MockAgent struct {
	id       string
	fn       ToolsFunc
	steps    []Step
	requests []Request
	mu       sync.Mutex
}

// Option configures a MockAgent.
type Option func(*MockAgent)

// WithID sets the agent identifier.
func WithID(id string) Option {
	return func(m *MockAgent) { m.id = id }
}

// WithResponses appends successful steps.
func WithResponses(responses ...*response.ToolsResponse) Option {
	return func(m *MockAgent) {
		for _, r := range responses {
			m.steps = append(m.steps, Step{Response: r})
		}
	}
}

// WithSteps appends steps.
func WithSteps(steps ...Step) Option {
	return func(m *MockAgent) { m.steps = append(m.steps, steps...) }
}

// WithFunc answers every request with fn. Scripted steps are ignored.
func WithFunc(fn ToolsFunc) Option {
	return func(m *MockAgent) { m.fn = fn }
}

// NewMockAgent creates a MockAgent.
func NewMockAgent(opts ...Option) *MockAgent {
	m := &MockAgent{id: "mock-agent"}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MockAgent) ID() string { return m.id }

// Push appends steps to the script.
func (m *MockAgent) Push(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

func (m *MockAgent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, Request{
		Messages: slices.Clone(messages),
		Tools:    slices.Clone(tools),
	})
	fn := m.fn
	if fn == nil && len(m.steps) == 0 {
		m.mu.Unlock()
		return nil, ErrExhausted
	}
	var step Step
	if fn == nil {
		step = m.steps[0]
		m.steps = m.steps[1:]
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages, tools)
	}
	return step.Response, step.Err
}

// Requests returns the recorded requests.
func (m *MockAgent) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// Remaining returns the number of unconsumed steps.
func (m *MockAgent) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}
