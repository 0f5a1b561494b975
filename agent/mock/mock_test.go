package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/tradedesk/agent/mock"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/core/response"
)

func TestMockAgent_Script(t *testing.T) {
	failure := errors.New("unavailable")
	m := mock.NewMockAgent(
		mock.WithID("scripted"),
		mock.WithResponses(response.NewAnswer("mock", "first")),
		mock.WithSteps(mock.Step{Err: failure}),
	)

	if m.ID() != "scripted" {
		t.Errorf("got ID %q, want %q", m.ID(), "scripted")
	}

	resp, err := m.Tools(context.Background(), protocol.InitMessages(protocol.RoleUser, "hi"), nil)
	if err != nil || resp.Choices[0].Message.Content != "first" {
		t.Fatalf("step 1: got %v, %v", resp, err)
	}

	if _, err := m.Tools(context.Background(), nil, nil); !errors.Is(err, failure) {
		t.Fatalf("step 2: got %v, want %v", err, failure)
	}

	if _, err := m.Tools(context.Background(), nil, nil); !errors.Is(err, mock.ErrExhausted) {
		t.Fatalf("step 3: got %v, want ErrExhausted", err)
	}

	reqs := m.Requests()
	if len(reqs) != 3 {
		t.Fatalf("got %d requests, want 3", len(reqs))
	}
	if reqs[0].Messages[0].Content != "hi" {
		t.Errorf("request not recorded: %+v", reqs[0])
	}
}

func TestMockAgent_Push(t *testing.T) {
	m := mock.NewMockAgent()
	m.Push(mock.Step{Response: response.NewAnswer("mock", "later")})

	if m.Remaining() != 1 {
		t.Fatalf("got %d remaining, want 1", m.Remaining())
	}
	if _, err := m.Tools(context.Background(), nil, nil); err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	if m.Remaining() != 0 {
		t.Errorf("got %d remaining, want 0", m.Remaining())
	}
}

func TestMockAgent_Func(t *testing.T) {
	m := mock.NewMockAgent(mock.WithFunc(func(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
		return response.NewAnswer("mock", messages[len(messages)-1].Content), nil
	}))

	resp, err := m.Tools(context.Background(), protocol.InitMessages(protocol.RoleUser, "echo"), nil)
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	if resp.Choices[0].Message.Content != "echo" {
		t.Errorf("got %q, want %q", resp.Choices[0].Message.Content, "echo")
	}
}
