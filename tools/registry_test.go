package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/tools"
)

func testTool(name string) protocol.Tool {
	return protocol.Tool{
		Name:        name,
		Description: "test tool: " + name,
		Parameters: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"input": {Type: "string"},
				"count": {Type: "integer"},
			},
			Required: []string{"input"},
		},
	}
}

func echoHandler(_ context.Context, args json.RawMessage) (tools.Result, error) {
	return tools.Result{Content: string(args)}, nil
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		tool    protocol.Tool
		wantErr error
	}{
		{
			name: "valid tool",
			tool: testTool("register_valid"),
		},
		{
			name: "no schema",
			tool: protocol.Tool{Name: "register_no_schema"},
		},
		{
			name:    "empty name",
			tool:    protocol.Tool{Name: ""},
			wantErr: tools.ErrEmptyName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := tools.NewRegistry()
			err := reg.Register(tt.tool, echoHandler)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Register() unexpected error: %v", err)
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	reg := tools.NewRegistry()
	tool := testTool("register_duplicate")

	if err := reg.Register(tool, echoHandler); err != nil {
		t.Fatalf("first Register() failed: %v", err)
	}

	err := reg.Register(tool, echoHandler)
	if !errors.Is(err, tools.ErrAlreadyExists) {
		t.Errorf("second Register() error = %v, want %v", err, tools.ErrAlreadyExists)
	}
}

func TestRegistry_Isolation(t *testing.T) {
	a := tools.NewRegistry()
	b := tools.NewRegistry()

	if err := a.Register(testTool("isolated"), echoHandler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if _, err := b.Lookup("isolated"); !errors.Is(err, tools.ErrUnknownTool) {
		t.Errorf("Lookup() on second registry error = %v, want %v", err, tools.ErrUnknownTool)
	}
}

func TestReplace(t *testing.T) {
	reg := tools.NewRegistry()
	tool := testTool("replace_existing")

	if err := reg.Register(tool, echoHandler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	replacementHandler := func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "replaced"}, nil
	}

	if err := reg.Replace(tool, replacementHandler); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}

	result, err := reg.Execute(context.Background(), "replace_existing", json.RawMessage(`{"input":"x"}`))
	if err != nil {
		t.Fatalf("Execute() after Replace() failed: %v", err)
	}
	if result.Content != "replaced" {
		t.Errorf("Execute() content = %q, want %q", result.Content, "replaced")
	}
}

func TestReplace_NotFound(t *testing.T) {
	reg := tools.NewRegistry()

	err := reg.Replace(testTool("replace_nonexistent"), echoHandler)
	if !errors.Is(err, tools.ErrUnknownTool) {
		t.Errorf("Replace() error = %v, want %v", err, tools.ErrUnknownTool)
	}
}

func TestReplace_EmptyName(t *testing.T) {
	reg := tools.NewRegistry()

	err := reg.Replace(protocol.Tool{Name: ""}, echoHandler)
	if !errors.Is(err, tools.ErrEmptyName) {
		t.Errorf("Replace() error = %v, want %v", err, tools.ErrEmptyName)
	}
}

func TestLookup(t *testing.T) {
	reg := tools.NewRegistry()
	if err := reg.Register(testTool("lookup_existing"), echoHandler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	tool, err := reg.Lookup("lookup_existing")
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if tool.Description != "test tool: lookup_existing" {
		t.Errorf("Lookup() description = %q", tool.Description)
	}
}

func TestLookup_Unknown(t *testing.T) {
	reg := tools.NewRegistry()

	_, err := reg.Lookup("lookup_missing")
	if !errors.Is(err, tools.ErrUnknownTool) {
		t.Errorf("Lookup() error = %v, want %v", err, tools.ErrUnknownTool)
	}
}

func TestList_Sorted(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(testTool("list_b"), echoHandler)
	reg.Register(testTool("list_a"), echoHandler)
	reg.Register(testTool("list_c"), echoHandler)

	list := reg.List()
	if len(list) != 3 {
		t.Fatalf("List() returned %d tools, want 3", len(list))
	}

	want := []string{"list_a", "list_b", "list_c"}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("List()[%d] = %q, want %q", i, list[i].Name, name)
		}
	}
}

func TestExecute(t *testing.T) {
	reg := tools.NewRegistry()
	handler := func(_ context.Context, args json.RawMessage) (tools.Result, error) {
		var params struct {
			Input string `json:"input"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return tools.Result{}, err
		}
		return tools.Result{Content: "echo: " + params.Input}, nil
	}

	if err := reg.Register(testTool("execute_valid"), handler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	result, err := reg.Execute(
		context.Background(),
		"execute_valid",
		json.RawMessage(`{"input":"hello"}`),
	)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Content != "echo: hello" {
		t.Errorf("Execute() content = %q, want %q", result.Content, "echo: hello")
	}
	if result.IsError {
		t.Error("Execute() IsError = true, want false")
	}
}

func TestExecute_Unknown(t *testing.T) {
	reg := tools.NewRegistry()

	_, err := reg.Execute(context.Background(), "execute_nonexistent", nil)
	if !errors.Is(err, tools.ErrUnknownTool) {
		t.Errorf("Execute() error = %v, want %v", err, tools.ErrUnknownTool)
	}
}

func TestExecute_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{name: "malformed json", args: `{"input":`},
		{name: "not an object", args: `["hello"]`},
		{name: "missing required", args: `{"count":2}`},
		{name: "wrong type", args: `{"input":42}`},
		{name: "fractional integer", args: `{"input":"x","count":2.5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := tools.NewRegistry()
			called := false
			handler := func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
				called = true
				return tools.Result{}, nil
			}
			if err := reg.Register(testTool("execute_invalid"), handler); err != nil {
				t.Fatalf("Register() failed: %v", err)
			}

			_, err := reg.Execute(context.Background(), "execute_invalid", json.RawMessage(tt.args))
			if !errors.Is(err, tools.ErrInvalidArguments) {
				t.Errorf("Execute() error = %v, want %v", err, tools.ErrInvalidArguments)
			}
			if called {
				t.Error("handler invoked despite invalid arguments")
			}
		})
	}
}

func TestExecute_EmptyArgsWithoutSchema(t *testing.T) {
	reg := tools.NewRegistry()
	if err := reg.Register(protocol.Tool{Name: "execute_empty"}, echoHandler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	result, err := reg.Execute(context.Background(), "execute_empty", nil)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Content != "{}" {
		t.Errorf("Execute() content = %q, want %q", result.Content, "{}")
	}
}

func TestExecute_HandlerError(t *testing.T) {
	reg := tools.NewRegistry()
	handlerErr := errors.New("handler failed")
	handler := func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{}, handlerErr
	}

	if err := reg.Register(testTool("execute_error"), handler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	_, err := reg.Execute(context.Background(), "execute_error", json.RawMessage(`{"input":"x"}`))
	if err == nil {
		t.Fatal("Execute() expected error, got nil")
	}
	if !errors.Is(err, handlerErr) {
		t.Errorf("Execute() error chain does not contain handler error: %v", err)
	}
}

func TestExecute_RespectsContext(t *testing.T) {
	reg := tools.NewRegistry()
	handler := func(ctx context.Context, _ json.RawMessage) (tools.Result, error) {
		if err := ctx.Err(); err != nil {
			return tools.Result{}, err
		}
		return tools.Result{Content: "ok"}, nil
	}

	if err := reg.Register(testTool("execute_ctx"), handler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := reg.Execute(ctx, "execute_ctx", json.RawMessage(`{"input":"x"}`))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}
