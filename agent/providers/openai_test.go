package providers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tailored-agentic-units/tradedesk/agent/providers"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
)

func priceTool() protocol.Tool {
	return protocol.Tool{
		Name:        "get_stock_price",
		Description: "Return the current price of a stock given the stock symbol",
		Parameters: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"symbol": {Type: "string"}},
			Required:   []string{"symbol"},
		},
	}
}

func TestNewOpenAI(t *testing.T) {
	provider := providers.NewOpenAI("groq", "https://api.groq.com/openai/v1/", "key", nil)

	if provider.Name() != "groq" {
		t.Errorf("got name %q, want %q", provider.Name(), "groq")
	}
	if provider.BaseURL() != "https://api.groq.com/openai/v1" {
		t.Errorf("got baseURL %q, want trailing slash trimmed", provider.BaseURL())
	}
}

func TestOpenAI_Marshal(t *testing.T) {
	provider := providers.NewOpenAI("test", "https://api.test.com", "", nil)

	data := &providers.ToolsData{
		Model:    "llama-3.3-70b-versatile",
		Messages: protocol.InitMessages(protocol.RoleUser, "what is the current price of 10 AAPL?"),
		Tools:    []protocol.Tool{priceTool()},
		Options:  map[string]any{"temperature": 0.0, "model": "ignored"},
	}

	body, err := provider.Marshal(data)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}

	if result["model"] != "llama-3.3-70b-versatile" {
		t.Errorf("got model %v, want llama-3.3-70b-versatile", result["model"])
	}
	if result["temperature"] != 0.0 {
		t.Errorf("got temperature %v, want 0", result["temperature"])
	}

	tools, ok := result["tools"].([]any)
	if !ok || len(tools) != 1 {
		t.Fatalf("got tools %v, want one entry", result["tools"])
	}
	tool := tools[0].(map[string]any)
	if tool["type"] != "function" {
		t.Errorf("got tool type %v, want function", tool["type"])
	}
	fn := tool["function"].(map[string]any)
	if fn["name"] != "get_stock_price" {
		t.Errorf("got function name %v, want get_stock_price", fn["name"])
	}
	if _, ok := fn["parameters"].(map[string]any); !ok {
		t.Errorf("got parameters %v, want schema object", fn["parameters"])
	}
}

func TestOpenAI_Marshal_NoTools(t *testing.T) {
	provider := providers.NewOpenAI("test", "https://api.test.com", "", nil)

	body, err := provider.Marshal(&providers.ToolsData{Model: "m", Messages: protocol.InitMessages(protocol.RoleUser, "hi")})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to unmarshal result: %v", err)
	}
	if _, exists := result["tools"]; exists {
		t.Error("tools should be omitted when none are given")
	}
}

func TestOpenAI_Tools(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "llama-3.3-70b-versatile",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_stock_price", "arguments": "{\"symbol\":\"AAPL\"}"}}]
				},
				"finish_reason": "tool_calls"
			}]
		}`)
	}))
	defer server.Close()

	provider := providers.NewOpenAI("groq", server.URL, "secret", server.Client())

	messages := []protocol.Message{
		protocol.NewMessage(protocol.RoleUser, "price?"),
		{Role: protocol.RoleAssistant, ToolCalls: []protocol.ToolCall{protocol.NewToolCall("call_0", "get_stock_price", `{"symbol":"MSFT"}`)}},
		protocol.NewToolMessage("call_0", "200.34"),
	}

	resp, err := provider.Tools(context.Background(), &providers.ToolsData{Model: "llama-3.3-70b-versatile", Messages: messages})
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("got Authorization %q, want %q", gotAuth, "Bearer secret")
	}
	if gotPath != "/chat/completions" {
		t.Errorf("got path %q, want /chat/completions", gotPath)
	}

	sent := gotBody["messages"].([]any)
	if len(sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(sent))
	}
	assistant := sent[1].(map[string]any)
	call := assistant["tool_calls"].([]any)[0].(map[string]any)
	if call["function"].(map[string]any)["name"] != "get_stock_price" {
		t.Errorf("tool call not sent in nested format: %v", call)
	}
	if sent[2].(map[string]any)["tool_call_id"] != "call_0" {
		t.Errorf("tool result missing tool_call_id: %v", sent[2])
	}

	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) != 1 || calls[0].Name != "get_stock_price" || calls[0].Arguments != `{"symbol":"AAPL"}` {
		t.Errorf("unexpected tool calls: %+v", calls)
	}
}

func TestOpenAI_Tools_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := providers.NewOpenAI("groq", server.URL, "", server.Client())

	_, err := provider.Tools(context.Background(), &providers.ToolsData{Model: "m"})
	if !errors.Is(err, providers.ErrRequestFailed) {
		t.Fatalf("got error %v, want ErrRequestFailed", err)
	}
}

func TestOpenAI_Tools_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer server.Close()

	provider := providers.NewOpenAI("groq", server.URL, "", server.Client())

	_, err := provider.Tools(context.Background(), &providers.ToolsData{Model: "m"})
	if !errors.Is(err, providers.ErrRequestFailed) {
		t.Fatalf("got error %v, want ErrRequestFailed", err)
	}
}

func TestOpenAI_Tools_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	provider := providers.NewOpenAI("groq", url, "", nil)

	_, err := provider.Tools(context.Background(), &providers.ToolsData{Model: "m"})
	if !errors.Is(err, providers.ErrRequestFailed) {
		t.Fatalf("got error %v, want ErrRequestFailed", err)
	}
}
