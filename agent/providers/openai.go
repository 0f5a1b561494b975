package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/core/response"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint, such as
// Groq or OpenAI itself.
type OpenAI struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenAI creates an OpenAI-compatible provider. baseURL is the API root
// without the /chat/completions suffix. A nil client uses http.DefaultClient.
func NewOpenAI(name, baseURL, apiKey string, client *http.Client) *OpenAI {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

func (p *OpenAI) Name() string { return p.name }

// BaseURL returns the API root requests are sent to.
func (p *OpenAI) BaseURL() string { return p.baseURL }

type wireTool struct {
	Type     string        `json:"type"`
	Function protocol.Tool `json:"function"`
}

// Marshal encodes data as a chat completions request body. Options are
// merged into the top-level object.
func (p *OpenAI) Marshal(data *ToolsData) ([]byte, error) {
	body := make(map[string]any, len(data.Options)+3)
	maps.Copy(body, data.Options)

	body["model"] = data.Model
	body["messages"] = data.Messages

	if len(data.Tools) > 0 {
		tools := make([]wireTool, len(data.Tools))
		for i, t := range data.Tools {
			tools[i] = wireTool{Type: "function", Function: t}
		}
		body["tools"] = tools
	}

	return json.Marshal(body)
}

func (p *OpenAI) Tools(ctx context.Context, data *ToolsData) (*response.ToolsResponse, error) {
	body, err := p.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRequestFailed, p.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrRequestFailed, p.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrRequestFailed, p.name, resp.StatusCode, bytes.TrimSpace(payload))
	}

	result, err := response.ParseTools(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: decode response: %v", ErrRequestFailed, p.name, err)
	}
	return result, nil
}
