package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/core/response"
	"google.golang.org/genai"
)

// generator is the subset of *genai.Models used by Gemini.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini talks to the Gemini API through the genai SDK and translates its
// function-calling exchange to and from the chat completions shape.
type Gemini struct {
	models generator
}

// NewGemini creates a Gemini provider. An empty baseURL uses the SDK default.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", ErrRequestFailed, err)
	}
	return &Gemini{models: client.Models}, nil
}

func (p *Gemini) Name() string { return "gemini" }

func (p *Gemini) Tools(ctx context.Context, data *ToolsData) (*response.ToolsResponse, error) {
	contents, system, err := toContents(data.Messages)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", ErrRequestFailed, err)
	}

	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if len(data.Tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: toDeclarations(data.Tools)}}
	}
	if t, ok := data.Options["temperature"].(float64); ok {
		temp := float32(t)
		cfg.Temperature = &temp
	}

	resp, err := p.models.GenerateContent(ctx, data.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", ErrRequestFailed, err)
	}
	return fromGenerateResponse(data.Model, resp)
}

func toDeclarations(tools []protocol.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if t.Parameters != nil {
			decls[i].ParametersJsonSchema = t.Parameters
		}
	}
	return decls
}

// toContents maps conversation history to Gemini contents. System messages
// become the system instruction; consecutive tool results are grouped into a
// single user turn of function responses, as Gemini expects.
func toContents(messages []protocol.Message) ([]*genai.Content, *genai.Content, error) {
	var (
		contents []*genai.Content
		system   []*genai.Part
		names    = make(map[string]string)
	)

	for _, msg := range messages {
		switch msg.Role {
		case protocol.RoleSystem:
			system = append(system, &genai.Part{Text: msg.Content})

		case protocol.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})

		case protocol.RoleAssistant:
			c := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				args := map[string]any{}
				if call.Arguments != "" {
					if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
						return nil, nil, fmt.Errorf("tool call %s arguments: %w", call.ID, err)
					}
				}
				names[call.ID] = call.Name
				c.Parts = append(c.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args},
				})
			}
			contents = append(contents, c)

		case protocol.RoleTool:
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     names[msg.ToolCallID],
					Response: map[string]any{"output": msg.Content},
				},
			}
			if n := len(contents); n > 0 && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})

		default:
			return nil, nil, fmt.Errorf("unsupported role %q", msg.Role)
		}
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = &genai.Content{Parts: system}
	}
	return contents, instruction, nil
}

func isFunctionResponses(c *genai.Content) bool {
	return c.Role == genai.RoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

func fromGenerateResponse(model string, resp *genai.GenerateContentResponse) (*response.ToolsResponse, error) {
	out := &response.ToolsResponse{
		ID:     resp.ResponseID,
		Object: "chat.completion",
		Model:  model,
	}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}

	candidate := resp.Candidates[0]
	msg := response.ChoiceMessage{Role: string(protocol.RoleAssistant)}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("%w: gemini: encode arguments of %s: %v", ErrRequestFailed, part.FunctionCall.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, protocol.NewToolCall(part.FunctionCall.ID, part.FunctionCall.Name, string(args)))
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	msg.Content = text.String()

	finish := "stop"
	if len(msg.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	out.Choices = []response.Choice{{Message: msg, FinishReason: finish}}

	if u := resp.UsageMetadata; u != nil {
		out.Usage = &response.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}
