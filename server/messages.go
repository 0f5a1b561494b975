package server

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/kernel"
)

// Request and response field names.
const (
	FieldSessionID = "session_id"
	FieldText      = "text"
	FieldCallID    = "call_id"
	FieldDecision  = "decision"
	FieldMessages  = "messages"
)

// Reply is the client view of a kernel.Result.
type Reply struct {
	SessionID  string
	State      string
	Response   string
	Prompt     string
	Suspension *Suspension
	Iterations int
	ToolCalls  []CallRecord
}

// Suspended reports whether the run ended awaiting a decision.
func (r *Reply) Suspended() bool {
	return r.State == kernel.StateSuspended.String()
}

// Suspension is the client view of a pending suspension.
type Suspension struct {
	ID        string
	CallID    string
	Prompt    string
	ExpiresAt time.Time
}

// CallRecord is the client view of a kernel.ToolCallRecord.
type CallRecord struct {
	protocol.ToolCall
	Result    string
	IsError   bool
	Suspended bool
}

func encodeResult(r *kernel.Result) (*structpb.Struct, error) {
	calls := make([]any, len(r.ToolCalls))
	for i, tc := range r.ToolCalls {
		calls[i] = map[string]any{
			"id":        tc.ID,
			"name":      tc.Name,
			"arguments": tc.Arguments,
			"result":    tc.Result,
			"is_error":  tc.IsError,
			"suspended": tc.Suspended,
		}
	}

	fields := map[string]any{
		FieldSessionID: r.SessionID,
		"state":        r.State.String(),
		"response":     r.Response,
		"prompt":       r.Prompt,
		"iterations":   r.Iterations,
		"tool_calls":   calls,
	}

	if s := r.Suspension; s != nil {
		suspension := map[string]any{
			"id":      s.ID,
			"call_id": s.CallID,
			"prompt":  s.Prompt,
		}
		if !s.ExpiresAt.IsZero() {
			suspension["expires_at"] = s.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}
		fields["suspension"] = suspension
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return msg, nil
}

func decodeReply(msg *structpb.Struct) (*Reply, error) {
	fields := msg.GetFields()

	reply := &Reply{
		SessionID:  fields[FieldSessionID].GetStringValue(),
		State:      fields["state"].GetStringValue(),
		Response:   fields["response"].GetStringValue(),
		Prompt:     fields["prompt"].GetStringValue(),
		Iterations: int(fields["iterations"].GetNumberValue()),
	}

	for _, v := range fields["tool_calls"].GetListValue().GetValues() {
		call := v.GetStructValue().GetFields()
		reply.ToolCalls = append(reply.ToolCalls, CallRecord{
			ToolCall: protocol.NewToolCall(
				call["id"].GetStringValue(),
				call["name"].GetStringValue(),
				call["arguments"].GetStringValue(),
			),
			Result:    call["result"].GetStringValue(),
			IsError:   call["is_error"].GetBoolValue(),
			Suspended: call["suspended"].GetBoolValue(),
		})
	}

	if s := fields["suspension"].GetStructValue(); s != nil {
		sf := s.GetFields()
		reply.Suspension = &Suspension{
			ID:     sf["id"].GetStringValue(),
			CallID: sf["call_id"].GetStringValue(),
			Prompt: sf["prompt"].GetStringValue(),
		}
		if raw := sf["expires_at"].GetStringValue(); raw != "" {
			t, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return nil, fmt.Errorf("decode suspension expiry: %w", err)
			}
			reply.Suspension.ExpiresAt = t
		}
	}

	return reply, nil
}

func encodeHistory(sessionID string, messages []protocol.Message) (*structpb.Struct, error) {
	list := make([]any, len(messages))
	for i, m := range messages {
		entry := map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		}
		if m.ToolCallID != "" {
			entry["tool_call_id"] = m.ToolCallID
		}
		if len(m.ToolCalls) > 0 {
			calls := make([]any, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				calls[j] = map[string]any{
					"id":        tc.ID,
					"name":      tc.Name,
					"arguments": tc.Arguments,
				}
			}
			entry["tool_calls"] = calls
		}
		list[i] = entry
	}

	msg, err := structpb.NewStruct(map[string]any{
		FieldSessionID: sessionID,
		FieldMessages:  list,
	})
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return msg, nil
}

func decodeHistory(msg *structpb.Struct) []protocol.Message {
	values := msg.GetFields()[FieldMessages].GetListValue().GetValues()
	messages := make([]protocol.Message, 0, len(values))

	for _, v := range values {
		f := v.GetStructValue().GetFields()
		m := protocol.Message{
			Role:       protocol.Role(f["role"].GetStringValue()),
			Content:    f["content"].GetStringValue(),
			ToolCallID: f["tool_call_id"].GetStringValue(),
		}
		for _, c := range f["tool_calls"].GetListValue().GetValues() {
			cf := c.GetStructValue().GetFields()
			m.ToolCalls = append(m.ToolCalls, protocol.NewToolCall(
				cf["id"].GetStringValue(),
				cf["name"].GetStringValue(),
				cf["arguments"].GetStringValue(),
			))
		}
		messages = append(messages, m)
	}
	return messages
}

// stringField returns the named string field, failing with ErrMissingField
// when required and absent.
func stringField(msg *structpb.Struct, name string, required bool) (string, error) {
	v := msg.GetFields()[name].GetStringValue()
	if v == "" && required {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return v, nil
}
