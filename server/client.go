package server

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
)

// Client calls a remote AgentService.
type Client struct {
	sendMessage *connect.Client[structpb.Struct, structpb.Struct]
	resume      *connect.Client[structpb.Struct, structpb.Struct]
	history     *connect.Client[structpb.Struct, structpb.Struct]
}

// NewClient creates a Client for the service at baseURL
// (for example http://localhost:8080). Errors returned by its methods are
// *connect.Error values; use connect.CodeOf to inspect them.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		sendMessage: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+SendMessageProcedure, opts...),
		resume:      connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+ResumeProcedure, opts...),
		history:     connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+HistoryProcedure, opts...),
	}
}

// SendMessage sends text to the session.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string) (*Reply, error) {
	return c.call(ctx, c.sendMessage, map[string]any{
		FieldSessionID: sessionID,
		FieldText:      text,
	})
}

// Resume delivers decision to the session's pending suspension.
func (c *Client) Resume(ctx context.Context, sessionID, decision string) (*Reply, error) {
	return c.ResumeCall(ctx, sessionID, "", decision)
}

// ResumeCall delivers decision to the suspended call callID.
func (c *Client) ResumeCall(ctx context.Context, sessionID, callID, decision string) (*Reply, error) {
	fields := map[string]any{
		FieldSessionID: sessionID,
		FieldDecision:  decision,
	}
	if callID != "" {
		fields[FieldCallID] = callID
	}
	return c.call(ctx, c.resume, fields)
}

// History returns the committed messages of the session.
func (c *Client) History(ctx context.Context, sessionID string) ([]protocol.Message, error) {
	msg, err := structpb.NewStruct(map[string]any{FieldSessionID: sessionID})
	if err != nil {
		return nil, err
	}

	res, err := c.history.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return decodeHistory(res.Msg), nil
}

func (c *Client) call(ctx context.Context, client *connect.Client[structpb.Struct, structpb.Struct], fields map[string]any) (*Reply, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	res, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return decodeReply(res.Msg)
}
