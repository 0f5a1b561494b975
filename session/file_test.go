package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tailored-agentic-units/tradedesk/core/protocol"
	"github.com/tailored-agentic-units/tradedesk/memory"
	"github.com/tailored-agentic-units/tradedesk/session"
)

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := session.NewFileStore(memory.NewFileStore(dir))
	require.NoError(t, first.Commit(ctx, "thread/2", session.Commit{
		Messages: []protocol.Message{
			protocol.NewMessage(protocol.RoleUser, "buy 20 AAPL stock at current price."),
			{Role: protocol.RoleAssistant, ToolCalls: []protocol.ToolCall{
				protocol.NewToolCall("call_9", "buy_stocks", `{"symbol":"AAPL","quantity":20,"total_price":3804}`),
			}},
		},
		Suspension: &session.Suspension{
			ID:     "susp_1",
			CallID: "call_9",
			Call:   protocol.NewToolCall("call_9", "buy_stocks", `{"symbol":"AAPL","quantity":20,"total_price":3804}`),
			Prompt: "Approve buying 20 AAPL stocks for $3804.00?",
		},
	}))

	reopened := session.NewFileStore(memory.NewFileStore(dir))
	snap, err := reopened.Load(ctx, "thread/2")
	require.NoError(t, err)

	assert.Equal(t, "thread/2", snap.ID)
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "buy_stocks", snap.Messages[1].ToolCalls[0].Name)
	require.NotNil(t, snap.Suspension)
	assert.Equal(t, "call_9", snap.Suspension.CallID)
	assert.Equal(t, "Approve buying 20 AAPL stocks for $3804.00?", snap.Suspension.Prompt)

	ids, err := reopened.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"thread/2"}, ids)
}

func TestFileStore_ConflictAndDelete(t *testing.T) {
	ctx := context.Background()
	s := session.NewFileStore(memory.NewFileStore(t.TempDir()))

	require.NoError(t, s.Commit(ctx, "s1", session.Commit{Messages: protocol.InitMessages(protocol.RoleUser, "hi")}))

	err := s.Commit(ctx, "s1", session.Commit{Messages: protocol.InitMessages(protocol.RoleUser, "stale")})
	assert.ErrorIs(t, err, session.ErrConflict)

	require.NoError(t, s.Delete(ctx, "s1"))
	snap, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, snap.Len())
}

func TestFileStore_IgnoresForeignKeys(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewFileStore(t.TempDir())
	require.NoError(t, mem.Save(ctx, memory.Entry{Key: "memory/policy.md", Value: []byte("no leverage")}))

	s := session.NewFileStore(mem)
	require.NoError(t, s.Commit(ctx, "s1", session.Commit{Messages: protocol.InitMessages(protocol.RoleUser, "hi")}))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}
