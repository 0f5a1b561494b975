// Package session persists conversation history and the pending suspension
// of each conversation, keyed by a caller-supplied session ID.
package session

import (
	"context"
	"slices"
	"time"

	"github.com/tailored-agentic-units/tradedesk/core/protocol"
)

// Suspension records a tool call paused pending an external decision.
// Call is re-executed with the decision bound when the session resumes;
// Remaining holds calls from the same model turn that have not started yet.
type Suspension struct {
	ID        string              `json:"id" bson:"id"`
	CallID    string              `json:"call_id" bson:"call_id"`
	Call      protocol.ToolCall   `json:"call" bson:"call"`
	Remaining []protocol.ToolCall `json:"remaining,omitempty" bson:"remaining,omitempty"`
	Prompt    string              `json:"prompt" bson:"prompt"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time           `json:"expires_at,omitzero" bson:"expires_at,omitempty"`
}

// Clone returns a deep copy of s.
func (s *Suspension) Clone() *Suspension {
	if s == nil {
		return nil
	}
	c := *s
	c.Remaining = slices.Clone(s.Remaining)
	return &c
}

// Snapshot is the committed state of one session.
type Snapshot struct {
	ID         string             `json:"id"`
	Messages   []protocol.Message `json:"messages"`
	Suspension *Suspension        `json:"suspension,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Len returns the number of committed messages.
func (s *Snapshot) Len() int {
	return len(s.Messages)
}

// Commit is an atomic append to a session.
//
// Base is the message count the writer observed when it loaded the session;
// the commit is rejected with ErrConflict when the stored history has moved.
// ClearSuspension resolves the pending suspension. Suspension, when non-nil,
// becomes the new pending suspension and fails with ErrSuspensionExists if one
// is still pending after ClearSuspension is applied.
type Commit struct {
	Base            int
	Messages        []protocol.Message
	Suspension      *Suspension
	ClearSuspension bool
}

// Store persists session snapshots. Sessions come into existence on their
// first commit; loading an unknown ID returns an empty snapshot.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns a defensive copy of the session's committed state.
	Load(ctx context.Context, id string) (*Snapshot, error)
	// Commit appends messages and updates the pending suspension atomically.
	Commit(ctx context.Context, id string, c Commit) error
	// Delete removes a session. Missing sessions are ignored.
	Delete(ctx context.Context, id string) error
	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
	// Close releases backend resources.
	Close(ctx context.Context) error
}

func cloneMessages(messages []protocol.Message) []protocol.Message {
	copied := make([]protocol.Message, len(messages))
	for i, msg := range messages {
		copied[i] = msg
		copied[i].ToolCalls = slices.Clone(msg.ToolCalls)
	}
	return copied
}

// apply validates c against snap and returns the resulting snapshot.
// snap is not modified.
func apply(snap *Snapshot, c Commit, now time.Time) (*Snapshot, error) {
	if c.Base != len(snap.Messages) {
		return nil, conflict(snap.ID, c.Base, len(snap.Messages))
	}

	next := &Snapshot{
		ID:         snap.ID,
		Messages:   append(cloneMessages(snap.Messages), cloneMessages(c.Messages)...),
		Suspension: snap.Suspension.Clone(),
		UpdatedAt:  now,
	}

	if c.ClearSuspension {
		next.Suspension = nil
	}
	if c.Suspension != nil {
		if next.Suspension != nil {
			return nil, suspensionExists(snap.ID, next.Suspension.ID)
		}
		next.Suspension = c.Suspension.Clone()
	}

	return next, nil
}
