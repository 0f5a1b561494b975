package interrupt

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Affirmative is the only decision value that approves a suspended action.
const Affirmative = "yes"

// Decision is an approver's answer bound to exactly one suspension.
type Decision struct {
	SuspensionID string
	CallID       string
	Value        string
	DecidedAt    time.Time
}

// Approved reports whether the decision is the literal affirmative value.
func (d Decision) Approved() bool {
	return d.Value == Affirmative
}

// Interrupt is returned by Suspend when no decision is bound to the current
// call. It unwinds the tool and carries the prompt for the approver.
type Interrupt struct {
	CallID string
	Prompt string
}

func (i *Interrupt) Error() string {
	return fmt.Sprintf("call %s suspended: %s", i.CallID, i.Prompt)
}

type callKey struct{}
type resumeKey struct{}

type callState struct {
	id        string
	mu        sync.Mutex
	suspended bool
}

type resumeSlot struct {
	decision Decision
	prompt   string
	mu       sync.Mutex
	used     bool
}

// WithCall returns a context marking the execution of the tool call callID.
// The kernel wraps every tool invocation with it.
func WithCall(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, callKey{}, &callState{id: callID})
}

// CallID returns the ID of the tool call executing under ctx, if any.
func CallID(ctx context.Context) string {
	if state, ok := ctx.Value(callKey{}).(*callState); ok {
		return state.id
	}
	return ""
}

// Suspend pauses the current tool call until a decision is supplied.
//
// Without a bound decision it returns an *Interrupt carrying prompt. When the
// call is being resumed it returns the bound decision exactly once; the
// prompt must match the one that opened the suspension, otherwise
// ErrPromptMismatch is returned. A call may suspend at most once per
// execution: further Suspend calls fail with ErrConcurrentSuspension.
func Suspend(ctx context.Context, prompt string) (Decision, error) {
	state, _ := ctx.Value(callKey{}).(*callState)
	if state == nil {
		state = &callState{}
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.suspended {
		return Decision{}, fmt.Errorf("%w: call %s", ErrConcurrentSuspension, state.id)
	}
	state.suspended = true

	slot, _ := ctx.Value(resumeKey{}).(*resumeSlot)
	if slot == nil || slot.decision.CallID != state.id {
		return Decision{}, &Interrupt{CallID: state.id, Prompt: prompt}
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.used {
		return Decision{}, fmt.Errorf("%w: decision for call %s already consumed", ErrConcurrentSuspension, state.id)
	}
	if slot.prompt != prompt {
		return Decision{}, fmt.Errorf("%w: got %q, want %q", ErrPromptMismatch, prompt, slot.prompt)
	}

	slot.used = true
	return slot.decision, nil
}
